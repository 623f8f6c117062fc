package get

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"automarket/internal/service/market"
	"automarket/internal/storage"
)

type MockSupplierOffers struct {
	mock.Mock
}

func (m *MockSupplierOffers) SupplierOffers(ctx context.Context, supplier string) ([]market.OrderView, error) {
	args := m.Called(ctx, supplier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]market.OrderView), args.Error(1)
}

func TestGetMyOffers_Success(t *testing.T) {
	m := new(MockSupplierOffers)
	m.On("SupplierOffers", mock.Anything, "avto").Return([]market.OrderView{
		{Order: &storage.Order{ID: 9}, MyOfferKind: string(market.OfferWon), MyOfferStatus: market.OfferWon.Label()},
	}, nil)

	rr := httptest.NewRecorder()
	GetMyOffers(slog.Default(), m).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/offers/my?supplier=avto", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"myOfferStatus":"ВЫИГРАЛ"`)
	assert.Contains(t, rr.Body.String(), `"id":9`)
	m.AssertExpectations(t)
}

func TestGetMyOffers_Empty(t *testing.T) {
	m := new(MockSupplierOffers)
	m.On("SupplierOffers", mock.Anything, "avto").Return(nil, nil)

	rr := httptest.NewRecorder()
	GetMyOffers(slog.Default(), m).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/offers/my?supplier=avto", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestGetMyOffers_NoSupplier(t *testing.T) {
	m := new(MockSupplierOffers)
	m.On("SupplierOffers", mock.Anything, "").
		Return(nil, fmt.Errorf("service: %w: не указан поставщик", market.ErrValidation))

	rr := httptest.NewRecorder()
	GetMyOffers(slog.Default(), m).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/offers/my", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "не указан поставщик")
}
