package get

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"automarket/internal/storage"
)

type MockAdminProvider struct {
	mock.Mock
}

func (m *MockAdminProvider) ActionLogs(ctx context.Context, limit int) ([]storage.ActionLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ActionLog), args.Error(1)
}

func (m *MockAdminProvider) Subscribers(ctx context.Context) ([]storage.Subscriber, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Subscriber), args.Error(1)
}

func TestGetActionLogs(t *testing.T) {
	admin := new(MockAdminProvider)
	admin.On("ActionLogs", mock.Anything, 20).Return([]storage.ActionLog{
		{ID: 2, Type: storage.LogError, Message: "close_order: server busy"},
	}, nil)

	rr := httptest.NewRecorder()
	GetActionLogs(slog.Default(), admin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/logs?limit=20", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"type":"ERROR"`)
	admin.AssertExpectations(t)
}

func TestGetActionLogs_DefaultAndBadLimit(t *testing.T) {
	admin := new(MockAdminProvider)
	admin.On("ActionLogs", mock.Anything, 100).Return(nil, nil)

	rr := httptest.NewRecorder()
	GetActionLogs(slog.Default(), admin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/logs", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = httptest.NewRecorder()
	GetActionLogs(slog.Default(), admin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/logs?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	admin.AssertNumberOfCalls(t, "ActionLogs", 1)
}

func TestGetSubscribers_Error(t *testing.T) {
	admin := new(MockAdminProvider)
	admin.On("Subscribers", mock.Anything).Return(nil, assert.AnError)

	rr := httptest.NewRecorder()
	GetSubscribers(slog.Default(), admin).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/subscribers", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
