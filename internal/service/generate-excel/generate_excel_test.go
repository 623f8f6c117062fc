package generate_excel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"automarket/internal/storage"
)

type MockReportStorage struct {
	mock.Mock
}

func (m *MockReportStorage) ListOrders(ctx context.Context, f storage.OrderFilter) ([]storage.Order, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Order), args.Error(1)
}

func reportOrder() storage.Order {
	adminPrice := decimal.NewFromInt(600)
	return storage.Order{
		ID:         11,
		VIN:        "XW8ZZZ",
		ClientName: "Иван",
		Car:        storage.Car{Brand: "Kia", Model: "Rio", Year: "2019", AdminYear: "2020"},
		State:      storage.StateQuoteSent,
		CreatedAt:  time.Date(2026, 3, 1, 10, 30, 0, 0, time.Local),
		Summary:    "Фильтр (2 шт), Колодки (1 шт)",
		Offers: []storage.Offer{
			{
				ID:           "11-1",
				SupplierName: "АвтоДеталь",
				Items: []storage.OfferItem{
					{Name: "Фильтр", Quantity: 2, OfferedQuantity: 2, SellerPrice: decimal.NewFromInt(500), SellerCurrency: storage.CurrencyRUB, AdminPrice: &adminPrice, Rank: storage.RankLeader, DeliveryWeeks: 2},
					{Name: "Колодки", Quantity: 1, OfferedQuantity: 1, SellerPrice: decimal.NewFromInt(900), SellerCurrency: storage.CurrencyRUB, Rank: storage.RankReserve},
				},
			},
			{
				ID:           "11-2",
				SupplierName: "Запчасти24",
				Items: []storage.OfferItem{
					{Name: "Колодки", Quantity: 1, OfferedQuantity: 1, SellerPrice: decimal.NewFromInt(30), SellerCurrency: storage.CurrencyUSD, Rank: storage.RankLeader, DeliveryWeeks: 4},
				},
			},
		},
	}
}

func TestGenerateExcel(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.Local)

	st := new(MockReportStorage)
	st.On("ListOrders", mock.Anything, storage.OrderFilter{Role: storage.RoleAdmin, From: from, To: to}).
		Return([]storage.Order{reportOrder()}, nil)

	data, err := NewGenerateService(st).GenerateExcel(context.Background(), ReportFilter{From: from, To: to})
	require.NoError(t, err)
	st.AssertExpectations(t)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetOrders, sheetLeaders}, f.GetSheetList())

	rows, err := f.GetRows(sheetOrders)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "№ Заказа", rows[0][0])
	assert.Equal(t, "11", rows[1][0])
	assert.Equal(t, "01.03.2026 10:30", rows[1][1])
	assert.Equal(t, "Kia Rio 2020", rows[1][5])
	assert.Equal(t, "2", rows[1][9])

	leaders, err := f.GetRows(sheetLeaders)
	require.NoError(t, err)
	require.Len(t, leaders, 3, "шапка и два лидера, резерв не попадает")

	// цена админа важнее цены продавца
	assert.Equal(t, "Фильтр", leaders[1][1])
	assert.Equal(t, "АвтоДеталь", leaders[1][3])
	assert.Equal(t, "600", leaders[1][5])
	assert.Equal(t, "RUB", leaders[1][6])
	assert.Equal(t, "1200", leaders[1][7])

	assert.Equal(t, "Колодки", leaders[2][1])
	assert.Equal(t, "11-2", leaders[2][4])
	assert.Equal(t, "USD", leaders[2][6])
}

func TestGenerateExcel_StorageError(t *testing.T) {
	st := new(MockReportStorage)
	st.On("ListOrders", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	_, err := NewGenerateService(st).GenerateExcel(context.Background(), ReportFilter{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCarTitle(t *testing.T) {
	assert.Equal(t, "", carTitle(storage.Car{}))
	assert.Equal(t, "Rio", carTitle(storage.Car{Model: "Rio"}))
	assert.Equal(t, "Kia Ceed 2018", carTitle(storage.Car{Brand: "Kia", Model: "Rio", AdminModel: "Ceed", Year: "2018"}))
}
