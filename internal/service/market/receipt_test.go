package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"automarket/internal/storage"
)

func TestCarHeader(t *testing.T) {
	tests := []struct {
		name string
		car  storage.Car
		want string
	}{
		{name: "empty", car: storage.Car{}, want: "Авто не указано"},
		{name: "full", car: storage.Car{Brand: "Kia", Model: "Rio", Year: "2018"}, want: "Kia | Rio | 2018"},
		{name: "admin override", car: storage.Car{Brand: "Kia", Model: "Rio", AdminModel: "Rio X", Year: "2018", AdminYear: "2019"}, want: "Kia | Rio X | 2019"},
		{name: "partial", car: storage.Car{Brand: "Kia", Year: "2018"}, want: "Kia | 2018"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CarHeader(tt.car))
		})
	}
}

func TestOrderSummaryAndDraft(t *testing.T) {
	items := []storage.OrderItem{
		{Name: "Фильтр", Quantity: 2},
		{Name: "колодки", AdminName: "Колодки передние", Quantity: 4},
	}

	assert.Equal(t, "Фильтр (2 шт), Колодки передние (4 шт)", OrderSummary(items))
	assert.Equal(t, "Авто не указано\n⬜ | Фильтр | 2 шт\n⬜ | Колодки передние | 4 шт",
		OrderDraftReceipt(storage.Car{}, items))
}

func TestFinalReceipt_PriceAndCurrency(t *testing.T) {
	admin := decimal.NewFromInt(80)
	zero := decimal.Zero
	qty := 3

	leaders := []storage.OfferItem{
		{Name: "Фильтр", Quantity: 2, OfferedQuantity: 2, SellerPrice: decimal.NewFromInt(500), SellerCurrency: storage.CurrencyRUB},
		{Name: "Колодки", AdminName: "Колодки OEM", Quantity: 4, AdminQuantity: &qty,
			SellerPrice: decimal.NewFromInt(600), SellerCurrency: storage.CurrencyCNY, AdminPrice: &admin, AdminCurrency: storage.CurrencyUSD},
		{Name: "Свеча", OfferedQuantity: 1, SellerPrice: decimal.NewFromInt(90), SellerCurrency: storage.CurrencyCNY, AdminPrice: &zero},
	}

	got := FinalReceipt(storage.Car{Brand: "Kia"}, leaders)

	assert.Equal(t, "Kia\n✅ | Фильтр | 2шт | 500₽\n✅ | Колодки OEM | 3шт | 80$\n✅ | Свеча | 1шт | 90¥", got)
}

func TestRefreshReceipt(t *testing.T) {
	o := testOrder()

	RefreshReceipt(o)
	assert.Equal(t, "Toyota | Camry | 2015\n⬜ | Фильтр | 2 шт\n⬜ | Колодки | 4 шт", o.Details)

	o.Offers[1].Items[0].Rank = storage.RankLeader
	RefreshReceipt(o)
	assert.Equal(t, "Toyota | Camry | 2015\n✅ |  фильтр | 2шт | 450₽", o.Details)
	assert.Equal(t, "Фильтр (2 шт), Колодки (4 шт)", o.Summary)
}
