package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automarket/internal/storage"
)

func TestValidateOfferItem(t *testing.T) {
	valid := offerItem("Фильтр", 2, 500)

	noWeight := valid
	noWeight.Weight = decimal.Zero

	noWeeks := valid
	noWeeks.DeliveryWeeks = 0

	badCurrency := valid
	badCurrency.SellerCurrency = "EUR"

	negative := valid
	negative.OfferedQuantity = -1

	tests := []struct {
		name    string
		item    storage.OfferItem
		wantErr bool
	}{
		{name: "valid", item: valid},
		{name: "explicit decline", item: storage.OfferItem{Name: "Фильтр"}},
		{name: "no price", item: offerItem("Фильтр", 2, 0), wantErr: true},
		{name: "no weight", item: noWeight, wantErr: true},
		{name: "no delivery", item: noWeeks, wantErr: true},
		{name: "unknown currency", item: badCurrency, wantErr: true},
		{name: "negative quantity", item: negative, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOfferItem(tt.item)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateOffer_AllDeclinedAccepted(t *testing.T) {
	in := OfferInput{
		OrderID:      1,
		SupplierName: "Альфа",
		Items: []storage.OfferItem{
			{Name: "Фильтр", Quantity: 2},
			{Name: "Колодки", Quantity: 4},
		},
	}

	require.NoError(t, ValidateOffer(in))
	assert.True(t, AllDeclined(in.Items))

	off := NewOffer(in)
	assert.Equal(t, storage.SupplierDeclined, off.SupplierStatus)
	assert.Equal(t, "⬜ | Фильтр | 2 шт\n⬜ | Колодки | 4 шт", off.Details)
}

func TestValidateOffer_RequiredFields(t *testing.T) {
	err := ValidateOffer(OfferInput{Items: []storage.OfferItem{{Name: "Фильтр"}}})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "OrderID")
	assert.Contains(t, err.Error(), "SupplierName")
}

func TestValidateOrder(t *testing.T) {
	assert.NoError(t, ValidateOrder(OrderInput{ClientName: "Иван", Items: []storage.OrderItem{{Name: "Фильтр", Quantity: 1}}}))
	assert.ErrorIs(t, ValidateOrder(OrderInput{ClientName: "Иван"}), ErrValidation)
	assert.ErrorIs(t, ValidateOrder(OrderInput{ClientName: "Иван", Items: []storage.OrderItem{{Name: "Фильтр"}}}), ErrValidation)
	assert.ErrorIs(t, ValidateOrder(OrderInput{ClientName: "Иван", Items: []storage.OrderItem{{Name: " ", Quantity: 1}}}), ErrValidation)
}

func TestValidateRank(t *testing.T) {
	assert.NoError(t, ValidateRank(RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1"}))
	assert.NoError(t, ValidateRank(RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1", ActionType: RankReset}))
	assert.ErrorIs(t, ValidateRank(RankCommand{DetailName: "Фильтр"}), ErrValidation)
	assert.ErrorIs(t, ValidateRank(RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1", ActionType: "DROP"}), ErrValidation)
	assert.ErrorIs(t, ValidateRank(RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1", AdminCurrency: "EUR"}), ErrValidation)
}

func TestNewOrder_CarFromFirstItem(t *testing.T) {
	o := NewOrder(OrderInput{
		ClientName: " Иван ",
		Items: []storage.OrderItem{
			{Name: " Фильтр ", Quantity: 2, Car: &storage.Car{Brand: "Kia", Model: "Rio"}},
		},
	})

	assert.Equal(t, "Иван", o.ClientName)
	assert.Equal(t, storage.StateProcessing, o.State)
	assert.Equal(t, "Kia", o.Car.Brand)
	assert.Nil(t, o.Items[0].Car)
	assert.Equal(t, "Фильтр", o.Items[0].Name)
	assert.Equal(t, "Kia | Rio\n⬜ | Фильтр | 2 шт", o.Details)
}

func TestApplyItemEdits_KeepsLeaders(t *testing.T) {
	o := testOrder()
	require.NoError(t, ApplyRank(o, RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1"}))

	qty := 5
	err := ApplyItemEdits(o, []storage.OrderItem{
		{Name: "Фильтр", AdminName: "Фильтр салона", Quantity: 2, AdminQuantity: &qty, Car: &storage.Car{Brand: "Lexus"}},
		{Name: "Колодки", Quantity: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, "Lexus", o.Car.Brand)
	assert.Nil(t, o.Items[0].Car)
	assert.Equal(t, "Фильтр салона", o.Offers[0].Items[0].AdminName)
	assert.Equal(t, "Фильтр салона", o.Offers[1].Items[0].AdminName)
	require.NotNil(t, o.Items[0].Leader)
	assert.Equal(t, "1-1", o.Items[0].Leader.OfferID)
	assert.Equal(t, "Lexus\n✅ | Фильтр салона | 5шт | 500₽", o.Details)
}

func TestApplyItemEdits_RenameOntoOneLeaderRejected(t *testing.T) {
	o := testOrder()
	require.NoError(t, ApplyRank(o, RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1"}))
	require.NoError(t, ApplyRank(o, RankCommand{DetailName: "Колодки", LeadOfferID: "1-1"}))

	err := ApplyItemEdits(o, []storage.OrderItem{
		{Name: "Фильтр", AdminName: "Комплект ТО", Quantity: 2},
		{Name: "Колодки", AdminName: "Комплект ТО", Quantity: 4},
	})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "комплект то")
}
