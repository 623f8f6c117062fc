package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automarket/internal/storage"
)

func offerItem(name string, offered int, price int64) storage.OfferItem {
	return storage.OfferItem{
		Name:            name,
		Quantity:        offered,
		OfferedQuantity: offered,
		SellerPrice:     decimal.NewFromInt(price),
		SellerCurrency:  storage.CurrencyRUB,
		DeliveryWeeks:   2,
		Weight:          decimal.NewFromFloat(0.5),
		Rank:            storage.RankReserve,
	}
}

func testOrder() *storage.Order {
	return &storage.Order{
		ID:    1,
		Car:   storage.Car{Brand: "Toyota", Model: "Camry", Year: "2015"},
		State: storage.StateProcessing,
		Items: []storage.OrderItem{
			{Name: "Фильтр", Quantity: 2},
			{Name: "Колодки", Quantity: 4},
		},
		Offers: []storage.Offer{
			{ID: "1-1", OrderID: 1, SupplierName: "Альфа", Items: []storage.OfferItem{
				offerItem("Фильтр", 2, 500), offerItem("Колодки", 4, 1200),
			}},
			{ID: "1-2", OrderID: 1, SupplierName: "Бета", Items: []storage.OfferItem{
				offerItem(" фильтр", 2, 450), offerItem("Колодки", 0, 0),
			}},
		},
	}
}

// leadersByName число лидеров на каждое нормализованное название.
func leadersByName(o *storage.Order) map[string]int {
	out := make(map[string]int)
	for _, off := range o.Offers {
		for _, it := range off.Items {
			if it.IsLeader() {
				out[NormalizeName(it.DisplayName())]++
			}
		}
	}
	return out
}

func TestApplyRank_Promote(t *testing.T) {
	o := testOrder()

	err := ApplyRank(o, RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1"})
	require.NoError(t, err)

	assert.True(t, o.Offers[0].Items[0].IsLeader())
	assert.False(t, o.Offers[1].Items[0].IsLeader())
	assert.Contains(t, o.Details, "✅ | Фильтр | 2шт | 500₽")
	assert.Equal(t, "✅ | Фильтр | 2 шт\n⬜ | Колодки | 4 шт", o.Offers[0].Details)
	assert.Equal(t, storage.SupplierPartial, o.Offers[0].SupplierStatus)
	assert.Equal(t, storage.SupplierLost, o.Offers[1].SupplierStatus)

	require.NotNil(t, o.Items[0].Leader)
	assert.Equal(t, "1-1", o.Items[0].Leader.OfferID)
	assert.Equal(t, "Альфа", o.Items[0].Leader.Supplier)
	assert.Nil(t, o.Items[1].Leader)
}

func TestApplyRank_AdminOverlay(t *testing.T) {
	o := testOrder()
	price := decimal.NewFromInt(70)
	rate := decimal.NewFromInt(15)

	err := ApplyRank(o, RankCommand{
		DetailName:    "колодки",
		LeadOfferID:   "1-1",
		AdminPrice:    &price,
		AdminCurrency: storage.CurrencyUSD,
		AdminComment:  "оригинал",
		DeliveryRate:  &rate,
	})
	require.NoError(t, err)

	it := o.Offers[0].Items[1]
	assert.True(t, it.IsLeader())
	assert.Equal(t, "оригинал", it.AdminComment)
	assert.True(t, rate.Equal(*it.DeliveryRate))
	assert.Contains(t, o.Details, "✅ | Колодки | 4шт | 70$")
	assert.Equal(t, storage.CurrencyUSD, o.Items[1].Leader.Currency)
}

func TestApplyRank_SingleLeaderInvariant(t *testing.T) {
	o := testOrder()

	steps := []RankCommand{
		{DetailName: "Фильтр", LeadOfferID: "1-1"},
		{DetailName: "ФИЛЬТР ", LeadOfferID: "1-2"},
		{DetailName: "Колодки", LeadOfferID: "1-1"},
		{DetailName: "фильтр", LeadOfferID: "1-1"},
		{DetailName: "Фильтр", LeadOfferID: "1-2", ActionType: RankReset},
		{DetailName: "Фильтр", LeadOfferID: "1-2"},
	}
	for _, cmd := range steps {
		require.NoError(t, ApplyRank(o, cmd))
		for name, n := range leadersByName(o) {
			assert.LessOrEqual(t, n, 1, "позиция %q", name)
		}
		assert.Empty(t, LeaderConflicts(o))
	}

	assert.True(t, o.Offers[1].Items[0].IsLeader())
	assert.False(t, o.Offers[0].Items[0].IsLeader())
	assert.True(t, o.Offers[0].Items[1].IsLeader())
}

func TestApplyRank_ResetThenPromoteRestores(t *testing.T) {
	o := testOrder()
	cmd := RankCommand{DetailName: "Фильтр", LeadOfferID: "1-2"}

	require.NoError(t, ApplyRank(o, cmd))
	before := *o
	beforeOffers := []storage.OfferItem{o.Offers[0].Items[0], o.Offers[1].Items[0]}

	reset := cmd
	reset.ActionType = RankReset
	require.NoError(t, ApplyRank(o, reset))
	assert.Empty(t, leadersByName(o))
	assert.Contains(t, o.Details, "⬜ | Фильтр | 2 шт")

	require.NoError(t, ApplyRank(o, cmd))
	assert.Equal(t, before.Details, o.Details)
	assert.Equal(t, beforeOffers, []storage.OfferItem{o.Offers[0].Items[0], o.Offers[1].Items[0]})
	assert.Equal(t, "1-2", o.Items[0].Leader.OfferID)
}

func TestApplyRank_Errors(t *testing.T) {
	tests := []struct {
		name string
		cmd  RankCommand
		want error
	}{
		{name: "unknown offer", cmd: RankCommand{DetailName: "Фильтр", LeadOfferID: "1-9"}, want: storage.ErrOfferNotFound},
		{name: "unknown item", cmd: RankCommand{DetailName: "Свеча", LeadOfferID: "1-1"}, want: ErrItemNotFound},
		{name: "declined item", cmd: RankCommand{DetailName: "Колодки", LeadOfferID: "1-2"}, want: ErrItemNotOffered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOrder()
			err := ApplyRank(o, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, leadersByName(o))
		})
	}
}

func TestApplyRank_LegacyLeaderDemoted(t *testing.T) {
	o := testOrder()
	o.Offers[1].Items[0].Rank = storage.ParseRank("LEADER")

	require.NoError(t, ApplyRank(o, RankCommand{DetailName: "Фильтр", LeadOfferID: "1-1"}))

	assert.Equal(t, storage.RankReserve, o.Offers[1].Items[0].Rank)
	assert.Equal(t, map[string]int{"фильтр": 1}, leadersByName(o))
}

func TestSupplierOfferStatus(t *testing.T) {
	leader := offerItem("A", 1, 10)
	leader.Rank = storage.RankLeader
	reserve := offerItem("B", 1, 10)
	declined := offerItem("C", 0, 0)

	tests := []struct {
		name  string
		items []storage.OfferItem
		want  string
	}{
		{name: "all declined", items: []storage.OfferItem{declined}, want: storage.SupplierDeclined},
		{name: "won", items: []storage.OfferItem{leader}, want: storage.SupplierWon},
		{name: "declined item makes it partial", items: []storage.OfferItem{leader, declined}, want: storage.SupplierPartial},
		{name: "partial", items: []storage.OfferItem{leader, reserve}, want: storage.SupplierPartial},
		{name: "lost", items: []storage.OfferItem{reserve}, want: storage.SupplierLost},
		{name: "empty", items: nil, want: storage.SupplierBidding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SupplierOfferStatus(storage.Offer{Items: tt.items}))
		})
	}
}

func TestLeaderConflicts(t *testing.T) {
	o := testOrder()
	o.Offers[0].Items[0].Rank = storage.RankLeader
	o.Offers[1].Items[0].Rank = storage.RankLeader

	assert.Equal(t, []string{"фильтр"}, LeaderConflicts(o))
}

func TestApplyRank_PromoteDemotesLeaderWithSameAdminName(t *testing.T) {
	o := testOrder()
	a := offerItem("Фильтр", 2, 500)
	a.AdminName = "Фильтр масляный"
	a.Rank = storage.RankLeader
	b := offerItem("Масло", 2, 450)
	b.AdminName = "Фильтр масляный"
	o.Offers[0].Items = []storage.OfferItem{a}
	o.Offers[1].Items = []storage.OfferItem{b}

	require.NoError(t, ApplyRank(o, RankCommand{DetailName: "Масло", LeadOfferID: "1-2"}))

	assert.Equal(t, storage.RankReserve, o.Offers[0].Items[0].Rank)
	assert.Equal(t, storage.RankLeader, o.Offers[1].Items[0].Rank)
	assert.Empty(t, LeaderConflicts(o))
}
