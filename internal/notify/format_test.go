package notify

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"automarket/internal/storage"
)

func quotedOrder() storage.Order {
	lead := int64(77)
	price := decimal.NewFromInt(20)
	return storage.Order{
		ID:         15,
		VIN:        "VIN<15>",
		ClientName: "Пётр & Ко",
		Car:        storage.Car{Brand: "BMW", Model: "X5"},
		BitrixID:   &lead,
		Items:      []storage.OrderItem{{Name: "Фильтр", Quantity: 2}, {Name: "Свеча", Quantity: 4}},
		Offers: []storage.Offer{{
			ID: "15-1", SupplierName: "Альфа",
			Items: []storage.OfferItem{
				{Name: "Фильтр", Quantity: 2, OfferedQuantity: 2, SellerPrice: decimal.NewFromInt(500), SellerCurrency: storage.CurrencyRUB, Rank: storage.RankLeader},
				{Name: "Свеча", Quantity: 4, OfferedQuantity: 4, SellerPrice: decimal.NewFromInt(100), SellerCurrency: storage.CurrencyRUB,
					AdminPrice: &price, AdminCurrency: storage.CurrencyUSD, Rank: storage.RankLeader},
			},
		}},
	}
}

func TestFormatter_NewOrder(t *testing.T) {
	f := NewFormatter("https://crm.example.ru/")
	o := quotedOrder()

	withLead := f.NewOrder(o, LeadResult{ID: 77})
	assert.Contains(t, withLead, "🔥 <b>НОВЫЙ ЗАКАЗ</b>")
	assert.Contains(t, withLead, "Пётр &amp; Ко")
	assert.Contains(t, withLead, "<code>VIN&lt;15&gt;</code>")
	assert.Contains(t, withLead, "• Фильтр — 2 шт")
	assert.Contains(t, withLead, `href="https://crm.example.ru/crm/lead/details/77/"`)

	failed := f.NewOrder(o, LeadResult{Err: errors.New("timeout")})
	assert.Contains(t, failed, "ОШИБКА CRM:</b> <i>timeout</i>")

	none := f.NewOrder(o, LeadResult{})
	assert.Contains(t, none, "Лид в CRM не создан")
}

func TestFormatter_NewOffer(t *testing.T) {
	f := NewFormatter("https://crm.example.ru")
	o := quotedOrder()

	offer := storage.Offer{Seq: 2, SupplierName: "Бета", Items: []storage.OfferItem{
		{Name: "Фильтр", OfferedQuantity: 2, SellerPrice: decimal.NewFromInt(450), SellerCurrency: storage.CurrencyRUB},
		{Name: "Свеча", OfferedQuantity: 0},
	}}
	text := f.NewOffer(o, offer)
	assert.Contains(t, text, "НОВОЕ ПРЕДЛОЖЕНИЕ (№2)")
	assert.Contains(t, text, "• Фильтр — <b>450₽</b> x <b>2шт</b>")
	assert.NotContains(t, text, "Свеча")
	assert.Contains(t, text, "ИТОГО: 900 ₽")

	declined := storage.Offer{Seq: 3, SupplierName: "Гамма", Items: []storage.OfferItem{{Name: "Фильтр"}}}
	text = f.NewOffer(o, declined)
	assert.Contains(t, text, "Поставщик отказался от всех позиций")
	assert.NotContains(t, text, "ИТОГО")
}

func TestFormatter_QuoteFormed(t *testing.T) {
	f := NewFormatter("https://crm.example.ru")

	text := f.QuoteFormed(quotedOrder())
	assert.Contains(t, text, "КП СФОРМИРОВАНО")
	assert.Contains(t, text, "• Фильтр — <b>500 ₽</b> x <b>2шт</b>")
	assert.Contains(t, text, "• Свеча — <b>20 $</b> x <b>4шт</b>")

	empty := quotedOrder()
	empty.Offers = nil
	assert.Contains(t, f.QuoteFormed(empty), "(Нет позиций)")
}

func TestFormatter_PurchaseConfirmed(t *testing.T) {
	f := NewFormatter("https://crm.example.ru")

	o := quotedOrder()
	assert.Contains(t, f.PurchaseConfirmed(o), "Сконвертируйте в сделку!")

	o.BitrixID = nil
	text := f.PurchaseConfirmed(o)
	assert.NotContains(t, text, "Сконвертируйте")
	assert.Contains(t, text, "/crm/lead/list/")
}

func TestFormatter_RefusalAndAnnulment(t *testing.T) {
	f := NewFormatter("https://crm.example.ru")
	o := quotedOrder()
	o.RefusalReason = "Нашёл дешевле"

	refusal := f.Refusal(o)
	assert.Contains(t, refusal, "КЛИЕНТ ОТКАЗАЛСЯ")
	assert.Contains(t, refusal, "Причина:</b> Нашёл дешевле")

	annulment := f.Annulment(o)
	assert.Contains(t, annulment, "ЗАКАЗ 15 был аннулирован")
	assert.Contains(t, annulment, "• Свеча (4 шт)")
	assert.Contains(t, annulment, "Нашёл дешевле")

	o.RefusalReason = ""
	assert.Contains(t, f.Annulment(o), "Причина:</b> Не указана")
}
