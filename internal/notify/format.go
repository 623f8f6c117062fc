package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"automarket/internal/service/market"
	"automarket/internal/storage"
)

// Formatter собирает HTML-сообщения для Telegram по событиям заказа.
type Formatter struct {
	CRMBaseURL string
}

func NewFormatter(crmBaseURL string) Formatter {
	return Formatter{CRMBaseURL: strings.TrimRight(crmBaseURL, "/")}
}

// LeadResult итог создания лида в CRM, попадает в текст уведомления о новом заказе.
type LeadResult struct {
	ID  int64
	Err error
}

func esc(s string) string {
	return html.EscapeString(s)
}

func (f Formatter) leadURL(id int64) string {
	return fmt.Sprintf("%s/crm/lead/details/%d/", f.CRMBaseURL, id)
}

func (f Formatter) leadLink(order storage.Order, fallback string) string {
	if order.BitrixID != nil && *order.BitrixID > 0 {
		title := market.CarTitle(order.Car, order.ClientName)
		if title == "" {
			title = fmt.Sprintf("Лид %d", *order.BitrixID)
		}
		return fmt.Sprintf("🔗 <a href=\"%s\">%s</a>", f.leadURL(*order.BitrixID), esc(title))
	}
	return fmt.Sprintf("🔗 <a href=\"%s/crm/lead/list/\">%s</a>", f.CRMBaseURL, fallback)
}

func (f Formatter) NewOrder(order storage.Order, lead LeadResult) string {
	var b strings.Builder
	b.WriteString("🔥 <b>НОВЫЙ ЗАКАЗ</b>\n")
	fmt.Fprintf(&b, "ID: <code>%d</code>\n", order.ID)
	fmt.Fprintf(&b, "Клиент: <b>%s</b>\n", esc(order.ClientName))
	fmt.Fprintf(&b, "VIN: <code>%s</code>\n\n", esc(order.VIN))
	fmt.Fprintf(&b, "🚘 <b>Машина:</b> %s\n\n", esc(market.CarHeader(order.Car)))

	b.WriteString("📋 <b>ПОЗИЦИИ:</b>\n")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "• %s — %d шт\n", esc(it.Name), it.Quantity)
	}
	b.WriteString("\n")

	switch {
	case lead.ID > 0:
		fmt.Fprintf(&b, "🔗 <a href=\"%s\">%s</a>", f.leadURL(lead.ID), esc(market.CarTitle(order.Car, order.ClientName)))
	case lead.Err != nil:
		fmt.Fprintf(&b, "⚠️ <b>ОШИБКА CRM:</b> <i>%s</i>", esc(lead.Err.Error()))
	default:
		b.WriteString("⚠️ <i>Лид в CRM не создан</i>")
	}
	return b.String()
}

func (f Formatter) NewOffer(order storage.Order, offer storage.Offer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 <b>НОВОЕ ПРЕДЛОЖЕНИЕ (№%d)</b>\n", offer.Seq)
	fmt.Fprintf(&b, "К заказу: <code>%d</code>\n", order.ID)
	fmt.Fprintf(&b, "Поставщик: <b>%s</b>\n\n", esc(offer.SupplierName))
	fmt.Fprintf(&b, "🚘 <b>Машина:</b> %s\n", esc(market.CarHeader(order.Car)))
	fmt.Fprintf(&b, "👤 <b>Клиент:</b> %s\n", esc(order.ClientName))
	fmt.Fprintf(&b, "🔢 <b>VIN:</b> <code>%s</code>\n\n", esc(order.VIN))

	if market.AllDeclined(offer.Items) {
		b.WriteString("🚫 <i>Поставщик отказался от всех позиций</i>\n")
	} else {
		var lines strings.Builder
		total := decimal.Zero
		cur := storage.CurrencyRUB
		for _, it := range offer.Items {
			if it.OfferedQuantity <= 0 {
				continue
			}
			if it.SellerCurrency != "" {
				cur = it.SellerCurrency
			}
			fmt.Fprintf(&lines, "• %s — <b>%s%s</b> x <b>%dшт</b>\n", esc(it.Name), it.SellerPrice.String(), it.SellerCurrency.Symbol(), it.OfferedQuantity)
			total = total.Add(it.SellerPrice.Mul(decimal.NewFromInt(int64(it.OfferedQuantity))))
		}
		fmt.Fprintf(&b, "📋 <b>ПОЗИЦИИ:</b>\n%s\n", lines.String())
		fmt.Fprintf(&b, "💰 <b>ИТОГО: %s %s</b>\n", total.String(), cur.Symbol())
	}

	b.WriteString("\n")
	b.WriteString(f.leadLink(order, "Открыть CRM"))
	return b.String()
}

// leaderLines строки утверждённых позиций и итог по ним.
func leaderLines(order storage.Order) (string, decimal.Decimal, storage.Currency) {
	var lines strings.Builder
	total := decimal.Zero
	cur := storage.CurrencyRUB
	for _, it := range market.Leaders(order.Offers) {
		price, c := it.FinalPrice()
		if c != "" {
			cur = c
		}
		qty := it.FinalQuantity()
		if qty <= 0 {
			qty = 1
		}
		fmt.Fprintf(&lines, "• %s — <b>%s %s</b> x <b>%dшт</b>\n", esc(it.DisplayName()), price.String(), c.Symbol(), qty)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return lines.String(), total, cur
}

func (f Formatter) header(b *strings.Builder, title string, order storage.Order, withVIN bool) {
	fmt.Fprintf(b, "%s\n", title)
	fmt.Fprintf(b, "Заказ: <code>%d</code>\n\n", order.ID)
	fmt.Fprintf(b, "🚘 <b>Машина:</b> %s\n", esc(market.CarHeader(order.Car)))
	fmt.Fprintf(b, "👤 <b>Клиент:</b> %s\n", esc(order.ClientName))
	if withVIN {
		fmt.Fprintf(b, "🔢 <b>VIN:</b> <code>%s</code>\n", esc(order.VIN))
	}
	b.WriteString("\n")
}

func (f Formatter) QuoteFormed(order storage.Order) string {
	var b strings.Builder
	f.header(&b, "✅ <b>КП СФОРМИРОВАНО</b>", order, true)

	b.WriteString("📋 <b>ПОЗИЦИИ (Утверждено):</b>\n")
	lines, total, cur := leaderLines(order)
	if lines != "" {
		b.WriteString(lines)
		fmt.Fprintf(&b, "\n💰 <b>ИТОГО: %s %s</b>\n", total.String(), cur.Symbol())
	} else {
		b.WriteString("(Нет позиций)\n")
	}

	b.WriteString("\n")
	b.WriteString(f.leadLink(order, "Открыть CRM"))
	return b.String()
}

func (f Formatter) PurchaseConfirmed(order storage.Order) string {
	var b strings.Builder
	f.header(&b, "🛍 <b>КЛИЕНТ ГОТОВ КУПИТЬ</b>", order, false)

	b.WriteString("📋 <b>ПОЗИЦИИ:</b>\n")
	lines, total, cur := leaderLines(order)
	b.WriteString(lines)
	fmt.Fprintf(&b, "\n💰 <b>ИТОГО: %s %s</b>\n\n", total.String(), cur.Symbol())

	b.WriteString(f.leadLink(order, "Открыть CRM"))
	if order.BitrixID != nil && *order.BitrixID > 0 {
		b.WriteString("\nСконвертируйте в сделку!")
	}
	return b.String()
}

func (f Formatter) Refusal(order storage.Order) string {
	var b strings.Builder
	f.header(&b, "❌ <b>КЛИЕНТ ОТКАЗАЛСЯ</b>", order, true)

	b.WriteString("📋 <b>ПОЗИЦИИ (Утверждено):</b>\n")
	lines, total, cur := leaderLines(order)
	if lines != "" {
		b.WriteString(lines)
	} else {
		b.WriteString("(Нет позиций)\n")
	}
	fmt.Fprintf(&b, "\n💰 <b>ИТОГО: %s %s</b>\n", total.String(), cur.Symbol())
	if order.RefusalReason != "" {
		fmt.Fprintf(&b, "❗ <b>Причина:</b> %s\n", esc(order.RefusalReason))
	}

	b.WriteString("\n")
	b.WriteString(f.leadLink(order, "Открыть список лидов CRM"))
	return b.String()
}

func (f Formatter) Annulment(order storage.Order) string {
	var b strings.Builder
	f.header(&b, fmt.Sprintf("❌ <b>ЗАКАЗ %d был аннулирован</b>", order.ID), order, true)

	b.WriteString("📋 <b>ПОЗИЦИИ:</b>\n")
	if len(order.Items) == 0 {
		b.WriteString("(Нет данных)\n")
	}
	for _, it := range order.Items {
		fmt.Fprintf(&b, "• %s (%d шт)\n", esc(it.Name), it.Quantity)
	}

	reason := order.RefusalReason
	if reason == "" {
		reason = "Не указана"
	}
	fmt.Fprintf(&b, "\n❗ <b>Причина:</b> %s\n\n", esc(reason))
	b.WriteString(f.leadLink(order, "Открыть список лидов CRM"))
	return b.String()
}
