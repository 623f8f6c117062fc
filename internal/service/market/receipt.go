package market

import (
	"fmt"
	"strings"

	"automarket/internal/storage"
)

const noCar = "Авто не указано"

func carModel(c storage.Car) string {
	if c.AdminModel != "" {
		return c.AdminModel
	}
	return c.Model
}

func carYear(c storage.Car) string {
	if c.AdminYear != "" {
		return c.AdminYear
	}
	return c.Year
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}

// CarHeader первая строка чека: марка | модель | год.
func CarHeader(c storage.Car) string {
	h := joinNonEmpty(c.Brand, carModel(c), carYear(c))
	if h == "" {
		return noCar
	}
	return h
}

// CarTitle заголовок лида в CRM и подпись ссылки в уведомлениях.
func CarTitle(c storage.Car, clientName string) string {
	return joinNonEmpty(c.Brand, carModel(c), carYear(c), clientName)
}

// OrderSummary краткая сводка вида "Фильтр (2 шт), Колодки (4 шт)".
func OrderSummary(items []storage.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s (%d шт)", it.DisplayName(), it.Quantity))
	}
	return strings.Join(parts, ", ")
}

// OrderDraftReceipt чек заказа до выбора лидеров.
func OrderDraftReceipt(car storage.Car, items []storage.OrderItem) string {
	lines := []string{CarHeader(car)}
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("⬜ | %s | %d шт", it.DisplayName(), it.Quantity))
	}
	return strings.Join(lines, "\n")
}

func OfferSummary(items []storage.OfferItem) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		mark := "⬜"
		if it.IsLeader() {
			mark = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s | %s | %d шт", mark, it.Name, it.Quantity))
	}
	return strings.Join(lines, "\n")
}

// FinalReceipt итоговый чек по лидерам всех предложений заказа.
func FinalReceipt(car storage.Car, leaders []storage.OfferItem) string {
	lines := []string{CarHeader(car)}
	for _, it := range leaders {
		price, cur := it.FinalPrice()
		lines = append(lines, fmt.Sprintf("✅ | %s | %dшт | %s%s", it.DisplayName(), it.FinalQuantity(), price.String(), cur.Symbol()))
	}
	return strings.Join(lines, "\n")
}

// Leaders позиции-лидеры в порядке предложений и позиций.
func Leaders(offers []storage.Offer) []storage.OfferItem {
	var out []storage.OfferItem
	for _, off := range offers {
		for _, it := range off.Items {
			if it.IsLeader() {
				out = append(out, it)
			}
		}
	}
	return out
}

// RefreshReceipt пересчитывает сводку и чек заказа по текущему состоянию предложений.
func RefreshReceipt(order *storage.Order) {
	order.Summary = OrderSummary(order.Items)

	leaders := Leaders(order.Offers)
	if len(leaders) > 0 {
		order.Details = FinalReceipt(order.Car, leaders)
		return
	}
	order.Details = OrderDraftReceipt(order.Car, order.Items)
}
