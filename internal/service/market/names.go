package market

import (
	"strings"

	"automarket/internal/storage"
)

// NormalizeName ключ сопоставления позиций между предложениями одного заказа.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LeaderKey ключ позиции лидера: под ним в заказе может быть только один лидер.
func LeaderKey(item storage.OfferItem) string {
	return NormalizeName(item.DisplayName())
}

func offerItemMatches(item storage.OfferItem, target string) bool {
	if target == "" {
		return false
	}
	return NormalizeName(item.DisplayName()) == target || NormalizeName(item.Name) == target
}

func orderItemMatches(item storage.OrderItem, key string) bool {
	return NormalizeName(item.DisplayName()) == key || NormalizeName(item.Name) == key
}
