package market

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"automarket/internal/storage"
)

type RankAction string

const (
	RankPromote RankAction = ""
	RankReset   RankAction = "RESET"
)

var (
	ErrItemNotFound   = errors.New("item not found in offer")
	ErrItemNotOffered = errors.New("item was declined by supplier")
)

type RankCommand struct {
	DetailName    string           `json:"detailName" validate:"required"`
	LeadOfferID   string           `json:"leadOfferId" validate:"required"`
	AdminPrice    *decimal.Decimal `json:"adminPrice,omitempty"`
	AdminCurrency storage.Currency `json:"adminCurrency,omitempty"`
	AdminComment  string           `json:"adminComment,omitempty"`
	DeliveryRate  *decimal.Decimal `json:"deliveryRate,omitempty"`
	ActionType    RankAction       `json:"actionType,omitempty"`
}

// ApplyRank выбирает лидера по позиции среди всех предложений заказа.
// RESET снимает лидера с позиции во всех предложениях. Иначе позиция
// предложения LeadOfferID становится лидером, а совпадающие позиции
// остальных предложений уходят в резерв. После изменения пересчитываются
// чек заказа, снимки лидеров и статусы поставщиков.
func ApplyRank(order *storage.Order, cmd RankCommand) error {
	const op = "market.ApplyRank"

	lead := -1
	for i := range order.Offers {
		if order.Offers[i].ID == cmd.LeadOfferID {
			lead = i
			break
		}
	}
	if lead < 0 {
		return fmt.Errorf("%s: %s: %w", op, cmd.LeadOfferID, storage.ErrOfferNotFound)
	}

	target := NormalizeName(cmd.DetailName)

	if cmd.ActionType == RankReset {
		for i := range order.Offers {
			demoteMatching(&order.Offers[i], target, -1)
		}
	} else {
		pos := -1
		for j, it := range order.Offers[lead].Items {
			if offerItemMatches(it, target) {
				pos = j
				break
			}
		}
		if pos < 0 {
			return fmt.Errorf("%s: %q: %w", op, cmd.DetailName, ErrItemNotFound)
		}
		if order.Offers[lead].Items[pos].OfferedQuantity <= 0 {
			return fmt.Errorf("%s: %q: %w", op, cmd.DetailName, ErrItemNotOffered)
		}

		// позиция могла найтись по имени продавца, а лидер уникален по имени админа
		key := LeaderKey(order.Offers[lead].Items[pos])
		for i := range order.Offers {
			skip := -1
			if i == lead {
				skip = pos
			}
			demoteMatching(&order.Offers[i], target, skip)
			demoteLeaderKey(&order.Offers[i], key, skip)
		}
		promote(&order.Offers[lead].Items[pos], cmd)
	}

	for i := range order.Offers {
		order.Offers[i].Details = OfferSummary(order.Offers[i].Items)
	}

	RefreshLeaderSnapshots(order)
	RefreshReceipt(order)
	UpdateSupplierStatuses(order)

	return nil
}

func demoteMatching(offer *storage.Offer, target string, skip int) {
	for j := range offer.Items {
		if j == skip {
			continue
		}
		if offer.Items[j].IsLeader() && offerItemMatches(offer.Items[j], target) {
			offer.Items[j].Rank = storage.RankReserve
		}
	}
}

func demoteLeaderKey(offer *storage.Offer, key string, skip int) {
	for j := range offer.Items {
		if j != skip && offer.Items[j].IsLeader() && LeaderKey(offer.Items[j]) == key {
			offer.Items[j].Rank = storage.RankReserve
		}
	}
}

func promote(item *storage.OfferItem, cmd RankCommand) {
	item.Rank = storage.RankLeader
	if cmd.AdminPrice != nil {
		p := *cmd.AdminPrice
		item.AdminPrice = &p
	}
	if cmd.AdminCurrency != "" {
		item.AdminCurrency = cmd.AdminCurrency
	}
	if cmd.AdminComment != "" {
		item.AdminComment = cmd.AdminComment
	}
	if cmd.DeliveryRate != nil {
		r := *cmd.DeliveryRate
		item.DeliveryRate = &r
	}
}

// RefreshLeaderSnapshots проставляет на позиции заказа данные выигравшего предложения.
func RefreshLeaderSnapshots(order *storage.Order) {
	type winner struct {
		offer *storage.Offer
		item  storage.OfferItem
	}
	winners := make(map[string]winner)
	for i := range order.Offers {
		off := &order.Offers[i]
		for _, it := range off.Items {
			if !it.IsLeader() {
				continue
			}
			w := winner{offer: off, item: it}
			winners[NormalizeName(it.DisplayName())] = w
			if _, ok := winners[NormalizeName(it.Name)]; !ok {
				winners[NormalizeName(it.Name)] = w
			}
		}
	}

	for i := range order.Items {
		oi := &order.Items[i]
		w, ok := winners[NormalizeName(oi.DisplayName())]
		if !ok {
			w, ok = winners[NormalizeName(oi.Name)]
		}
		if !ok {
			oi.Leader = nil
			continue
		}
		price, cur := w.item.FinalPrice()
		if cur == "" {
			cur = storage.CurrencyRUB
		}
		oi.Leader = &storage.LeaderChoice{
			OfferID:       w.offer.ID,
			Status:        storage.RankLeader,
			Price:         price,
			Currency:      cur,
			Supplier:      w.offer.SupplierName,
			DeliveryWeeks: w.item.DeliveryWeeks,
		}
	}
}

// SupplierOfferStatus статус предложения для поставщика по доле выигранных позиций.
func SupplierOfferStatus(offer storage.Offer) string {
	if AllDeclined(offer.Items) {
		return storage.SupplierDeclined
	}
	total, leaders := len(offer.Items), 0
	for _, it := range offer.Items {
		if it.IsLeader() {
			leaders++
		}
	}
	switch {
	case total > 0 && leaders == total:
		return storage.SupplierWon
	case leaders > 0:
		return storage.SupplierPartial
	case total > 0:
		return storage.SupplierLost
	default:
		return storage.SupplierBidding
	}
}

func UpdateSupplierStatuses(order *storage.Order) {
	for i := range order.Offers {
		order.Offers[i].SupplierStatus = SupplierOfferStatus(order.Offers[i])
	}
}

// LeaderConflicts имена позиций, у которых больше одного лидера среди предложений заказа.
func LeaderConflicts(order *storage.Order) []string {
	seen := make(map[string]int)
	var out []string
	for _, off := range order.Offers {
		for _, it := range off.Items {
			if !it.IsLeader() {
				continue
			}
			key := LeaderKey(it)
			seen[key]++
			if seen[key] == 2 {
				out = append(out, key)
			}
		}
	}
	return out
}
