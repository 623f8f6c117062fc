package market

import "automarket/internal/storage"

type OfferStatusKind string

const (
	OfferCollecting OfferStatusKind = "collecting"
	OfferDeclined   OfferStatusKind = "declined"
	OfferBidding    OfferStatusKind = "bidding"
	OfferWon        OfferStatusKind = "won"
	OfferLost       OfferStatusKind = "lost"
	OfferPartial    OfferStatusKind = "partial"
)

var offerStatusLabels = map[OfferStatusKind]string{
	OfferCollecting: "Сбор офферов",
	OfferDeclined:   "ОТКАЗ",
	OfferBidding:    "Идут торги",
	OfferWon:        "ВЫИГРАЛ",
	OfferLost:       "ПРОИГРАЛ",
	OfferPartial:    "ЧАСТИЧНО",
}

func (k OfferStatusKind) Label() string {
	return offerStatusLabels[k]
}

// OfferStatus статус "моего предложения" для интерфейсов покупателя и продавца.
func OfferStatus(order *storage.Order, my *storage.Offer) OfferStatusKind {
	if my == nil {
		return OfferCollecting
	}
	if AllDeclined(my.Items) {
		return OfferDeclined
	}
	if order.State == storage.StateProcessing && !order.Processed && !order.Closed {
		return OfferBidding
	}

	// отказные позиции тоже считаются: выигрыш не по всем позициям это ЧАСТИЧНО
	leaders := 0
	for _, it := range my.Items {
		if it.IsLeader() {
			leaders++
		}
	}
	switch {
	case leaders == 0:
		return OfferLost
	case leaders >= len(my.Items):
		return OfferWon
	default:
		return OfferPartial
	}
}

// FindOffer последнее предложение поставщика по заказу.
func FindOffer(order *storage.Order, supplier string) *storage.Offer {
	key := NormalizeName(supplier)
	var found *storage.Offer
	for i := range order.Offers {
		if NormalizeName(order.Offers[i].SupplierName) == key {
			found = &order.Offers[i]
		}
	}
	return found
}

// SupplierView статус заказа в колонке поставщика.
func SupplierView(order *storage.Order) string {
	switch {
	case order.Closed || order.Processed || order.State != storage.StateProcessing:
		return storage.SupplierFinished
	case len(order.Offers) == 0:
		return storage.SupplierCollecting
	default:
		return storage.SupplierBidding
	}
}

type OrderView struct {
	*storage.Order
	Status         string `json:"status"`
	StatusAdmin    string `json:"statusAdmin"`
	StatusClient   string `json:"statusClient"`
	StatusSupplier string `json:"statusSupplier"`
	MyOfferStatus  string `json:"myOfferStatus,omitempty"`
	MyOfferKind    string `json:"myOfferKind,omitempty"`
}

// ViewFor строит представление заказа для роли. Для поставщика добавляется статус его предложения,
// а чужие предложения скрываются.
func ViewFor(order storage.Order, role storage.Role, supplier string) OrderView {
	v := OrderView{
		Status:         order.Status(),
		StatusAdmin:    order.State.AdminLabel(),
		StatusClient:   order.State.ClientLabel(),
		StatusSupplier: SupplierView(&order),
	}

	switch role {
	case storage.RoleSupplier:
		my := FindOffer(&order, supplier)
		kind := OfferStatus(&order, my)
		v.MyOfferKind = string(kind)
		v.MyOfferStatus = kind.Label()
		if my != nil {
			order.Offers = []storage.Offer{*my}
		} else {
			order.Offers = nil
		}
		order.ClientPhone = ""
	case storage.RoleClient:
		order.Offers = nil
	}

	v.Order = &order
	return v
}
