package market

import (
	"fmt"
	"strings"

	"automarket/internal/storage"
)

// OrderInput данные нового заказа от клиента или оператора.
type OrderInput struct {
	VIN         string              `json:"vin"`
	ClientName  string              `json:"clientName" validate:"required"`
	ClientPhone string              `json:"clientPhone"`
	Location    string              `json:"location"`
	Car         *storage.Car        `json:"car,omitempty"`
	Items       []storage.OrderItem `json:"items" validate:"required,min=1"`
}

// OfferInput предложение поставщика по заказу.
type OfferInput struct {
	OrderID       int64               `json:"parentId" validate:"required,gt=0"`
	SupplierName  string              `json:"supplierName" validate:"required"`
	SupplierPhone string              `json:"supplierPhone"`
	VIN           string              `json:"vin"`
	Location      string              `json:"location"`
	Items         []storage.OfferItem `json:"items" validate:"required,min=1"`
}

func ValidateOrder(in OrderInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: позиция %d без названия", ErrValidation, i+1)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: %s: количество должно быть больше нуля", ErrValidation, it.Name)
		}
	}
	return nil
}

func ValidateOffer(in OfferInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	return ValidateOfferItems(in.Items)
}

func ValidateRank(cmd RankCommand) error {
	if err := validateStruct(cmd); err != nil {
		return err
	}
	if cmd.ActionType != RankPromote && cmd.ActionType != RankReset {
		return fmt.Errorf("%w: неизвестное действие %q", ErrValidation, cmd.ActionType)
	}
	if cmd.AdminCurrency != "" && !cmd.AdminCurrency.Valid() {
		return fmt.Errorf("%w: неизвестная валюта %s", ErrValidation, cmd.AdminCurrency)
	}
	return nil
}

// NewOrder заказ в начальном состоянии. Машина берётся из заявки или с первой позиции,
// как её присылает старый фронт.
func NewOrder(in OrderInput) storage.Order {
	o := storage.Order{
		VIN:         strings.TrimSpace(in.VIN),
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientPhone: strings.TrimSpace(in.ClientPhone),
		Location:    in.Location,
		State:       storage.StateProcessing,
		Items:       make([]storage.OrderItem, len(in.Items)),
	}
	switch {
	case in.Car != nil:
		o.Car = *in.Car
	case len(in.Items) > 0 && in.Items[0].Car != nil:
		o.Car = *in.Items[0].Car
	}
	for i, it := range in.Items {
		it.Car = nil
		it.Leader = nil
		it.Name = strings.TrimSpace(it.Name)
		o.Items[i] = it
	}
	RefreshReceipt(&o)
	return o
}

// NewOffer предложение в начальном состоянии: все позиции в резерве.
// Полный отказ получает отдельный статус поставщика.
func NewOffer(in OfferInput) storage.Offer {
	off := storage.Offer{
		OrderID:        in.OrderID,
		SupplierName:   strings.TrimSpace(in.SupplierName),
		SupplierPhone:  in.SupplierPhone,
		VIN:            in.VIN,
		Location:       in.Location,
		SupplierStatus: storage.SupplierBidding,
		Items:          make([]storage.OfferItem, len(in.Items)),
	}
	for i, it := range in.Items {
		it.Rank = storage.RankReserve
		if it.SellerCurrency == "" && it.OfferedQuantity > 0 {
			it.SellerCurrency = storage.CurrencyRUB
		}
		off.Items[i] = it
	}
	if AllDeclined(off.Items) {
		off.SupplierStatus = storage.SupplierDeclined
	}
	off.Details = OfferSummary(off.Items)
	return off
}

// ApplyItemEdits заменяет позиции заказа правкой админа и переносит
// переименования и количества в позиции предложений с тем же исходным названием.
// Номер лида и снимки лидеров не теряются. Если переименование сводит
// двух лидеров под одно имя, правка отклоняется.
func ApplyItemEdits(order *storage.Order, items []storage.OrderItem) error {
	type override struct {
		adminName     string
		adminQuantity *int
	}
	overrides := make(map[string]override, len(items))

	next := make([]storage.OrderItem, len(items))
	for i, it := range items {
		if i == 0 && it.Car != nil {
			order.Car = *it.Car
		}
		it.Car = nil
		it.Leader = nil
		next[i] = it
		if key := NormalizeName(it.Name); key != "" {
			overrides[key] = override{adminName: it.AdminName, adminQuantity: it.AdminQuantity}
		}
	}
	order.Items = next

	for i := range order.Offers {
		off := &order.Offers[i]
		changed := false
		for j := range off.Items {
			ov, ok := overrides[NormalizeName(off.Items[j].Name)]
			if !ok {
				continue
			}
			if ov.adminName != "" && off.Items[j].AdminName != ov.adminName {
				off.Items[j].AdminName = ov.adminName
				changed = true
			}
			if ov.adminQuantity != nil && *ov.adminQuantity > 0 {
				q := *ov.adminQuantity
				off.Items[j].AdminQuantity = &q
				changed = true
			}
		}
		if changed {
			off.Details = OfferSummary(off.Items)
		}
	}

	if conflicts := LeaderConflicts(order); len(conflicts) > 0 {
		return fmt.Errorf("%w: несколько лидеров на позицию: %s", ErrValidation, strings.Join(conflicts, ", "))
	}

	RefreshLeaderSnapshots(order)
	RefreshReceipt(order)
	return nil
}
