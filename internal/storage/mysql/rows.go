package mysql

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"automarket/internal/storage"
)

const orderColumns = `id, vin, client_name, client_phone, location, car_brand, car_model, car_year,
	car_admin_model, car_admin_year, bitrix_id, state, closed, processed, refusal_reason, summary,
	details, version, created_at, updated_at`

type orderRow struct {
	ID            int64         `db:"id"`
	VIN           string        `db:"vin"`
	ClientName    string        `db:"client_name"`
	ClientPhone   string        `db:"client_phone"`
	Location      string        `db:"location"`
	CarBrand      string        `db:"car_brand"`
	CarModel      string        `db:"car_model"`
	CarYear       string        `db:"car_year"`
	CarAdminModel string        `db:"car_admin_model"`
	CarAdminYear  string        `db:"car_admin_year"`
	BitrixID      sql.NullInt64 `db:"bitrix_id"`
	State         string        `db:"state"`
	Closed        bool          `db:"closed"`
	Processed     bool          `db:"processed"`
	RefusalReason string        `db:"refusal_reason"`
	Summary       string        `db:"summary"`
	Details       string        `db:"details"`
	Version       int           `db:"version"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r orderRow) toOrder() storage.Order {
	o := storage.Order{
		ID:          r.ID,
		VIN:         r.VIN,
		ClientName:  r.ClientName,
		ClientPhone: r.ClientPhone,
		Location:    r.Location,
		Car: storage.Car{
			Brand:      r.CarBrand,
			Model:      r.CarModel,
			Year:       r.CarYear,
			AdminModel: r.CarAdminModel,
			AdminYear:  r.CarAdminYear,
		},
		State:         storage.OrderState(r.State),
		Closed:        r.Closed,
		Processed:     r.Processed,
		RefusalReason: r.RefusalReason,
		Summary:       r.Summary,
		Details:       r.Details,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.BitrixID.Valid {
		id := r.BitrixID.Int64
		o.BitrixID = &id
	}
	return o
}

type orderItemRow struct {
	OrderID             int64               `db:"order_id"`
	Position            int                 `db:"position"`
	Name                string              `db:"name"`
	AdminName           string              `db:"admin_name"`
	Quantity            int                 `db:"quantity"`
	AdminQuantity       sql.NullInt64       `db:"admin_quantity"`
	Comment             string              `db:"comment"`
	Category            string              `db:"category"`
	LeaderOfferID       sql.NullString      `db:"leader_offer_id"`
	LeaderPrice         decimal.NullDecimal `db:"leader_price"`
	LeaderCurrency      sql.NullString      `db:"leader_currency"`
	LeaderSupplier      sql.NullString      `db:"leader_supplier"`
	LeaderDeliveryWeeks sql.NullInt64       `db:"leader_delivery_weeks"`
}

func (r orderItemRow) toItem() storage.OrderItem {
	it := storage.OrderItem{
		Name:          r.Name,
		AdminName:     r.AdminName,
		Quantity:      r.Quantity,
		AdminQuantity: nullIntPtr(r.AdminQuantity),
		Comment:       r.Comment,
		Category:      r.Category,
	}
	if r.LeaderOfferID.Valid {
		it.Leader = &storage.LeaderChoice{
			OfferID:       r.LeaderOfferID.String,
			Status:        storage.RankLeader,
			Price:         r.LeaderPrice.Decimal,
			Currency:      storage.Currency(r.LeaderCurrency.String),
			Supplier:      r.LeaderSupplier.String,
			DeliveryWeeks: int(r.LeaderDeliveryWeeks.Int64),
		}
	}
	return it
}

const offerColumns = `id, order_id, seq, supplier_name, supplier_phone, vin, location, supplier_status,
	details, closed, created_at, updated_at`

type offerRow struct {
	ID             string    `db:"id"`
	OrderID        int64     `db:"order_id"`
	Seq            int       `db:"seq"`
	SupplierName   string    `db:"supplier_name"`
	SupplierPhone  string    `db:"supplier_phone"`
	VIN            string    `db:"vin"`
	Location       string    `db:"location"`
	SupplierStatus string    `db:"supplier_status"`
	Details        string    `db:"details"`
	Closed         bool      `db:"closed"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r offerRow) toOffer() storage.Offer {
	return storage.Offer{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Seq:            r.Seq,
		SupplierName:   r.SupplierName,
		SupplierPhone:  r.SupplierPhone,
		VIN:            r.VIN,
		Location:       r.Location,
		SupplierStatus: r.SupplierStatus,
		Details:        r.Details,
		Closed:         r.Closed,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

const offerItemColumns = `offer_id, position, name, admin_name, quantity, admin_quantity, offered_quantity,
	seller_price, seller_currency, delivery_weeks, weight, admin_price, admin_currency, admin_comment,
	delivery_rate, item_rank`

type offerItemRow struct {
	OfferID         string              `db:"offer_id"`
	Position        int                 `db:"position"`
	Name            string              `db:"name"`
	AdminName       string              `db:"admin_name"`
	Quantity        int                 `db:"quantity"`
	AdminQuantity   sql.NullInt64       `db:"admin_quantity"`
	OfferedQuantity int                 `db:"offered_quantity"`
	SellerPrice     decimal.Decimal     `db:"seller_price"`
	SellerCurrency  string              `db:"seller_currency"`
	DeliveryWeeks   int                 `db:"delivery_weeks"`
	Weight          decimal.Decimal     `db:"weight"`
	AdminPrice      decimal.NullDecimal `db:"admin_price"`
	AdminCurrency   string              `db:"admin_currency"`
	AdminComment    string              `db:"admin_comment"`
	DeliveryRate    decimal.NullDecimal `db:"delivery_rate"`
	Rank            string              `db:"item_rank"`
}

func (r offerItemRow) toItem() storage.OfferItem {
	return storage.OfferItem{
		Name:            r.Name,
		AdminName:       r.AdminName,
		Quantity:        r.Quantity,
		AdminQuantity:   nullIntPtr(r.AdminQuantity),
		OfferedQuantity: r.OfferedQuantity,
		SellerPrice:     r.SellerPrice,
		SellerCurrency:  storage.Currency(r.SellerCurrency),
		DeliveryWeeks:   r.DeliveryWeeks,
		Weight:          r.Weight,
		AdminPrice:      nullDecimalPtr(r.AdminPrice),
		AdminCurrency:   storage.Currency(r.AdminCurrency),
		AdminComment:    r.AdminComment,
		DeliveryRate:    nullDecimalPtr(r.DeliveryRate),
		Rank:            storage.ParseRank(r.Rank),
	}
}

func nullIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func intPtrArg(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullDecimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func decimalPtrArg(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}

func int64PtrArg(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
