package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Rank string

const (
	RankLeader  Rank = "ЛИДЕР"
	RankReserve Rank = "РЕЗЕРВ"

	rankLeaderLegacy = "LEADER"
)

// ParseRank приводит старое LEADER к ЛИДЕР, всё неизвестное считается резервом.
func ParseRank(s string) Rank {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RankLeader), rankLeaderLegacy:
		return RankLeader
	default:
		return RankReserve
	}
}

func (r *Rank) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("rank: %w", err)
	}
	*r = ParseRank(s)
	return nil
}

type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyCNY Currency = "CNY"
)

func (c Currency) Symbol() string {
	switch c {
	case CurrencyUSD:
		return "$"
	case CurrencyCNY:
		return "¥"
	default:
		return "₽"
	}
}

func (c Currency) Valid() bool {
	switch c {
	case CurrencyRUB, CurrencyUSD, CurrencyCNY:
		return true
	}
	return false
}

type Offer struct {
	ID             string      `json:"id"`
	OrderID        int64       `json:"parentId"`
	Seq            int         `json:"seq"`
	SupplierName   string      `json:"supplierName"`
	SupplierPhone  string      `json:"supplierPhone,omitempty"`
	VIN            string      `json:"vin"`
	Location       string      `json:"location"`
	SupplierStatus string      `json:"supplierStatus"`
	Details        string      `json:"details"`
	Closed         bool        `json:"closed"`
	Items          []OfferItem `json:"items"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

func OfferID(orderID int64, seq int) string {
	return fmt.Sprintf("%d-%d", orderID, seq)
}

func (o *Offer) Status() string {
	if o.Closed {
		return StatusClosed
	}
	return StatusOpen
}

type OfferItem struct {
	Name          string `json:"name"`
	AdminName     string `json:"AdminName,omitempty"`
	Quantity      int    `json:"quantity"`
	AdminQuantity *int   `json:"AdminQuantity,omitempty"`

	OfferedQuantity int             `json:"offeredQuantity"`
	SellerPrice     decimal.Decimal `json:"sellerPrice"`
	SellerCurrency  Currency        `json:"sellerCurrency,omitempty"`
	DeliveryWeeks   int             `json:"deliveryWeeks"`
	Weight          decimal.Decimal `json:"weight"`

	AdminPrice    *decimal.Decimal `json:"adminPrice,omitempty"`
	AdminCurrency Currency         `json:"adminCurrency,omitempty"`
	AdminComment  string           `json:"adminComment,omitempty"`
	DeliveryRate  *decimal.Decimal `json:"deliveryRate,omitempty"`

	Rank Rank `json:"rank"`
}

func (i OfferItem) DisplayName() string {
	if i.AdminName != "" {
		return i.AdminName
	}
	return i.Name
}

func (i OfferItem) IsLeader() bool {
	return i.Rank == RankLeader
}

// FinalPrice цена админа, если задана, иначе цена продавца. Валюта берётся от той цены, что использована.
func (i OfferItem) FinalPrice() (decimal.Decimal, Currency) {
	if i.AdminPrice != nil && i.AdminPrice.IsPositive() {
		cur := i.AdminCurrency
		if cur == "" {
			cur = i.SellerCurrency
		}
		return *i.AdminPrice, cur
	}
	return i.SellerPrice, i.SellerCurrency
}

func (i OfferItem) FinalQuantity() int {
	if i.AdminQuantity != nil && *i.AdminQuantity > 0 {
		return *i.AdminQuantity
	}
	if i.Quantity > 0 {
		return i.Quantity
	}
	return i.OfferedQuantity
}
