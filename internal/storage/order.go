package storage

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState единое состояние заказа, из которого считаются статусы для клиента, админа и поставщика.
type OrderState string

const (
	StateProcessing      OrderState = "В обработке"
	StateQuoteSent       OrderState = "КП отправлено"
	StateReadyToBuy      OrderState = "Готов купить"
	StateAwaitingPayment OrderState = "Ожидает оплаты"
	StateInTransit       OrderState = "В пути"
	StateCompleted       OrderState = "Выполнен"
	StateAnnulled        OrderState = "Аннулирован"
	StateRefused         OrderState = "Отказ"
)

var orderStates = []OrderState{
	StateProcessing, StateQuoteSent, StateReadyToBuy, StateAwaitingPayment,
	StateInTransit, StateCompleted, StateAnnulled, StateRefused,
}

// ParseOrderState принимает как админский, так и клиентский вариант подписи.
func ParseOrderState(s string) (OrderState, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "КП готово":
		return StateQuoteSent, true
	case "Подтверждение от поставщика":
		return StateReadyToBuy, true
	}
	for _, st := range orderStates {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s OrderState) AdminLabel() string {
	return string(s)
}

func (s OrderState) ClientLabel() string {
	switch s {
	case StateQuoteSent:
		return "КП готово"
	case StateReadyToBuy:
		return "Подтверждение от поставщика"
	default:
		return string(s)
	}
}

// Terminal состояния после которых торги по заказу невозможны.
func (s OrderState) Terminal() bool {
	return s == StateAnnulled || s == StateRefused || s == StateCompleted
}

const (
	StatusOpen   = "ОТКРЫТ"
	StatusClosed = "ЗАКРЫТ"
)

// Статусы поставщика.
const (
	SupplierCollecting = "Сбор предложений"
	SupplierBidding    = "Идут торги"
	SupplierWon        = "Выиграл"
	SupplierLost       = "Проиграл"
	SupplierPartial    = "Частично выиграл"
	SupplierFinished   = "Торги завершены"
	SupplierDeclined   = "Отказ"
)

type Car struct {
	Brand      string `json:"brand,omitempty"`
	Model      string `json:"model,omitempty"`
	Year       string `json:"year,omitempty"`
	AdminModel string `json:"AdminModel,omitempty"`
	AdminYear  string `json:"AdminYear,omitempty"`
}

func (c Car) Empty() bool {
	return c == Car{}
}

type Order struct {
	ID            int64       `json:"id"`
	VIN           string      `json:"vin"`
	ClientName    string      `json:"clientName"`
	ClientPhone   string      `json:"clientPhone"`
	Location      string      `json:"location"`
	Car           Car         `json:"car"`
	BitrixID      *int64      `json:"bitrixId,omitempty"`
	State         OrderState  `json:"state"`
	Closed        bool        `json:"closed"`
	Processed     bool        `json:"processed"`
	RefusalReason string      `json:"refusalReason,omitempty"`
	Summary       string      `json:"summary"`
	Details       string      `json:"details"`
	Items         []OrderItem `json:"items"`
	Offers        []Offer     `json:"offers,omitempty"`
	Version       int         `json:"version"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func (o *Order) Status() string {
	if o.Closed {
		return StatusClosed
	}
	return StatusOpen
}

type OrderItem struct {
	Name          string        `json:"name"`
	AdminName     string        `json:"AdminName,omitempty"`
	Quantity      int           `json:"quantity"`
	AdminQuantity *int          `json:"AdminQuantity,omitempty"`
	Comment       string        `json:"comment,omitempty"`
	Category      string        `json:"category,omitempty"`
	Car           *Car          `json:"car,omitempty"`
	Leader        *LeaderChoice `json:"AdminCHOOSErankLeader,omitempty"`
}

func (i OrderItem) DisplayName() string {
	if i.AdminName != "" {
		return i.AdminName
	}
	return i.Name
}

func (i OrderItem) FinalQuantity() int {
	if i.AdminQuantity != nil && *i.AdminQuantity > 0 {
		return *i.AdminQuantity
	}
	return i.Quantity
}

// LeaderChoice снимок выигравшей позиции, хранится на позиции заказа.
type LeaderChoice struct {
	OfferID       string          `json:"offerId"`
	Status        Rank            `json:"status"`
	Price         decimal.Decimal `json:"price"`
	Currency      Currency        `json:"currency"`
	Supplier      string          `json:"supplier"`
	DeliveryWeeks int             `json:"deliveryWeeks"`
}

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleClient   Role = "client"
	RoleSupplier Role = "supplier"
)

type OrderFilter struct {
	Role          Role
	ClientPhone   string
	Supplier      string
	// OwnOffersOnly только заказы, где у Supplier есть предложение.
	OwnOffersOnly bool
	OnlyOpen      bool
	Search        string
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}
