package action

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"automarket/internal/service/market"
	"automarket/internal/storage"
)

const (
	ActionCreate          = "create"
	ActionFormQuote       = "form_cp"
	ActionConfirmPurchase = "confirm_purchase"
	ActionRefuseOrder     = "refuse_order"
	ActionWorkflowStatus  = "update_workflow_status"
	ActionManualStatus    = "update_manual_status"
	ActionUpdateItems     = "update_json"
	ActionUpdateRank      = "update_rank"
	ActionCloseOrder      = "close_order"

	TypeOrder = "ORDER"
	TypeOffer = "OFFER"
)

// ID номер заказа. Фронт присылает его то строкой, то числом.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(strings.Trim(string(data), `"`))
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("некорректный номер заказа %s", data)
	}
	*id = ID(n)
	return nil
}

// Request тело POST /exec. Поля update_rank лежат на верхнем уровне.
type Request struct {
	Action         string              `json:"action"`
	Order          *OrderPayload       `json:"order,omitempty"`
	OrderID        ID                  `json:"orderId"`
	Source         string              `json:"source,omitempty"`
	Reason         string              `json:"reason,omitempty"`
	NewStatus      string              `json:"newStatus,omitempty"`
	Status         string              `json:"status,omitempty"`
	Items          []storage.OrderItem `json:"items,omitempty"`
	Version        int                 `json:"version,omitempty"`
	IdempotencyKey string              `json:"idempotencyKey,omitempty"`

	market.RankCommand
}

// OrderPayload заказ или предложение в action=create. Позиции у них разные,
// поэтому разбираются после того, как известен тип.
type OrderPayload struct {
	Type          string          `json:"type"`
	ParentID      ID              `json:"parentId"`
	VIN           string          `json:"vin"`
	ClientName    string          `json:"clientName"`
	ClientPhone   string          `json:"clientPhone"`
	SupplierName  string          `json:"supplierName"`
	SupplierPhone string          `json:"supplierPhone"`
	Location      string          `json:"location"`
	Car           *storage.Car    `json:"car,omitempty"`
	Items         json.RawMessage `json:"items"`
}

func (p *OrderPayload) OrderInput() (market.OrderInput, error) {
	in := market.OrderInput{
		VIN:         p.VIN,
		ClientName:  p.ClientName,
		ClientPhone: p.ClientPhone,
		Location:    p.Location,
		Car:         p.Car,
	}
	if err := decodeItems(p.Items, &in.Items); err != nil {
		return market.OrderInput{}, err
	}
	return in, nil
}

// OfferInput у предложений старого фронта имя поставщика приходит в clientName.
func (p *OrderPayload) OfferInput() (market.OfferInput, error) {
	in := market.OfferInput{
		OrderID:       int64(p.ParentID),
		SupplierName:  p.SupplierName,
		SupplierPhone: p.SupplierPhone,
		VIN:           p.VIN,
		Location:      p.Location,
	}
	if in.SupplierName == "" {
		in.SupplierName = p.ClientName
	}
	if in.SupplierPhone == "" {
		in.SupplierPhone = p.ClientPhone
	}
	if err := decodeItems(p.Items, &in.Items); err != nil {
		return market.OfferInput{}, err
	}
	return in, nil
}

func decodeItems(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: позиции: %v", market.ErrValidation, err)
	}
	return nil
}

type Response struct {
	Status  string `json:"status,omitempty"`
	OrderID string `json:"orderId,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// telegramShape признаки апдейта Telegram, который прилетел на тот же адрес.
type telegramShape struct {
	Message       json.RawMessage `json:"message"`
	CallbackQuery json.RawMessage `json:"callback_query"`
}

func (p telegramShape) isUpdate() bool {
	return len(p.Message) > 0 || len(p.CallbackQuery) > 0
}
