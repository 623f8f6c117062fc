package bitrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"automarket/internal/storage"
)

var ErrEmptyResult = errors.New("bitrix: empty result")

// Client вызывает входящий вебхук Bitrix24 GET-запросами.
type Client struct {
	webhookURL string
	http       *http.Client
}

func New(webhookURL string, timeout time.Duration) *Client {
	if !strings.HasSuffix(webhookURL, "/") {
		webhookURL += "/"
	}
	return &Client{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: timeout},
	}
}

type response struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	const op = "crm.bitrix.call"

	u := c.webhookURL + method + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, method, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: read body: %w", op, method, err)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%s: %s: status %d: %w", op, method, resp.StatusCode, err)
	}
	if r.Error != "" || r.ErrorDescription != "" {
		msg := r.ErrorDescription
		if msg == "" {
			msg = r.Error
		}
		return nil, fmt.Errorf("%s: %s: %s", op, method, msg)
	}
	if len(r.Result) == 0 || string(r.Result) == "null" || string(r.Result) == "false" {
		return nil, fmt.Errorf("%s: %s: %w", op, method, ErrEmptyResult)
	}
	return r.Result, nil
}

func parseID(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("bitrix: unexpected id %s", string(raw))
	}
	return strconv.ParseInt(s, 10, 64)
}

// LeadTitle "модель | клиент | VIN".
func LeadTitle(order storage.Order) string {
	model := "Авто не указано"
	if !order.Car.Empty() {
		model = order.Car.Model
		if model == "" {
			model = "Модель?"
		}
	}
	client := order.ClientName
	if client == "" {
		client = "Клиент"
	}
	vin := order.VIN
	if vin == "" {
		vin = "Без VIN"
	}
	return model + " | " + client + " | " + vin
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// AddLead создаёт лид и прикладывает к нему позиции заказа.
func (c *Client) AddLead(ctx context.Context, order storage.Order) (int64, error) {
	const op = "crm.bitrix.AddLead"

	name := order.ClientName
	if name == "" {
		name = "Неизвестный"
	}

	params := url.Values{}
	params.Set("fields[TITLE]", LeadTitle(order))
	params.Set("fields[NAME]", name)
	params.Set("fields[COMMENTS]", fmt.Sprintf("Заказ: %d\nVIN: %s\nЛокация: %s", order.ID, orDash(order.VIN), orDash(order.Location)))
	params.Set("fields[STATUS_ID]", "NEW")
	params.Set("fields[OPENED]", "Y")
	if order.ClientPhone != "" {
		params.Set("fields[PHONE][0][VALUE]", order.ClientPhone)
		params.Set("fields[PHONE][0][VALUE_TYPE]", "WORK")
	}

	raw, err := c.call(ctx, "crm.lead.add", params)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	id, err := parseID(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(order.Items) == 0 {
		return id, nil
	}

	rows := url.Values{}
	rows.Set("id", strconv.FormatInt(id, 10))
	for i, it := range order.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		p := fmt.Sprintf("rows[%d]", i)
		rows.Set(p+"[PRODUCT_NAME]", it.Name)
		rows.Set(p+"[PRICE]", "0")
		rows.Set(p+"[QUANTITY]", strconv.Itoa(qty))
		rows.Set(p+"[CURRENCY_ID]", string(storage.CurrencyRUB))
		rows.Set(p+"[PRODUCT_ID]", "0")
	}

	if _, err := c.call(ctx, "crm.lead.productrows.set", rows); err != nil {
		// лид уже создан, позиции можно будет добавить вручную
		return id, fmt.Errorf("%s: lead %d: %w", op, id, err)
	}
	return id, nil
}
