package sheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"automarket/internal/service/market"
	"automarket/internal/storage"
)

const (
	TypeOrder = "ORDER"
	TypeOffer = "OFFER"

	// maxOrderID номера больше считаются мусором (даты, телефоны), а не номерами заказов.
	maxOrderID = 1_000_000

	dateLayout = "02.01.2006 15:04"
)

var ErrMalformedItems = errors.New("malformed items json")

// Row плоская строка заказа или предложения, как её отдаёт getData.
type Row struct {
	ID             string `json:"id"`
	ParentID       string `json:"parentId"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	VIN            string `json:"vin"`
	ClientName     string `json:"clientName"`
	ClientPhone    string `json:"clientPhone"`
	Summary        string `json:"summary"`
	JSON           string `json:"json"`
	Rank           string `json:"rank"`
	CreatedAt      string `json:"createdAt"`
	Location       string `json:"location"`
	StatusSupplier string `json:"statusSupplier"`
	StatusClient   string `json:"statusClient"`
	StatusAdmin    string `json:"statusAdmin"`
}

// DecodeRows читает строки листа через карту заголовков, строки без ID пропускаются.
func DecodeRows(values [][]any) []Row {
	if len(values) < 2 {
		return nil
	}
	cols := ColumnMap(values[0])

	rows := make([]Row, 0, len(values)-1)
	for _, v := range values[1:] {
		r := Row{
			ID:             cols.Value(v, ColID),
			ParentID:       cols.Value(v, ColParentID),
			Type:           cols.Value(v, ColType),
			Status:         cols.Value(v, ColStatus),
			VIN:            cols.Value(v, ColVIN),
			ClientName:     cols.Value(v, ColName),
			ClientPhone:    cols.Value(v, ColPhone),
			Summary:        cols.Value(v, ColSummary),
			JSON:           cols.Value(v, ColJSON),
			Rank:           cols.Value(v, ColDetails),
			CreatedAt:      cols.Value(v, ColDate),
			Location:       cols.Value(v, ColLocation),
			StatusSupplier: cols.Value(v, ColStatusSupplier),
			StatusClient:   cols.Value(v, ColStatusClient),
			StatusAdmin:    cols.Value(v, ColStatusAdmin),
		}
		if r.ID == "" {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// EncodeRows строки листа вместе с заголовком.
func EncodeRows(rows []Row) [][]any {
	out := make([][]any, 0, len(rows)+1)
	header := make([]any, len(MarketDataHeaders))
	for i, h := range MarketDataHeaders {
		header[i] = h
	}
	out = append(out, header)

	for _, r := range rows {
		out = append(out, []any{
			r.ID, r.ParentID, r.Type, r.Status, r.VIN, r.ClientName, r.ClientPhone, r.Summary,
			r.JSON, r.Rank, r.CreatedAt, r.Location, r.StatusSupplier, r.StatusClient, r.StatusAdmin,
		})
	}
	return out
}

func parseNumericID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int64(f), true
	}
	return 0, false
}

// NextID следующий номер заказа: максимум числовых ID (< 1 000 000) плюс один.
func NextID(values [][]any) int64 {
	if len(values) == 0 {
		return 1
	}
	idx := ColumnMap(values[0]).Index(ColID)
	if idx == 0 {
		return 1
	}

	var max int64
	for _, row := range values[1:] {
		if idx > len(row) {
			continue
		}
		id, ok := parseNumericID(CellString(row[idx-1]))
		if !ok || id >= maxOrderID {
			continue
		}
		if id > max {
			max = id
		}
	}
	return max + 1
}

// legacyOrderItem позиция заказа в старом формате: номер лида и причина отказа лежат на первой позиции.
type legacyOrderItem struct {
	storage.OrderItem
	Rank          storage.Rank `json:"rank,omitempty"`
	BitrixID      *int64       `json:"bitrixId,omitempty"`
	RefusalReason string       `json:"refusalReason,omitempty"`
}

func orderItemsJSON(o storage.Order) (string, error) {
	items := make([]legacyOrderItem, len(o.Items))
	for i, it := range o.Items {
		if it.Car == nil && !o.Car.Empty() {
			car := o.Car
			it.Car = &car
		}
		items[i] = legacyOrderItem{OrderItem: it, Rank: storage.RankReserve}
		if it.Leader != nil {
			items[i].Rank = storage.RankLeader
		}
	}
	if len(items) > 0 {
		items[0].BitrixID = o.BitrixID
		items[0].RefusalReason = o.RefusalReason
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// FlattenOrders строки для getData: заказ, за ним блок его предложений.
func FlattenOrders(orders []storage.Order) ([]Row, error) {
	const op = "sheet.FlattenOrders"

	rows := make([]Row, 0, len(orders)*2)
	for _, o := range orders {
		itemsJSON, err := orderItemsJSON(o)
		if err != nil {
			return nil, fmt.Errorf("%s: order %d: %w", op, o.ID, err)
		}
		rows = append(rows, Row{
			ID:             strconv.FormatInt(o.ID, 10),
			Type:           TypeOrder,
			Status:         o.Status(),
			VIN:            o.VIN,
			ClientName:     o.ClientName,
			ClientPhone:    o.ClientPhone,
			Summary:        o.Summary,
			JSON:           itemsJSON,
			Rank:           o.Details,
			CreatedAt:      formatDate(o.CreatedAt),
			Location:       o.Location,
			StatusSupplier: market.SupplierView(&o),
			StatusClient:   o.State.ClientLabel(),
			StatusAdmin:    o.State.AdminLabel(),
		})

		for _, off := range o.Offers {
			data, err := json.Marshal(off.Items)
			if err != nil {
				return nil, fmt.Errorf("%s: offer %s: %w", op, off.ID, err)
			}
			rows = append(rows, Row{
				ID:             off.ID,
				ParentID:       strconv.FormatInt(o.ID, 10),
				Type:           TypeOffer,
				Status:         off.Status(),
				VIN:            off.VIN,
				ClientName:     off.SupplierName,
				ClientPhone:    off.SupplierPhone,
				Summary:        "Предложение",
				JSON:           string(data),
				Rank:           off.Details,
				CreatedAt:      formatDate(off.CreatedAt),
				Location:       off.Location,
				StatusSupplier: off.SupplierStatus,
			})
		}
	}
	return rows, nil
}

func parseDate(s string) time.Time {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	s = strings.ReplaceAll(s, ", ", " ")
	for _, layout := range []string{dateLayout, "02.01.2006 15:04:05", "02.01.2006", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ToOrders собирает заказы с предложениями из строк листа. Строки с битым JSON
// не теряются молча: они возвращаются в списке ошибок.
func ToOrders(rows []Row) ([]storage.Order, []error) {
	var (
		orders []storage.Order
		errs   []error
		index  = make(map[int64]int)
	)

	for _, r := range rows {
		if !strings.EqualFold(r.Type, TypeOrder) {
			continue
		}
		id, ok := parseNumericID(r.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("row %q: non numeric order id", r.ID))
			continue
		}
		var items []legacyOrderItem
		if r.JSON != "" {
			if err := json.Unmarshal([]byte(r.JSON), &items); err != nil {
				errs = append(errs, fmt.Errorf("order %d: %w: %v", id, ErrMalformedItems, err))
				continue
			}
		}

		state, ok := storage.ParseOrderState(r.StatusAdmin)
		if !ok {
			state = storage.StateProcessing
		}
		o := storage.Order{
			ID:          id,
			VIN:         r.VIN,
			ClientName:  r.ClientName,
			ClientPhone: r.ClientPhone,
			Location:    r.Location,
			State:       state,
			Closed:      strings.EqualFold(r.Status, storage.StatusClosed),
			Processed:   state != storage.StateProcessing,
			Summary:     r.Summary,
			Details:     r.Rank,
			CreatedAt:   parseDate(r.CreatedAt),
		}
		for i, it := range items {
			if i == 0 {
				o.BitrixID = it.BitrixID
				o.RefusalReason = it.RefusalReason
				if it.Car != nil {
					o.Car = *it.Car
				}
			}
			it.OrderItem.Car = nil
			o.Items = append(o.Items, it.OrderItem)
		}
		index[id] = len(orders)
		orders = append(orders, o)
	}

	for _, r := range rows {
		if !strings.EqualFold(r.Type, TypeOffer) {
			continue
		}
		parentID, ok := parseNumericID(r.ParentID)
		pos, found := index[parentID]
		if !ok || !found {
			errs = append(errs, fmt.Errorf("offer %q: unknown parent %q", r.ID, r.ParentID))
			continue
		}
		seq := 0
		if i := strings.LastIndex(r.ID, "-"); i >= 0 {
			seq, _ = strconv.Atoi(r.ID[i+1:])
		}
		if seq <= 0 {
			seq = len(orders[pos].Offers) + 1
		}

		var items []storage.OfferItem
		if r.JSON != "" {
			if err := json.Unmarshal([]byte(r.JSON), &items); err != nil {
				errs = append(errs, fmt.Errorf("offer %s: %w: %v", r.ID, ErrMalformedItems, err))
				continue
			}
		}

		off := storage.Offer{
			ID:             storage.OfferID(parentID, seq),
			OrderID:        parentID,
			Seq:            seq,
			SupplierName:   r.ClientName,
			SupplierPhone:  r.ClientPhone,
			VIN:            r.VIN,
			Location:       r.Location,
			SupplierStatus: r.StatusSupplier,
			Closed:         strings.EqualFold(r.Status, storage.StatusClosed),
			Items:          items,
			CreatedAt:      parseDate(r.CreatedAt),
		}
		if off.SupplierStatus == "" {
			off.SupplierStatus = storage.SupplierBidding
		}
		off.Details = market.OfferSummary(items)
		orders[pos].Offers = append(orders[pos].Offers, off)
	}

	for i := range orders {
		if len(market.LeaderConflicts(&orders[i])) > 0 {
			errs = append(errs, fmt.Errorf("order %d: several leaders for one item, ranks reset", orders[i].ID))
			for j := range orders[i].Offers {
				for k := range orders[i].Offers[j].Items {
					orders[i].Offers[j].Items[k].Rank = storage.RankReserve
				}
			}
		}
		market.RefreshLeaderSnapshots(&orders[i])
	}

	return orders, errs
}

func DecodeSubscribers(values [][]any) []storage.Subscriber {
	if len(values) < 2 {
		return nil
	}
	cols := ColumnMap(values[0])

	var subs []storage.Subscriber
	for _, row := range values[1:] {
		chatID, ok := parseNumericID(cols.Value(row, "ChatID"))
		if !ok {
			continue
		}
		subs = append(subs, storage.Subscriber{
			ChatID:       chatID,
			Username:     cols.Value(row, "Username"),
			SubscribedAt: parseDate(cols.Value(row, "Date")),
		})
	}
	return subs
}

func EncodeSubscribers(subs []storage.Subscriber) [][]any {
	out := [][]any{{SubscribersHeaders[0], SubscribersHeaders[1], SubscribersHeaders[2]}}
	for _, s := range subs {
		out = append(out, []any{strconv.FormatInt(s.ChatID, 10), s.Username, formatDate(s.SubscribedAt)})
	}
	return out
}
