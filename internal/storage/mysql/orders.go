package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"automarket/internal/service/market"
	"automarket/internal/storage"
)

// CreateOrder сохраняет заказ с позициями. Повтор с тем же ключом идемпотентности
// возвращает уже созданный заказ и created=false.
func (s *Storage) CreateOrder(ctx context.Context, order *storage.Order, idempotencyKey string) (int64, bool, error) {
	const op = "storage.mysql.CreateOrder"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	if idempotencyKey != "" {
		_, err := tx.ExecContext(ctx, `INSERT INTO idempotency_keys (idem_key) VALUES (?)`, idempotencyKey)
		if isDuplicate(err) {
			tx.Rollback()
			var existing int64
			err := s.db.GetContext(ctx, &existing, `SELECT order_id FROM idempotency_keys WHERE idem_key = ?`, idempotencyKey)
			if err != nil {
				return 0, false, fmt.Errorf("%s: read idempotency key: %w", op, err)
			}
			return existing, false, nil
		}
		if err != nil {
			return 0, false, fmt.Errorf("%s: save idempotency key: %w", op, mapErr(err))
		}
	}

	id, err := insertOrder(ctx, tx, order)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	if idempotencyKey != "" {
		_, err := tx.ExecContext(ctx, `UPDATE idempotency_keys SET order_id = ? WHERE idem_key = ?`, id, idempotencyKey)
		if err != nil {
			return 0, false, fmt.Errorf("%s: bind idempotency key: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("%s: commit: %w", op, err)
	}

	order.ID = id
	order.Version = 1
	return id, true, nil
}

func insertOrder(ctx context.Context, tx *sqlx.Tx, o *storage.Order) (int64, error) {
	var idArg any
	if o.ID > 0 {
		idArg = o.ID
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (id, vin, client_name, client_phone, location, car_brand, car_model, car_year,
			car_admin_model, car_admin_year, bitrix_id, state, closed, processed, refusal_reason, summary, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idArg, o.VIN, o.ClientName, o.ClientPhone, o.Location, o.Car.Brand, o.Car.Model, o.Car.Year,
		o.Car.AdminModel, o.Car.AdminYear, int64PtrArg(o.BitrixID), string(o.State), o.Closed, o.Processed,
		o.RefusalReason, o.Summary, o.Details, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if err := insertOrderItems(ctx, tx, id, o.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func insertOrderItems(ctx context.Context, tx *sqlx.Tx, orderID int64, items []storage.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO order_items (order_id, position, name, admin_name, quantity, admin_quantity, comment, category,
			leader_offer_id, leader_price, leader_currency, leader_supplier, leader_delivery_weeks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare order items: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		var (
			offerID, currency, supplier, weeks any
			price                              any
		)
		if it.Leader != nil {
			offerID = it.Leader.OfferID
			price = it.Leader.Price
			currency = string(it.Leader.Currency)
			supplier = it.Leader.Supplier
			weeks = it.Leader.DeliveryWeeks
		}
		_, err := stmt.ExecContext(ctx, orderID, i, it.Name, it.AdminName, it.Quantity, intPtrArg(it.AdminQuantity),
			it.Comment, it.Category, offerID, price, currency, supplier, weeks)
		if err != nil {
			return fmt.Errorf("insert order item %d: %w", i, err)
		}
	}
	return nil
}

func (s *Storage) SetBitrixID(ctx context.Context, orderID, leadID int64) error {
	const op = "storage.mysql.SetBitrixID"

	res, err := s.db.ExecContext(ctx, `UPDATE orders SET bitrix_id = ? WHERE id = ?`, leadID, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %d: %w", op, orderID, storage.ErrOrderNotFound)
	}
	return nil
}

func (s *Storage) GetOrder(ctx context.Context, id int64) (*storage.Order, error) {
	const op = "storage.mysql.GetOrder"

	var row orderRow
	err := s.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %d: %w", op, id, storage.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders, err := loadDetails(ctx, s.db, []orderRow{row})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &orders[0], nil
}

// ListOrders заказы по фильтру роли, новые сверху.
func (s *Storage) ListOrders(ctx context.Context, f storage.OrderFilter) ([]storage.Order, error) {
	const op = "storage.mysql.ListOrders"

	var (
		where []string
		args  []any
	)

	switch f.Role {
	case storage.RoleClient:
		where = append(where, "client_phone = ?")
		args = append(args, f.ClientPhone)
	case storage.RoleSupplier:
		if f.OwnOffersOnly {
			where = append(where, "id IN (SELECT order_id FROM offers WHERE supplier_name = ?)")
			args = append(args, f.Supplier)
		} else if f.Supplier != "" {
			where = append(where, "(closed = 0 OR id IN (SELECT order_id FROM offers WHERE supplier_name = ?))")
			args = append(args, f.Supplier)
		} else {
			where = append(where, "closed = 0")
		}
	}
	if f.OnlyOpen {
		where = append(where, "closed = 0")
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		where = append(where, "(vin LIKE ? OR client_name LIKE ? OR CAST(id AS CHAR) = ?)")
		args = append(args, like, like, f.Search)
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, f.To)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders, err := loadDetails(ctx, s.db, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// loadDetails подгружает позиции, предложения и позиции предложений пачкой для набора заказов.
func loadDetails(ctx context.Context, q sqlx.QueryerContext, rows []orderRow) ([]storage.Order, error) {
	orders := make([]storage.Order, len(rows))
	if len(rows) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(rows))
	index := make(map[int64]int, len(rows))
	for i, r := range rows {
		orders[i] = r.toOrder()
		ids[i] = r.ID
		index[r.ID] = i
	}

	query, args, err := sqlx.In(`SELECT order_id, position, name, admin_name, quantity, admin_quantity, comment, category,
			leader_offer_id, leader_price, leader_currency, leader_supplier, leader_delivery_weeks
		FROM order_items WHERE order_id IN (?) ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	var items []orderItemRow
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	for _, it := range items {
		o := &orders[index[it.OrderID]]
		o.Items = append(o.Items, it.toItem())
	}

	query, args, err = sqlx.In(`SELECT `+offerColumns+` FROM offers WHERE order_id IN (?) ORDER BY order_id, seq`, ids)
	if err != nil {
		return nil, fmt.Errorf("build offers query: %w", err)
	}
	var offers []offerRow
	if err := sqlx.SelectContext(ctx, q, &offers, query, args...); err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	if len(offers) == 0 {
		return orders, nil
	}

	offerIDs := make([]string, len(offers))
	for i, off := range offers {
		offerIDs[i] = off.ID
	}
	query, args, err = sqlx.In(`SELECT `+offerItemColumns+` FROM offer_items WHERE offer_id IN (?) ORDER BY offer_id, position`, offerIDs)
	if err != nil {
		return nil, fmt.Errorf("build offer items query: %w", err)
	}
	var offerItems []offerItemRow
	if err := sqlx.SelectContext(ctx, q, &offerItems, query, args...); err != nil {
		return nil, fmt.Errorf("select offer items: %w", err)
	}
	byOffer := make(map[string][]storage.OfferItem, len(offers))
	for _, it := range offerItems {
		byOffer[it.OfferID] = append(byOffer[it.OfferID], it.toItem())
	}

	for _, r := range offers {
		off := r.toOffer()
		off.Items = byOffer[off.ID]
		o := &orders[index[off.OrderID]]
		o.Offers = append(o.Offers, off)
	}
	return orders, nil
}

// ImportOrders переносит заказы из старой таблицы с их номерами. Уже существующие номера пропускаются.
func (s *Storage) ImportOrders(ctx context.Context, orders []storage.Order) (int, error) {
	const op = "storage.mysql.ImportOrders"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	imported := 0
	for i := range orders {
		o := &orders[i]

		var exists int
		err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM orders WHERE id = ?`, o.ID)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		if exists > 0 {
			continue
		}

		if o.Summary == "" || o.Details == "" {
			market.RefreshReceipt(o)
		}
		if _, err := insertOrder(ctx, tx, o); err != nil {
			return 0, fmt.Errorf("%s: order %d: %w", op, o.ID, err)
		}
		for j := range o.Offers {
			if err := insertOffer(ctx, tx, &o.Offers[j]); err != nil {
				return 0, fmt.Errorf("%s: offer %s: %w", op, o.Offers[j].ID, err)
			}
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return imported, nil
}
