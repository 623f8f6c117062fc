package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"automarket/internal/storage"
)

// MutateOrder читает заказ целиком под блокировкой строки, применяет fn и
// сохраняет результат в той же транзакции. Ошибка fn откатывает транзакцию.
// Ожидание блокировки ограничено lockWait, по его истечении возвращается
// storage.ErrServerBusy.
func (s *Storage) MutateOrder(ctx context.Context, orderID int64, fn func(*storage.Order) error) (*storage.Order, error) {
	const op = "storage.mysql.MutateOrder"

	tx, err := s.beginLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: begin transaction: %w", op, mapErr(err))
	}
	defer tx.Rollback()

	var row orderRow
	err = tx.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %d: %w", op, orderID, storage.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: lock order: %w", op, mapErr(err))
	}

	orders, err := loadDetails(ctx, tx, []orderRow{row})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}
	order := &orders[0]

	if err := fn(order); err != nil {
		return nil, err
	}

	order.Version++
	if err := saveOrder(ctx, tx, order); err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%s: %w: %v", op, storage.ErrInvalidState, err)
		}
		return nil, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: commit: %w", op, mapErr(err))
	}
	return order, nil
}

func saveOrder(ctx context.Context, tx *sqlx.Tx, o *storage.Order) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders SET vin = ?, client_name = ?, client_phone = ?, location = ?, car_brand = ?, car_model = ?,
			car_year = ?, car_admin_model = ?, car_admin_year = ?, bitrix_id = ?, state = ?, closed = ?, processed = ?,
			refusal_reason = ?, summary = ?, details = ?, version = ?
		WHERE id = ?`,
		o.VIN, o.ClientName, o.ClientPhone, o.Location, o.Car.Brand, o.Car.Model,
		o.Car.Year, o.Car.AdminModel, o.Car.AdminYear, int64PtrArg(o.BitrixID), string(o.State), o.Closed, o.Processed,
		o.RefusalReason, o.Summary, o.Details, o.Version, o.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, o.ID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if err := insertOrderItems(ctx, tx, o.ID, o.Items); err != nil {
		return err
	}

	for i := range o.Offers {
		off := &o.Offers[i]
		_, err := tx.ExecContext(ctx, `
			UPDATE offers SET supplier_status = ?, details = ?, closed = ? WHERE id = ?`,
			off.SupplierStatus, off.Details, off.Closed, off.ID)
		if err != nil {
			return fmt.Errorf("update offer %s: %w", off.ID, err)
		}
	}

	// Сначала резерв, потом лидеры: иначе переход лидерства между
	// предложениями упрётся в уникальный ключ (order_id, leader_key).
	for _, leaders := range []bool{false, true} {
		for i := range o.Offers {
			off := &o.Offers[i]
			for pos, it := range off.Items {
				if it.IsLeader() != leaders {
					continue
				}
				if err := updateOfferItem(ctx, tx, off.ID, pos, it); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func updateOfferItem(ctx context.Context, tx *sqlx.Tx, offerID string, pos int, it storage.OfferItem) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE offer_items SET name = ?, admin_name = ?, quantity = ?, admin_quantity = ?, offered_quantity = ?,
			seller_price = ?, seller_currency = ?, delivery_weeks = ?, weight = ?, admin_price = ?, admin_currency = ?,
			admin_comment = ?, delivery_rate = ?, item_rank = ?, leader_key = ?
		WHERE offer_id = ? AND position = ?`,
		it.Name, it.AdminName, it.Quantity, intPtrArg(it.AdminQuantity), it.OfferedQuantity,
		it.SellerPrice, string(it.SellerCurrency), it.DeliveryWeeks, it.Weight, decimalPtrArg(it.AdminPrice),
		string(it.AdminCurrency), it.AdminComment, decimalPtrArg(it.DeliveryRate), string(it.Rank), leaderKey(it),
		offerID, pos)
	if err != nil {
		return fmt.Errorf("update offer item %s/%d: %w", offerID, pos, err)
	}
	return nil
}
