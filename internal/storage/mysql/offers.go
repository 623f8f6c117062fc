package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"automarket/internal/service/market"
	"automarket/internal/storage"
)

// CreateOffer добавляет предложение к открытому заказу. Номер предложения
// выдаётся под блокировкой строки заказа, поэтому параллельные предложения
// получают разные seq.
func (s *Storage) CreateOffer(ctx context.Context, offer *storage.Offer) (string, error) {
	const op = "storage.mysql.CreateOffer"

	tx, err := s.beginLocked(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: begin transaction: %w", op, mapErr(err))
	}
	defer tx.Rollback()

	var closed bool
	err = tx.GetContext(ctx, &closed, `SELECT closed FROM orders WHERE id = ? FOR UPDATE`, offer.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %d: %w", op, offer.OrderID, storage.ErrOrderNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: lock order: %w", op, mapErr(err))
	}
	if closed {
		return "", fmt.Errorf("%s: %d: %w", op, offer.OrderID, storage.ErrOrderClosed)
	}

	var seq int
	err = tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM offers WHERE order_id = ?`, offer.OrderID)
	if err != nil {
		return "", fmt.Errorf("%s: next seq: %w", op, err)
	}
	offer.Seq = seq
	offer.ID = storage.OfferID(offer.OrderID, seq)
	for i := range offer.Items {
		offer.Items[i].Rank = storage.RankReserve
	}

	if err := insertOffer(ctx, tx, offer); err != nil {
		return "", fmt.Errorf("%s: %w", op, mapErr(err))
	}

	if _, err := tx.ExecContext(ctx, `UPDATE orders SET version = version + 1 WHERE id = ?`, offer.OrderID); err != nil {
		return "", fmt.Errorf("%s: bump version: %w", op, mapErr(err))
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: commit: %w", op, err)
	}
	return offer.ID, nil
}

func insertOffer(ctx context.Context, tx *sqlx.Tx, off *storage.Offer) error {
	createdAt := off.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO offers (id, order_id, seq, supplier_name, supplier_phone, vin, location, supplier_status, details, closed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		off.ID, off.OrderID, off.Seq, off.SupplierName, off.SupplierPhone, off.VIN, off.Location,
		off.SupplierStatus, off.Details, off.Closed, createdAt)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO offer_items (offer_id, order_id, position, name, admin_name, quantity, admin_quantity, offered_quantity,
			seller_price, seller_currency, delivery_weeks, weight, admin_price, admin_currency, admin_comment,
			delivery_rate, item_rank, leader_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare offer items: %w", err)
	}
	defer stmt.Close()

	for i, it := range off.Items {
		_, err := stmt.ExecContext(ctx, off.ID, off.OrderID, i, it.Name, it.AdminName, it.Quantity,
			intPtrArg(it.AdminQuantity), it.OfferedQuantity, it.SellerPrice, string(it.SellerCurrency),
			it.DeliveryWeeks, it.Weight, decimalPtrArg(it.AdminPrice), string(it.AdminCurrency), it.AdminComment,
			decimalPtrArg(it.DeliveryRate), string(it.Rank), leaderKey(it))
		if err != nil {
			return fmt.Errorf("insert offer item %d: %w", i, err)
		}
	}
	return nil
}

// leaderKey ключ уникальности лидера по позиции, у резерва NULL.
func leaderKey(it storage.OfferItem) any {
	if !it.IsLeader() {
		return nil
	}
	return market.LeaderKey(it)
}

// OrderIDByOffer номер заказа, к которому относится предложение.
func (s *Storage) OrderIDByOffer(ctx context.Context, offerID string) (int64, error) {
	const op = "storage.mysql.OrderIDByOffer"

	var orderID int64
	err := s.db.GetContext(ctx, &orderID, `SELECT order_id FROM offers WHERE id = ?`, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %s: %w", op, offerID, storage.ErrOfferNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return orderID, nil
}

// OffersBySupplier предложения поставщика вместе с заказами, к которым они поданы.
func (s *Storage) OffersBySupplier(ctx context.Context, supplier string) ([]storage.Order, error) {
	return s.ListOrders(ctx, storage.OrderFilter{
		Role:          storage.RoleSupplier,
		Supplier:      supplier,
		OwnOffersOnly: true,
	})
}
