package storage

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOfferNotFound   = errors.New("offer not found")
	ErrOrderClosed     = errors.New("order is closed")
	ErrVersionConflict = errors.New("order was modified concurrently")
	ErrServerBusy      = errors.New("server busy")
	ErrInvalidState    = errors.New("invalid order state")
)
