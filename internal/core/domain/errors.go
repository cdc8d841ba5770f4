package domain

import "errors"

var (
	ErrInvalidOrderState       = errors.New("invalid order state")
	ErrInvalidStockLevel       = errors.New("invalid stock level")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidReservationState = errors.New("invalid reservation state")
	ErrSkuNotFound             = errors.New("sku not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrConcurrencyConflict     = errors.New("concurrency conflict")
	ErrEmptyOrder              = errors.New("order must contain at least one item")
)
