package orders

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQty        = errors.New("invalid quantity")
	ErrInvalidProduct    = errors.New("invalid product id")
	ErrMissingPrice      = errors.New("no price resolved for product")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrUnsupportedStatus = errors.New("unsupported status")
)
