package payments

import "errors"

var (
	ErrDuplicatePayment  = errors.New("payment already attempted")
	ErrOrderNotPayable   = errors.New("order not payable")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderUnauthorized = errors.New("unauthorized to access order")
	ErrOrderUnavailable  = errors.New("order service unavailable")
	ErrBadOrderResponse  = errors.New("bad order service response")
	ErrMarkPaidDisabled  = errors.New("mark paid disabled")
)
