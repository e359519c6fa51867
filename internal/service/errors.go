package service

import "errors"

var (
	ErrAmountMismatch      = errors.New("submitted total does not match computed total")
	ErrEmptyOrder          = errors.New("order has no line items")
	ErrInvalidQuantity     = errors.New("line item quantity must be positive")
	ErrInvalidDeliveryType = errors.New("delivery type must be delivery or pickup")
)
