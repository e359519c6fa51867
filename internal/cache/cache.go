package cache

import (
	"errors"
	"fmt"
)

var ErrCacheMiss = errors.New("cache miss")

func paymentMethodKey(id int64) string {
	return fmt.Sprintf("payment_method:%d", id)
}

func shippingMethodKey(id int64) string {
	return fmt.Sprintf("shipping_method:%d", id)
}

const defaultShippingMethodKey = "shipping_method:default"
