// Package payment talks to the online payment gateway. The service only
// consumes the two operations of Gateway; Cashfree implements them against
// the Cashfree PG REST API.
package payment

import (
	"context"
	"errors"
)

// ErrUnavailable marks failures where the gateway could not be reached or
// answered with a server error. Retrying the same call may succeed.
var ErrUnavailable = errors.New("payment gateway unavailable")

// OrderRequest describes an order to allocate.
type OrderRequest struct {
	OrderID       string
	Amount        int64 // whole rupees
	Reference     string
	CustomerName  string
	CustomerPhone string
}

// Order is a freshly allocated gateway order.
type Order struct {
	OrderID string
	// PaymentSessionID is the token the client hands to hosted checkout.
	PaymentSessionID string
}

// OrderStatus is the gateway's view of an order.
type OrderStatus struct {
	OrderID   string
	Settled   bool
	Amount    int64
	Reference string
}

// Gateway is the payment gateway as seen by the service.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
	VerifyOrder(ctx context.Context, orderID string) (OrderStatus, error)
}
