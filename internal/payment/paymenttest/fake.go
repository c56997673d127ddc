// Package paymenttest provides an in-memory payment.Gateway for tests.
package paymenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Shivanand-hulikatti/turfsplit/internal/payment"
)

// Fake records orders and lets tests settle them or inject failures.
type Fake struct {
	mu          sync.Mutex
	orders      map[string]payment.OrderStatus
	CreateErr   error
	VerifyErr   error
	CreateCalls int
	VerifyCalls int

	entered chan struct{}
	release chan struct{}
}

var _ payment.Gateway = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{orders: make(map[string]payment.OrderStatus)}
}

// CreateOrder stores an unsettled order.
func (f *Fake) CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls++
	if f.CreateErr != nil {
		return payment.Order{}, f.CreateErr
	}
	f.orders[req.OrderID] = payment.OrderStatus{
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		Reference: req.Reference,
	}
	return payment.Order{OrderID: req.OrderID, PaymentSessionID: "ps_" + req.OrderID}, nil
}

// VerifyOrder returns the stored order status.
func (f *Fake) VerifyOrder(ctx context.Context, orderID string) (payment.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.VerifyCalls++
	entered, release := f.entered, f.release
	if release != nil {
		f.mu.Unlock()
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
			f.mu.Lock()
			return payment.OrderStatus{}, ctx.Err()
		}
		f.mu.Lock()
	}
	if f.VerifyErr != nil {
		return payment.OrderStatus{}, f.VerifyErr
	}
	st, ok := f.orders[orderID]
	if !ok {
		return payment.OrderStatus{}, fmt.Errorf("cashfree GET /orders/%s: 404 order not found", orderID)
	}
	return st, nil
}

// Settle marks an order as paid, as if the customer completed checkout.
func (f *Fake) Settle(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := f.orders[orderID]
	st.OrderID = orderID
	st.Settled = true
	f.orders[orderID] = st
}

// Put stores an arbitrary order status.
func (f *Fake) Put(st payment.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[st.OrderID] = st
}

// HoldVerify makes VerifyOrder block until release is called or the call's
// context ends. entered receives once a call is blocked.
func (f *Fake) HoldVerify() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entered = make(chan struct{}, 1)
	f.release = make(chan struct{})
	ch := f.release
	var once sync.Once
	return f.entered, func() { once.Do(func() { close(ch) }) }
}

// Calls returns the number of create and verify calls so far.
func (f *Fake) Calls() (create, verify int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CreateCalls, f.VerifyCalls
}
