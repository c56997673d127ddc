// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/turfsplit/internal/apperr"
	"github.com/Shivanand-hulikatti/turfsplit/internal/metrics"
	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
	"github.com/Shivanand-hulikatti/turfsplit/internal/poll"
	"github.com/Shivanand-hulikatti/turfsplit/internal/service"
)

// Sweep outcomes recorded per checked order.
const (
	OutcomeSettled  = "settled"
	OutcomePending  = "pending"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Payments is the part of the session service the sweeper drives.
type Payments interface {
	PendingOrders(ctx context.Context) ([]service.PendingOrder, error)
	VerifyPayment(ctx context.Context, sessionID, participantID, orderID string) (*model.VerifyResult, error)
}

// PaymentSweeper re-verifies online payments that were started but never
// confirmed by the client, so a checkout that settled at the gateway is
// recorded even when the player closed the page before returning.
type PaymentSweeper struct {
	payments  Payments
	scheduler poll.Scheduler
	metrics   *metrics.Recorder
}

// NewPaymentSweeper constructs a PaymentSweeper. m may be nil.
func NewPaymentSweeper(payments Payments, scheduler poll.Scheduler, m *metrics.Recorder) *PaymentSweeper {
	return &PaymentSweeper{payments: payments, scheduler: scheduler, metrics: m}
}

// Run sweeps on the scheduler's interval until ctx is done.
func (w *PaymentSweeper) Run(ctx context.Context) error {
	slog.Info("payment sweeper started", "interval", w.scheduler.Interval())
	return w.scheduler.Run(ctx, "payment-sweep", func(ctx context.Context) error {
		_, err := w.SweepOnce(ctx)
		return err
	})
}

// SweepOnce checks every pending order once and returns how many were
// recorded as paid. A failure on one order does not stop the others.
func (w *PaymentSweeper) SweepOnce(ctx context.Context) (int, error) {
	pending, err := w.payments.PendingOrders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending orders: %w", err)
	}

	settled := 0
	for _, order := range pending {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		outcome := w.check(ctx, order)
		w.metrics.SweepCheck(outcome)
		if outcome == OutcomeSettled {
			settled++
		}
	}
	if settled > 0 {
		slog.Info("payment sweep recorded payments", "settled", settled, "checked", len(pending))
	}
	return settled, nil
}

func (w *PaymentSweeper) check(ctx context.Context, order service.PendingOrder) string {
	res, err := w.payments.VerifyPayment(ctx, order.SessionID, order.ParticipantID, order.OrderID)
	switch {
	case err == nil && res.Success:
		return OutcomeSettled
	case err == nil:
		return OutcomePending
	case apperr.IsRetryable(err):
		slog.Debug("pending order check deferred", "order_id", order.OrderID, "error", err)
		return OutcomeError
	case apperr.Of(err) != "":
		slog.Warn("pending order rejected", "order_id", order.OrderID, "participant_id", order.ParticipantID, "error", err)
		return OutcomeRejected
	default:
		slog.Error("pending order check failed", "order_id", order.OrderID, "error", err)
		return OutcomeError
	}
}
