package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/turfsplit/internal/apperr"
	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
	"github.com/Shivanand-hulikatti/turfsplit/internal/payment"
)

const gatewayTimeout = 20 * time.Second

// PendingOrder is an online payment that was started but never confirmed.
type PendingOrder struct {
	SessionID     string
	ParticipantID string
	OrderID       string
}

// MarkCash records that the organiser received a participant's share in
// cash. It never talks to the gateway. Marking an already paid participant
// is a conflict and leaves the collected total unchanged.
func (s *SessionService) MarkCash(ctx context.Context, sessionID, participantID string) (*model.Participant, error) {
	if err := requireOrganiser(ctx); err != nil {
		return nil, err
	}

	var result model.Participant
	_, err := s.store.Update(ctx, sessionID, func(session *model.Session) error {
		if session.Status != model.StatusLocked {
			return apperr.InvalidState("payments are only recorded on a locked session; session is " + string(session.Status))
		}
		p, ok := session.Participant(participantID)
		if !ok {
			return apperr.NotFound("participant not found")
		}
		if !p.Owes() {
			return apperr.Precondition("participant was not confirmed when the session was locked")
		}
		if p.PaymentStatus.Paid() {
			return apperr.Conflict("participant has already paid (" + string(p.PaymentStatus) + ")")
		}

		now := s.now()
		p.PaymentStatus = model.PaymentCash
		p.PaidAt = &now
		session.RecomputeCollected()
		result = *p
		return nil
	})
	if err != nil {
		return nil, storeErr("mark cash", err)
	}

	slog.Info("cash payment recorded", "session_id", sessionID, "participant_id", participantID, "amount", result.AmountDue)
	s.metrics.Payment(string(model.PaymentCash), result.AmountDue)
	return &result, nil
}

// CreatePaymentOrder allocates a gateway order for the participant's share and
// returns the handle the client needs for hosted checkout. A previous,
// abandoned order is simply replaced.
func (s *SessionService) CreatePaymentOrder(ctx context.Context, sessionID, participantID string) (*model.PaymentOrder, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("create payment order", err)
	}
	p, ok := session.Participant(participantID)
	if !ok {
		return nil, apperr.NotFound("participant not found")
	}
	if err := checkPayable(session, p); err != nil {
		return nil, err
	}

	req := payment.OrderRequest{
		OrderID:       newOrderID(session.ID, p.ID),
		Amount:        p.AmountDue,
		Reference:     orderReference(session.ID, p.ID),
		CustomerName:  p.PlayerName,
		CustomerPhone: p.Phone,
	}
	start := time.Now()
	order, err := s.gateway.CreateOrder(ctx, req)
	s.metrics.GatewayCall("create_order", start, err)
	if err != nil {
		slog.Warn("gateway create order failed", "session_id", sessionID, "participant_id", participantID, "error", err)
		return nil, apperr.Gateway("could not create payment order, please retry", err)
	}
	if order.OrderID == "" {
		order.OrderID = req.OrderID
	}

	_, err = s.store.Update(ctx, sessionID, func(session *model.Session) error {
		p, ok := session.Participant(participantID)
		if !ok {
			return apperr.NotFound("participant not found")
		}
		if err := checkPayable(session, p); err != nil {
			return err
		}
		p.OrderID = order.OrderID
		return nil
	})
	if err != nil {
		return nil, storeErr("record payment order", err)
	}

	slog.Info("payment order created", "session_id", sessionID, "participant_id", participantID, "order_id", order.OrderID)
	return &model.PaymentOrder{OrderID: order.OrderID, PaymentSessionID: order.PaymentSessionID}, nil
}

// VerifyPayment asks the gateway whether orderID has settled and, if so,
// marks the participant paid online. It is safe to retry: once the order is
// recorded, further calls report success without touching the collected
// total. Concurrent verifications of one order share a single gateway call.
func (s *SessionService) VerifyPayment(ctx context.Context, sessionID, participantID, orderID string) (*model.VerifyResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.Validation("order_id is required")
	}

	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr("verify payment", err)
	}
	p, ok := session.Participant(participantID)
	if !ok {
		return nil, apperr.NotFound("participant not found")
	}
	if p.PaymentStatus == model.PaymentOnline && p.OrderID == orderID {
		return &model.VerifyResult{Success: true, Participant: p}, nil
	}
	if err := checkVerifiable(session); err != nil {
		return nil, err
	}

	status, err := s.verifyOrder(ctx, orderID)
	if err != nil {
		slog.Warn("gateway verify order failed", "session_id", sessionID, "order_id", orderID, "error", err)
		return nil, apperr.Gateway("could not verify payment, please retry", err)
	}
	if !status.Settled {
		return &model.VerifyResult{Success: false, Participant: p}, nil
	}

	var (
		result   model.Participant
		recorded bool
	)
	_, err = s.store.Update(ctx, sessionID, func(session *model.Session) error {
		if err := checkVerifiable(session); err != nil {
			return err
		}
		p, ok := session.Participant(participantID)
		if !ok {
			return apperr.NotFound("participant not found")
		}
		if !ownsOrder(session.ID, p.ID, orderID, status) {
			return apperr.Precondition("order does not belong to this participant")
		}
		if status.Amount > 0 && status.Amount < p.AmountDue {
			return apperr.Precondition(fmt.Sprintf("order amount %d does not cover amount due %d", status.Amount, p.AmountDue))
		}

		switch p.PaymentStatus {
		case model.PaymentOnline:
			if p.OrderID != orderID {
				return apperr.Conflict("participant already paid online with another order")
			}
			result = *p
			return errUnchanged
		case model.PaymentCash:
			return apperr.Conflict("participant already paid in cash")
		}

		now := s.now()
		p.PaymentStatus = model.PaymentOnline
		p.OrderID = orderID
		p.PaidAt = &now
		session.RecomputeCollected()
		result, recorded = *p, true
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return nil, storeErr("record online payment", err)
	}

	if recorded {
		slog.Info("online payment recorded", "session_id", sessionID, "participant_id", participantID, "order_id", orderID, "amount", result.AmountDue)
		s.metrics.Payment(string(model.PaymentOnline), result.AmountDue)
	}
	return &model.VerifyResult{Success: true, Participant: &result}, nil
}

// PendingOrders lists online payments that were started and never confirmed,
// across every locked session. A locked session keeps being swept after a
// newer session becomes current.
func (s *SessionService) PendingOrders(ctx context.Context) ([]PendingOrder, error) {
	sessions, err := s.store.ListByStatus(ctx, model.StatusLocked)
	if err != nil {
		return nil, fmt.Errorf("list locked sessions: %w", err)
	}

	var pending []PendingOrder
	for _, session := range sessions {
		for _, p := range session.Participants {
			if p.PaymentStatus == model.PaymentPending && p.OrderID != "" && p.Owes() {
				pending = append(pending, PendingOrder{SessionID: session.ID, ParticipantID: p.ID, OrderID: p.OrderID})
			}
		}
	}
	return pending, nil
}

// verifyOrder shares one gateway call among concurrent callers for the same
// order. The call outlives any single caller's cancellation and is bounded
// by gatewayTimeout instead.
func (s *SessionService) verifyOrder(ctx context.Context, orderID string) (payment.OrderStatus, error) {
	v, err, _ := s.verifying.Do(orderID, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gatewayTimeout)
		defer cancel()

		start := time.Now()
		st, err := s.gateway.VerifyOrder(callCtx, orderID)
		s.metrics.GatewayCall("verify_order", start, err)
		return st, err
	})
	if err != nil {
		return payment.OrderStatus{}, err
	}
	return v.(payment.OrderStatus), nil
}

func checkPayable(session *model.Session, p *model.Participant) error {
	if session.Status != model.StatusLocked {
		return apperr.Precondition("session is not locked for payment; session is " + string(session.Status))
	}
	if !p.Owes() {
		return apperr.Precondition("participant was not confirmed when the session was locked")
	}
	if p.PaymentStatus.Paid() {
		return apperr.Precondition("participant has already paid")
	}
	return nil
}

func checkVerifiable(session *model.Session) error {
	switch session.Status {
	case model.StatusOpen:
		return apperr.Precondition("session is not locked for payment")
	case model.StatusClosed:
		return apperr.InvalidState("session is closed; payments are no longer accepted")
	}
	return nil
}

func orderReference(sessionID, participantID string) string {
	return sessionID + "/" + participantID
}

func orderPrefix(sessionID, participantID string) string {
	short := strings.ReplaceAll(participantID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	return "turf_" + sessionID + "_" + short + "_"
}

func newOrderID(sessionID, participantID string) string {
	return orderPrefix(sessionID, participantID) + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// ownsOrder reports whether a settled order was created for this participant.
// The gateway echoes the reference we attached; orders without one are
// matched on the id prefix.
func ownsOrder(sessionID, participantID, orderID string, st payment.OrderStatus) bool {
	if st.Reference != "" {
		return st.Reference == orderReference(sessionID, participantID)
	}
	return strings.HasPrefix(orderID, orderPrefix(sessionID, participantID))
}
