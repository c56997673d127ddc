package service

import (
	"context"
	"log/slog"

	"github.com/Shivanand-hulikatti/turfsplit/internal/apperr"
	"github.com/Shivanand-hulikatti/turfsplit/internal/calculator"
	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
)

// Lock freezes the roster of an open session and splits the turf cost among
// the participants who are in. Each of them owes the per-head cost from now
// on; nobody else owes anything. Locking with no one confirmed is refused and
// the session stays open.
func (s *SessionService) Lock(ctx context.Context, sessionID string) (*model.Session, error) {
	if err := requireOrganiser(ctx); err != nil {
		return nil, err
	}

	session, err := s.store.Update(ctx, sessionID, func(session *model.Session) error {
		if session.Status != model.StatusOpen {
			return apperr.InvalidState("only an open session can be locked; session is " + string(session.Status))
		}
		confirmed := session.Count(model.RSVPIn)
		if confirmed == 0 {
			return apperr.Precondition("no confirmed players to split cost")
		}

		perHead := calculator.ComputePerHead(session.TurfCost, int64(confirmed))
		now := s.now()
		for i := range session.Participants {
			p := &session.Participants[i]
			if p.RSVPStatus == model.RSVPIn {
				p.AmountDue = perHead
			} else {
				p.AmountDue = 0
			}
		}
		session.PerHeadCost = &perHead
		session.Status = model.StatusLocked
		session.LockedAt = &now
		session.RecomputeCollected()
		return nil
	})
	if err != nil {
		return nil, storeErr("lock session", err)
	}

	slog.Info("session locked",
		"session_id", session.ID,
		"confirmed", session.Count(model.RSVPIn),
		"per_head_cost", *session.PerHeadCost,
	)
	s.metrics.Transition(string(model.StatusLocked))
	return session, nil
}

// Close ends a locked session. No RSVP or payment is accepted afterwards.
// Closing twice is refused and leaves the collected total as it was.
func (s *SessionService) Close(ctx context.Context, sessionID string) (*model.Session, error) {
	if err := requireOrganiser(ctx); err != nil {
		return nil, err
	}

	session, err := s.store.Update(ctx, sessionID, func(session *model.Session) error {
		switch session.Status {
		case model.StatusClosed:
			return apperr.InvalidState("session is already closed")
		case model.StatusOpen:
			return apperr.InvalidState("session must be locked before it can be closed")
		}
		now := s.now()
		session.Status = model.StatusClosed
		session.ClosedAt = &now
		return nil
	})
	if err != nil {
		return nil, storeErr("close session", err)
	}

	slog.Info("session closed", "session_id", session.ID, "collected", session.Collected)
	s.metrics.Transition(string(model.StatusClosed))
	return session, nil
}

// RemoveParticipant deletes a participant in any state. If they had paid,
// the collected total drops by their share. The per-head cost of a locked
// session is not recomputed.
func (s *SessionService) RemoveParticipant(ctx context.Context, sessionID, participantID string) (*model.Session, error) {
	if err := requireOrganiser(ctx); err != nil {
		return nil, err
	}

	var removed model.Participant
	session, err := s.store.Update(ctx, sessionID, func(session *model.Session) error {
		p, ok := session.Remove(participantID)
		if !ok {
			return apperr.NotFound("participant not found")
		}
		removed = p
		session.RecomputeCollected()
		return nil
	})
	if err != nil {
		return nil, storeErr("remove participant", err)
	}

	slog.Info("participant removed",
		"session_id", sessionID,
		"participant_id", removed.ID,
		"payment_status", removed.PaymentStatus,
		"collected", session.Collected,
	)
	return session, nil
}
