package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/turfsplit/internal/apperr"
	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
)

// SubmitRSVP records a participant's attendance intent on an open session.
//
// The participant is matched through the session's Roster: by identity token
// when the client sends one, otherwise by exact player name. A repeat
// submission updates the existing record and returns it with its current
// payment status. A name held by a token-bound participant the caller cannot
// be matched to is a conflict; anything else creates a new participant.
func (s *SessionService) SubmitRSVP(ctx context.Context, sessionID string, req model.RSVPRequest) (*model.Participant, error) {
	name, err := validateName(req.PlayerName)
	if err != nil {
		return nil, err
	}
	phone, err := validatePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	status := req.RSVPStatus
	if status == "" {
		status = model.RSVPIn
	}
	if !status.Valid() {
		return nil, apperr.Validation("rsvp_status must be one of in, maybe, out")
	}

	var (
		result  model.Participant
		created bool
	)
	_, err = s.store.Update(ctx, sessionID, func(session *model.Session) error {
		if session.Status != model.StatusOpen {
			return apperr.InvalidState("session is " + string(session.Status) + "; RSVPs are closed")
		}

		var roster model.Roster = session
		existing, known := roster.FindByIdentity(model.Identity{Token: req.Identity, Name: name})
		if roster.NameTaken(name) && (!known || existing.PlayerName != name) {
			return apperr.Conflict("player_name " + name + " is already taken; submit from the device that used it or pick another name")
		}
		p, isNew := roster.Upsert(model.Participant{
			ID:            uuid.NewString(),
			SessionID:     session.ID,
			PlayerName:    name,
			Phone:         phone,
			Identity:      req.Identity,
			RSVPStatus:    status,
			PaymentStatus: model.PaymentPending,
			CreatedAt:     s.now(),
		})
		result, created = *p, isNew
		return nil
	})
	if err != nil {
		return nil, storeErr("submit rsvp", err)
	}

	slog.Info("rsvp recorded",
		"session_id", sessionID,
		"participant_id", result.ID,
		"rsvp_status", result.RSVPStatus,
		"created", created,
	)
	s.metrics.RSVP(string(result.RSVPStatus), created)
	return &result, nil
}
