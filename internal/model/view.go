package model

import "github.com/Shivanand-hulikatti/turfsplit/internal/calculator"

// SessionView is the read model served to viewers and the organiser.
type SessionView struct {
	*Session

	// PerHeadPreview is the frozen per-head cost once locked, otherwise
	// what locking right now would charge each confirmed player.
	PerHeadPreview int64 `json:"per_head_preview"`

	ConfirmedCount int `json:"confirmed_count"`
	MaybeCount     int `json:"maybe_count"`
	PaidCount      int `json:"paid_count"`

	// Outstanding is what confirmed players still owe after lock.
	Outstanding int64 `json:"outstanding"`
}

// NewSessionView derives the read model for s.
func NewSessionView(s *Session) SessionView {
	v := SessionView{
		Session:        s,
		ConfirmedCount: s.Count(RSVPIn),
		MaybeCount:     s.Count(RSVPMaybe),
	}
	v.PerHeadPreview = calculator.Preview(s.PerHeadCost, s.TurfCost, int64(v.ConfirmedCount))

	var due int64
	for _, p := range s.Participants {
		due += p.AmountDue
		if p.PaymentStatus.Paid() {
			v.PaidCount++
		}
	}
	if out := due - s.Collected; out > 0 {
		v.Outstanding = out
	}
	return v
}
