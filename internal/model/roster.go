package model

// Identity is how a returning participant is recognised: by the token their
// device holds, or by their exact player name when no token is bound yet.
type Identity struct {
	Token string
	Name  string
}

// Roster is the capability the RSVP flow needs from a session's participant
// list.
type Roster interface {
	FindByIdentity(id Identity) (*Participant, bool)
	Upsert(p Participant) (*Participant, bool)
	NameTaken(name string) bool
}

var _ Roster = (*Session)(nil)

// FindByIdentity returns the participant matching id. A token match wins;
// otherwise the first participant with no bound token and exactly the same
// name matches. Name comparison is case-sensitive.
func (s *Session) FindByIdentity(id Identity) (*Participant, bool) {
	if id.Token != "" {
		for i := range s.Participants {
			if s.Participants[i].Identity == id.Token {
				return &s.Participants[i], true
			}
		}
	}
	if id.Name == "" {
		return nil, false
	}
	for i := range s.Participants {
		p := &s.Participants[i]
		if p.Identity == "" && p.PlayerName == id.Name {
			return p, true
		}
	}
	return nil, false
}

// Upsert applies p's RSVP to the matching participant, or appends p when no
// one matches. It returns the stored participant and whether it was created.
// An existing participant keeps its id, payment state and amount due; its
// phone only changes when p carries one.
func (s *Session) Upsert(p Participant) (*Participant, bool) {
	existing, ok := s.FindByIdentity(Identity{Token: p.Identity, Name: p.PlayerName})
	if !ok {
		s.Participants = append(s.Participants, p)
		return &s.Participants[len(s.Participants)-1], true
	}

	existing.RSVPStatus = p.RSVPStatus
	existing.PlayerName = p.PlayerName
	if p.Phone != "" {
		existing.Phone = p.Phone
	}
	if existing.Identity == "" {
		existing.Identity = p.Identity
	}
	return existing, false
}

// NameTaken reports whether any participant already uses name.
func (s *Session) NameTaken(name string) bool {
	for i := range s.Participants {
		if s.Participants[i].PlayerName == name {
			return true
		}
	}
	return false
}

// Participant returns the participant with the given id.
func (s *Session) Participant(id string) (*Participant, bool) {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return &s.Participants[i], true
		}
	}
	return nil, false
}

// Remove deletes the participant with the given id and returns it.
func (s *Session) Remove(id string) (Participant, bool) {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			removed := s.Participants[i]
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			return removed, true
		}
	}
	return Participant{}, false
}

// Count returns how many participants have the given RSVP status.
func (s *Session) Count(status RSVPStatus) int {
	n := 0
	for _, p := range s.Participants {
		if p.RSVPStatus == status {
			n++
		}
	}
	return n
}

// RecomputeCollected sets Collected to the sum of amounts due of every paid
// participant. It is the only writer of Collected.
func (s *Session) RecomputeCollected() {
	var total int64
	for _, p := range s.Participants {
		if p.PaymentStatus.Paid() {
			total += p.AmountDue
		}
	}
	s.Collected = total
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	if s.PerHeadCost != nil {
		v := *s.PerHeadCost
		c.PerHeadCost = &v
	}
	if s.LockedAt != nil {
		v := *s.LockedAt
		c.LockedAt = &v
	}
	if s.ClosedAt != nil {
		v := *s.ClosedAt
		c.ClosedAt = &v
	}
	c.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		if p.PaidAt != nil {
			v := *p.PaidAt
			p.PaidAt = &v
		}
		c.Participants[i] = p
	}
	return &c
}
