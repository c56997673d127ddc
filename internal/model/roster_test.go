package model

import "testing"

func newTestSession() *Session {
	return &Session{
		ID:       "s1",
		TurfCost: 3200,
		Status:   StatusOpen,
		Participants: []Participant{
			{ID: "p1", PlayerName: "Arjun", RSVPStatus: RSVPIn, PaymentStatus: PaymentPending},
			{ID: "p2", PlayerName: "Kabir", Identity: "tok-kabir", RSVPStatus: RSVPMaybe, PaymentStatus: PaymentPending},
			{ID: "p3", PlayerName: "arjun", RSVPStatus: RSVPOut, PaymentStatus: PaymentPending},
		},
	}
}

func TestFindByIdentity(t *testing.T) {
	tests := []struct {
		name   string
		id     Identity
		wantID string
		wantOK bool
	}{
		{name: "exact name", id: Identity{Name: "Arjun"}, wantID: "p1", wantOK: true},
		{name: "name is case-sensitive", id: Identity{Name: "arjun"}, wantID: "p3", wantOK: true},
		{name: "token wins over name", id: Identity{Token: "tok-kabir", Name: "Arjun"}, wantID: "p2", wantOK: true},
		{name: "bound token hides name match", id: Identity{Name: "Kabir"}, wantOK: false},
		{name: "unknown token falls back to unbound name", id: Identity{Token: "new", Name: "Arjun"}, wantID: "p1", wantOK: true},
		{name: "no match", id: Identity{Name: "Zoya"}, wantOK: false},
		{name: "empty identity", id: Identity{}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			p, ok := s.FindByIdentity(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("FindByIdentity() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && p.ID != tt.wantID {
				t.Errorf("FindByIdentity() = %s, want %s", p.ID, tt.wantID)
			}
		})
	}
}

func TestUpsertUpdatesExistingAndBindsToken(t *testing.T) {
	s := newTestSession()
	s.Participants[0].PaymentStatus = PaymentCash
	s.Participants[0].Phone = "98450"

	p, created := s.Upsert(Participant{ID: "new", PlayerName: "Arjun", Identity: "tok-arjun", RSVPStatus: RSVPMaybe})
	if created {
		t.Fatal("expected existing participant to be updated")
	}
	if p.ID != "p1" || p.RSVPStatus != RSVPMaybe {
		t.Errorf("Upsert() = %+v", p)
	}
	if p.PaymentStatus != PaymentCash {
		t.Errorf("payment status should survive a repeat RSVP, got %s", p.PaymentStatus)
	}
	if p.Phone != "98450" {
		t.Errorf("empty phone must not clear the stored one, got %q", p.Phone)
	}
	if p.Identity != "tok-arjun" {
		t.Errorf("token should be bound on name match, got %q", p.Identity)
	}
	if len(s.Participants) != 3 {
		t.Errorf("participants = %d, want 3", len(s.Participants))
	}

	_, created = s.Upsert(Participant{ID: "p4", PlayerName: "Zoya", RSVPStatus: RSVPIn})
	if !created || len(s.Participants) != 4 {
		t.Errorf("expected Zoya to be appended, created=%v len=%d", created, len(s.Participants))
	}
}

func TestRecomputeCollectedAndRemove(t *testing.T) {
	s := newTestSession()
	perHead := int64(800)
	s.PerHeadCost = &perHead
	s.Participants[0].AmountDue = 800
	s.Participants[0].PaymentStatus = PaymentCash
	s.Participants = append(s.Participants, Participant{ID: "p4", RSVPStatus: RSVPIn, AmountDue: 800, PaymentStatus: PaymentOnline})

	s.RecomputeCollected()
	if s.Collected != 1600 {
		t.Fatalf("Collected = %d, want 1600", s.Collected)
	}

	if _, ok := s.Remove("p1"); !ok {
		t.Fatal("Remove(p1) reported missing")
	}
	s.RecomputeCollected()
	if s.Collected != 800 {
		t.Errorf("Collected after removal = %d, want 800", s.Collected)
	}
	if _, ok := s.Remove("p1"); ok {
		t.Error("second Remove(p1) should report missing")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := newTestSession()
	perHead := int64(800)
	s.PerHeadCost = &perHead

	c := s.Clone()
	*c.PerHeadCost = 1
	c.Participants[0].PlayerName = "changed"

	if *s.PerHeadCost != 800 || s.Participants[0].PlayerName != "Arjun" {
		t.Error("mutating the clone changed the original")
	}
}

func TestNewSessionView(t *testing.T) {
	s := newTestSession()
	v := NewSessionView(s)
	if v.ConfirmedCount != 1 || v.MaybeCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", v.ConfirmedCount, v.MaybeCount)
	}
	if v.PerHeadPreview != 3200 {
		t.Errorf("PerHeadPreview = %d, want 3200", v.PerHeadPreview)
	}

	perHead := int64(1600)
	s.PerHeadCost = &perHead
	s.Status = StatusLocked
	s.Participants[0].AmountDue = 1600
	s.Participants[1].RSVPStatus = RSVPIn
	s.Participants[1].AmountDue = 1600
	s.Participants[1].PaymentStatus = PaymentOnline
	s.RecomputeCollected()

	v = NewSessionView(s)
	if v.PerHeadPreview != 1600 || v.PaidCount != 1 || v.Outstanding != 1600 {
		t.Errorf("locked view = preview %d paid %d outstanding %d", v.PerHeadPreview, v.PaidCount, v.Outstanding)
	}
}

func TestNameTaken(t *testing.T) {
	s := newTestSession()
	for name, want := range map[string]bool{"Arjun": true, "Kabir": true, "arjun": true, "Zoya": false, "": false} {
		if got := s.NameTaken(name); got != want {
			t.Errorf("NameTaken(%q) = %v, want %v", name, got, want)
		}
	}
}
