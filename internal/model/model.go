// Package model defines the core domain types for turf session coordination.
package model

import (
	"time"
)

// SessionStatus is a session's lifecycle state. It only moves forward:
// open → locked → closed.
type SessionStatus string

const (
	StatusOpen   SessionStatus = "open"
	StatusLocked SessionStatus = "locked"
	StatusClosed SessionStatus = "closed"
)

// RSVPStatus is a participant's stated attendance intent.
type RSVPStatus string

const (
	RSVPIn    RSVPStatus = "in"
	RSVPMaybe RSVPStatus = "maybe"
	RSVPOut   RSVPStatus = "out"
)

// Valid reports whether s is one of in, maybe or out.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPIn, RSVPMaybe, RSVPOut:
		return true
	}
	return false
}

// PaymentStatus tracks whether a participant's share has been collected.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentCash    PaymentStatus = "paid_cash"
	PaymentOnline  PaymentStatus = "paid_online"
)

// Paid reports whether the status counts towards the collected total.
func (s PaymentStatus) Paid() bool {
	return s == PaymentCash || s == PaymentOnline
}

// Session is one booked turf slot and everyone who responded to it.
type Session struct {
	ID       string        `json:"id"`
	Date     string        `json:"date"`
	Time     string        `json:"time"`
	TurfName string        `json:"turf_name"`
	TurfCost int64         `json:"turf_cost"`
	Status   SessionStatus `json:"status"`

	// PerHeadCost is nil while open and frozen at lock.
	PerHeadCost *int64 `json:"per_head_cost"`

	// Collected is derived from Participants; see RecomputeCollected.
	Collected int64 `json:"collected"`

	// Version increases on every committed mutation.
	Version int64 `json:"version"`

	CreatedAt time.Time  `json:"created_at"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	Participants []Participant `json:"rsvps"`
}

// Participant is one person's RSVP and payment record within a session.
type Participant struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	PlayerName string `json:"player_name"`
	Phone      string `json:"phone,omitempty"`

	// Identity is the client-issued token that recognises a returning device.
	// It is never echoed back to viewers.
	Identity string `json:"-"`

	RSVPStatus    RSVPStatus    `json:"rsvp_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	// AmountDue is set for participants confirmed at lock and zero otherwise.
	AmountDue int64 `json:"amount_due,omitempty"`

	// OrderID is the most recent gateway order created for this participant.
	OrderID string `json:"-"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Owes reports whether the participant carries a payment obligation.
func (p *Participant) Owes() bool {
	return p.AmountDue > 0
}

// CreateSessionRequest is the payload for creating a new session.
type CreateSessionRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	TurfName string `json:"turf_name"`
	// TurfCost is optional; nil selects the default cost.
	TurfCost *int64 `json:"turf_cost"`
}

// RSVPRequest is the payload for joining or updating an RSVP.
type RSVPRequest struct {
	PlayerName string     `json:"player_name"`
	Phone      string     `json:"phone"`
	RSVPStatus RSVPStatus `json:"rsvp_status"`
	Identity   string     `json:"identity"`
}

// PayCreateRequest starts an online payment for one participant.
type PayCreateRequest struct {
	RSVPID string `json:"rsvp_id"`
}

// PayVerifyRequest confirms an online payment after checkout.
type PayVerifyRequest struct {
	OrderID string `json:"order_id"`
	RSVPID  string `json:"rsvp_id"`
}

// PaymentOrder is returned to the client to drive hosted checkout.
type PaymentOrder struct {
	OrderID          string `json:"order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// VerifyResult reports whether an online payment has settled.
type VerifyResult struct {
	Success     bool         `json:"success"`
	Participant *Participant `json:"rsvp,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
