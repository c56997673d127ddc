// Package service implements the session lifecycle: RSVPs while a session is
// open, the lock that freezes the roster and splits the turf cost, and the
// reconciliation of cash and online payments until the session is closed.
//
// Every mutation is a single Store.Update, so the collected total and the
// per-head cost are always read and written under the store's per-session
// serialisation. Gateway round trips happen outside Update.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"github.com/Shivanand-hulikatti/turfsplit/internal/apperr"
	"github.com/Shivanand-hulikatti/turfsplit/internal/auth"
	"github.com/Shivanand-hulikatti/turfsplit/internal/metrics"
	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
	"github.com/Shivanand-hulikatti/turfsplit/internal/payment"
	"github.com/Shivanand-hulikatti/turfsplit/internal/repository"
)

const (
	defaultTime     = "06:00"
	defaultTurfName = "Home Turf"
	defaultTurfCost = 3200

	// maxTurfCost keeps per-head shares and collected totals far from
	// int64 overflow.
	maxTurfCost = 1_000_000_000

	maxNameLength  = 64
	maxPhoneLength = 20
)

// errUnchanged aborts a Store.Update whose outcome needs no write.
var errUnchanged = errors.New("unchanged")

// SessionService orchestrates session operations.
type SessionService struct {
	store   repository.Store
	gateway payment.Gateway
	metrics *metrics.Recorder
	now     func() time.Time

	verifying singleflight.Group
}

// Option customises a SessionService.
type Option func(*SessionService)

// WithMetrics records activity on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *SessionService) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService constructs a SessionService with its dependencies.
func NewSessionService(store repository.Store, gateway payment.Gateway, opts ...Option) *SessionService {
	s := &SessionService{
		store:   store,
		gateway: gateway,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession validates the request and stores a new open session. The new
// session becomes current because it is the newest one.
func (s *SessionService) CreateSession(ctx context.Context, req model.CreateSessionRequest) (*model.Session, error) {
	if err := requireOrganiser(ctx); err != nil {
		return nil, err
	}

	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.TurfName = strings.TrimSpace(req.TurfName)
	if req.Time == "" {
		req.Time = defaultTime
	}
	if req.TurfName == "" {
		req.TurfName = defaultTurfName
	}
	turfCost := int64(defaultTurfCost)
	if req.TurfCost != nil {
		turfCost = *req.TurfCost
	}

	if req.Date == "" {
		return nil, apperr.Validation("date is required")
	}
	if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
		return nil, apperr.Validation("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return nil, apperr.Validation("time must be HH:MM")
	}
	if turfCost <= 0 {
		return nil, apperr.Validation("turf_cost must be a positive amount")
	}
	if turfCost > maxTurfCost {
		return nil, apperr.Validation(fmt.Sprintf("turf_cost cannot exceed %d", maxTurfCost))
	}

	session := &model.Session{
		ID:        newSessionID(),
		Date:      req.Date,
		Time:      req.Time,
		TurfName:  req.TurfName,
		TurfCost:  turfCost,
		Status:    model.StatusOpen,
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	slog.Info("session created", "session_id", session.ID, "date", session.Date, "turf_cost", session.TurfCost)
	s.metrics.Transition(string(model.StatusOpen))
	return session, nil
}

// GetSession returns a session by id.
func (s *SessionService) GetSession(ctx context.Context, id string) (*model.Session, error) {
	if id == "" {
		return nil, apperr.Validation("session id is required")
	}
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("get session", err)
	}
	return session, nil
}

// GetCurrentSession returns the newest session that is not closed, or nil
// when there is none.
func (s *SessionService) GetCurrentSession(ctx context.Context) (*model.Session, error) {
	session, err := s.store.GetCurrent(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current session: %w", err)
	}
	return session, nil
}

func requireOrganiser(ctx context.Context) error {
	if !auth.IsOrganiser(ctx) {
		return apperr.Forbidden("organiser access required")
	}
	return nil
}

// storeErr turns store failures into domain errors. Errors raised inside an
// update function already carry a code and pass through.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.CodeNotFound, "session not found", err)
	}
	if apperr.Of(err) != "" {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// validateName trims and NFC-normalises name so the same name typed on
// different keyboards matches the same participant.
func validateName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", apperr.Validation("player_name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", apperr.Validation(fmt.Sprintf("player_name cannot exceed %d characters", maxNameLength))
	}
	return name, nil
}

func validatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if len(phone) > maxPhoneLength {
		return "", apperr.Validation(fmt.Sprintf("phone cannot exceed %d characters", maxPhoneLength))
	}
	for _, r := range phone {
		if (r < '0' || r > '9') && r != '+' && r != ' ' && r != '-' {
			return "", apperr.Validation("phone may only contain digits, spaces, '+' and '-'")
		}
	}
	return phone, nil
}
