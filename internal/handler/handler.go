// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/turfsplit/internal/apperr"
	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
	"github.com/Shivanand-hulikatti/turfsplit/internal/service"
)

// HeaderPollInterval tells viewers how many seconds to wait between refreshes.
const HeaderPollInterval = "X-Poll-Interval"

// retryAfterSeconds is advertised on gateway failures.
const retryAfterSeconds = "2"

// SessionHandler holds all HTTP handlers for the session API.
type SessionHandler struct {
	svc          *service.SessionService
	pollInterval time.Duration
}

// NewSessionHandler constructs a SessionHandler. pollInterval is advertised
// to viewers on every read.
func NewSessionHandler(svc *service.SessionService, pollInterval time.Duration) *SessionHandler {
	return &SessionHandler{svc: svc, pollInterval: pollInterval}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code apperr.Code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: string(code)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps an error code to its HTTP status.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidState, apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodePrecondition:
		return http.StatusPreconditionFailed
	case apperr.CodePaymentGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err. Errors without a code are infrastructure
// failures: they are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "", "internal server error")
		return
	}
	if appErr.Code == apperr.CodePaymentGateway {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}
	writeError(w, statusFor(appErr.Code), appErr.Code, appErr.Message)
}

// writeView renders a session for polling clients. The version doubles as
// an ETag so an unchanged session costs a 304.
func (h *SessionHandler) writeView(w http.ResponseWriter, r *http.Request, status int, s *model.Session) {
	etag := `"v` + strconv.FormatInt(s.Version, 10) + `"`
	w.Header().Set("ETag", etag)
	h.setPollInterval(w)
	if status == http.StatusOK && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, status, model.NewSessionView(s))
}

func (h *SessionHandler) setPollInterval(w http.ResponseWriter) {
	if h.pollInterval > 0 {
		w.Header().Set(HeaderPollInterval, strconv.Itoa(int(h.pollInterval.Seconds())))
	}
}

// ─── Sessions ─────────────────────────────────────────────────────────────────

// GetCurrentSession handles GET /sessions/current
// Returns the newest session that is not closed, or null.
func (h *SessionHandler) GetCurrentSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetCurrentSession(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if session == nil {
		h.setPollInterval(w)
		writeJSON(w, http.StatusOK, map[string]any{"session": nil})
		return
	}

	etag := `"v` + strconv.FormatInt(session.Version, 10) + `-` + session.ID + `"`
	w.Header().Set("ETag", etag)
	h.setPollInterval(w)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": model.NewSessionView(session)})
}

// GetSession handles GET /sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, session)
}

// CreateSession handles POST /sessions
// Organiser only. Creates a new open session.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.CreateSession(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusCreated, session)
}

// Lock handles POST /sessions/{id}/lock
func (h *SessionHandler) Lock(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Lock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, session)
}

// Close handles POST /sessions/{id}/close
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, session)
}

// ─── RSVPs ────────────────────────────────────────────────────────────────────

// SubmitRSVP handles POST /sessions/{id}/rsvp
// Creates or updates the caller's RSVP while the session is open.
func (h *SessionHandler) SubmitRSVP(w http.ResponseWriter, r *http.Request) {
	var req model.RSVPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	p, err := h.svc.SubmitRSVP(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MarkCash handles PATCH /sessions/{id}/rsvps/{rsvpID}/cash
func (h *SessionHandler) MarkCash(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.MarkCash(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "rsvpID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RemoveParticipant handles DELETE /sessions/{id}/rsvps/{rsvpID}
func (h *SessionHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.RemoveParticipant(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "rsvpID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeView(w, r, http.StatusOK, session)
}

// ─── Payments ─────────────────────────────────────────────────────────────────

// CreatePaymentOrder handles POST /sessions/{id}/pay/create
// Returns the gateway handle the client opens hosted checkout with.
func (h *SessionHandler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req model.PayCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, "invalid request body: "+err.Error())
		return
	}
	if req.RSVPID == "" {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, "rsvp_id is required")
		return
	}

	order, err := h.svc.CreatePaymentOrder(r.Context(), chi.URLParam(r, "id"), req.RSVPID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// VerifyPayment handles POST /sessions/{id}/pay/verify
// Safe to call repeatedly after checkout returns.
func (h *SessionHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req model.PayVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, "invalid request body: "+err.Error())
		return
	}
	if req.RSVPID == "" {
		writeError(w, http.StatusBadRequest, apperr.CodeValidation, "rsvp_id is required")
		return
	}

	res, err := h.svc.VerifyPayment(r.Context(), chi.URLParam(r, "id"), req.RSVPID, req.OrderID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
