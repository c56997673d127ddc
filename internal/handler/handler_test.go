package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/turfsplit/internal/auth"
	"github.com/Shivanand-hulikatti/turfsplit/internal/metrics"
	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
	"github.com/Shivanand-hulikatti/turfsplit/internal/payment"
	"github.com/Shivanand-hulikatti/turfsplit/internal/payment/paymenttest"
	"github.com/Shivanand-hulikatti/turfsplit/internal/repository"
	"github.com/Shivanand-hulikatti/turfsplit/internal/service"
)

const adminPassword = "cricket123"

type apiClient struct {
	t       *testing.T
	router  http.Handler
	gateway *paymenttest.Fake
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gateway := paymenttest.New()
	rec := metrics.New()
	svc := service.NewSessionService(repository.NewMemoryStore(), gateway, service.WithMetrics(rec))
	router := NewRouter(NewSessionHandler(svc, 10*time.Second), RouterConfig{
		AdminPassword: adminPassword,
		CORSOrigins:   []string{"https://turf.example"},
		Metrics:       rec.Handler(),
	})
	return &apiClient{t: t, router: router, gateway: gateway}
}

func (c *apiClient) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	return rr
}

func (c *apiClient) admin(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.do(method, path, body, http.Header{auth.HeaderAdminPassword: {adminPassword}})
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

// createLocked creates a session, RSVPs every name in and locks it.
func (c *apiClient) createLocked(turfCost int, names ...string) (model.SessionView, []model.Participant) {
	c.t.Helper()
	rr := c.admin(http.MethodPost, "/sessions", fmt.Sprintf(`{"date":"2026-10-17","turf_cost":%d}`, turfCost))
	expectStatus(c.t, rr, http.StatusCreated)
	view := decode[model.SessionView](c.t, rr)

	var players []model.Participant
	for _, name := range names {
		rr := c.do(http.MethodPost, "/sessions/"+view.ID+"/rsvp", fmt.Sprintf(`{"player_name":%q}`, name), nil)
		expectStatus(c.t, rr, http.StatusOK)
		players = append(players, decode[model.Participant](c.t, rr))
	}

	rr = c.admin(http.MethodPost, "/sessions/"+view.ID+"/lock", "")
	expectStatus(c.t, rr, http.StatusOK)
	return decode[model.SessionView](c.t, rr), players
}

func TestHealthCheck(t *testing.T) {
	rr := newAPI(t).do(http.MethodGet, "/health", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if body := decode[map[string]string](t, rr); body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestCurrentSessionEmpty(t *testing.T) {
	rr := newAPI(t).do(http.MethodGet, "/sessions/current", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != `{"session":null}` {
		t.Errorf("body = %s", rr.Body.String())
	}
	if got := rr.Header().Get(HeaderPollInterval); got != "10" {
		t.Errorf("%s = %q, want 10", HeaderPollInterval, got)
	}
}

func TestAdminGate(t *testing.T) {
	api := newAPI(t)
	body := `{"date":"2026-10-17"}`

	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{name: "no header", want: http.StatusForbidden},
		{name: "wrong password", header: http.Header{auth.HeaderAdminPassword: {"nope"}}, want: http.StatusForbidden},
		{name: "right password", header: http.Header{auth.HeaderAdminPassword: {adminPassword}}, want: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(http.MethodPost, "/sessions", body, tt.header)
			expectStatus(t, rr, tt.want)
			if tt.want == http.StatusForbidden {
				if got := decode[model.ErrorResponse](t, rr); got.Code != "FORBIDDEN" {
					t.Errorf("code = %q, want FORBIDDEN", got.Code)
				}
			}
		})
	}
}

func TestSessionFlow(t *testing.T) {
	api := newAPI(t)
	view, players := api.createLocked(3200, "Arjun", "Kabir", "Rohan", "Vikram")

	if view.Status != model.StatusLocked || view.PerHeadCost == nil || *view.PerHeadCost != 800 {
		t.Fatalf("locked view = %+v", view)
	}
	if view.ConfirmedCount != 4 || view.Outstanding != 3200 {
		t.Errorf("confirmed %d outstanding %d", view.ConfirmedCount, view.Outstanding)
	}

	rr := api.admin(http.MethodPatch, "/sessions/"+view.ID+"/rsvps/"+players[0].ID+"/cash", "")
	expectStatus(t, rr, http.StatusOK)
	if p := decode[model.Participant](t, rr); p.PaymentStatus != model.PaymentCash {
		t.Errorf("payment status = %s", p.PaymentStatus)
	}

	rr = api.admin(http.MethodPatch, "/sessions/"+view.ID+"/rsvps/"+players[0].ID+"/cash", "")
	expectStatus(t, rr, http.StatusConflict)

	rr = api.do(http.MethodPost, "/sessions/"+view.ID+"/pay/create", fmt.Sprintf(`{"rsvp_id":%q}`, players[1].ID), nil)
	expectStatus(t, rr, http.StatusOK)
	order := decode[model.PaymentOrder](t, rr)
	if order.PaymentSessionID == "" {
		t.Fatalf("order = %+v", order)
	}

	verifyBody := fmt.Sprintf(`{"order_id":%q,"rsvp_id":%q}`, order.OrderID, players[1].ID)
	rr = api.do(http.MethodPost, "/sessions/"+view.ID+"/pay/verify", verifyBody, nil)
	expectStatus(t, rr, http.StatusOK)
	if res := decode[model.VerifyResult](t, rr); res.Success {
		t.Error("unsettled order reported success")
	}

	api.gateway.Settle(order.OrderID)
	for i := 0; i < 2; i++ {
		rr = api.do(http.MethodPost, "/sessions/"+view.ID+"/pay/verify", verifyBody, nil)
		expectStatus(t, rr, http.StatusOK)
		if res := decode[model.VerifyResult](t, rr); !res.Success || res.Participant.PaymentStatus != model.PaymentOnline {
			t.Errorf("verify #%d = %+v", i+1, res)
		}
	}

	rr = api.do(http.MethodGet, "/sessions/"+view.ID, "", nil)
	expectStatus(t, rr, http.StatusOK)
	got := decode[model.SessionView](t, rr)
	if got.Collected != 1600 || got.PaidCount != 2 || got.Outstanding != 1600 {
		t.Errorf("collected %d paid %d outstanding %d", got.Collected, got.PaidCount, got.Outstanding)
	}

	rr = api.admin(http.MethodDelete, "/sessions/"+view.ID+"/rsvps/"+players[0].ID, "")
	expectStatus(t, rr, http.StatusOK)
	if after := decode[model.SessionView](t, rr); after.Collected != 800 {
		t.Errorf("collected after removing a paid player = %d, want 800", after.Collected)
	}

	rr = api.admin(http.MethodPost, "/sessions/"+view.ID+"/close", "")
	expectStatus(t, rr, http.StatusOK)
	rr = api.admin(http.MethodPost, "/sessions/"+view.ID+"/close", "")
	expectStatus(t, rr, http.StatusConflict)
	if e := decode[model.ErrorResponse](t, rr); e.Code != "INVALID_STATE" {
		t.Errorf("code = %q, want INVALID_STATE", e.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	api := newAPI(t)
	view, players := api.createLocked(3200, "Arjun")

	rr := api.admin(http.MethodPost, "/sessions", `{"date":"2026-10-18"}`)
	expectStatus(t, rr, http.StatusCreated)
	open := decode[model.SessionView](t, rr)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		admin  bool
		want   int
		code   string
	}{
		{name: "explicit zero cost", method: http.MethodPost, path: "/sessions", body: `{"date":"2026-10-19","turf_cost":0}`, admin: true, want: http.StatusBadRequest, code: "VALIDATION"},
		{name: "unknown session", method: http.MethodGet, path: "/sessions/missing", want: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "malformed body", method: http.MethodPost, path: "/sessions/" + open.ID + "/rsvp", body: `{"player_name":`, want: http.StatusBadRequest, code: "VALIDATION"},
		{name: "unknown field", method: http.MethodPost, path: "/sessions/" + open.ID + "/rsvp", body: `{"name":"A"}`, want: http.StatusBadRequest, code: "VALIDATION"},
		{name: "blank name", method: http.MethodPost, path: "/sessions/" + open.ID + "/rsvp", body: `{"player_name":" "}`, want: http.StatusBadRequest, code: "VALIDATION"},
		{name: "rsvp after lock", method: http.MethodPost, path: "/sessions/" + view.ID + "/rsvp", body: `{"player_name":"Late"}`, want: http.StatusConflict, code: "INVALID_STATE"},
		{name: "lock with nobody in", method: http.MethodPost, path: "/sessions/" + open.ID + "/lock", admin: true, want: http.StatusPreconditionFailed, code: "PRECONDITION"},
		{name: "pay for unknown participant", method: http.MethodPost, path: "/sessions/" + open.ID + "/pay/create", body: `{"rsvp_id":"x"}`, want: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "pay without rsvp id", method: http.MethodPost, path: "/sessions/" + view.ID + "/pay/create", body: `{}`, want: http.StatusBadRequest, code: "VALIDATION"},
		{name: "verify without order id", method: http.MethodPost, path: "/sessions/" + view.ID + "/pay/verify", body: fmt.Sprintf(`{"rsvp_id":%q}`, players[0].ID), want: http.StatusBadRequest, code: "VALIDATION"},
		{name: "remove unknown participant", method: http.MethodDelete, path: "/sessions/" + view.ID + "/rsvps/nobody", admin: true, want: http.StatusNotFound, code: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rr *httptest.ResponseRecorder
			if tt.admin {
				rr = api.admin(tt.method, tt.path, tt.body)
			} else {
				rr = api.do(tt.method, tt.path, tt.body, nil)
			}
			expectStatus(t, rr, tt.want)
			if got := decode[model.ErrorResponse](t, rr); got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestGatewayFailureIsRetryable(t *testing.T) {
	api := newAPI(t)
	view, players := api.createLocked(3200, "Arjun", "Kabir")
	api.gateway.CreateErr = payment.ErrUnavailable

	rr := api.do(http.MethodPost, "/sessions/"+view.ID+"/pay/create", fmt.Sprintf(`{"rsvp_id":%q}`, players[0].ID), nil)
	expectStatus(t, rr, http.StatusBadGateway)
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if e := decode[model.ErrorResponse](t, rr); e.Code != "PAYMENT_GATEWAY" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestConditionalGet(t *testing.T) {
	api := newAPI(t)
	rr := api.admin(http.MethodPost, "/sessions", `{"date":"2026-10-17"}`)
	expectStatus(t, rr, http.StatusCreated)
	view := decode[model.SessionView](t, rr)

	rr = api.do(http.MethodGet, "/sessions/"+view.ID, "", nil)
	expectStatus(t, rr, http.StatusOK)
	etag := rr.Header().Get("ETag")
	if etag != `"v1"` {
		t.Fatalf("ETag = %q, want \"v1\"", etag)
	}

	rr = api.do(http.MethodGet, "/sessions/"+view.ID, "", http.Header{"If-None-Match": {etag}})
	expectStatus(t, rr, http.StatusNotModified)
	if rr.Body.Len() != 0 {
		t.Errorf("304 carried a body: %s", rr.Body.String())
	}

	rr = api.do(http.MethodPost, "/sessions/"+view.ID+"/rsvp", `{"player_name":"Arjun"}`, nil)
	expectStatus(t, rr, http.StatusOK)

	rr = api.do(http.MethodGet, "/sessions/"+view.ID, "", http.Header{"If-None-Match": {etag}})
	expectStatus(t, rr, http.StatusOK)
	if got := decode[model.SessionView](t, rr); len(got.Participants) != 1 || got.PerHeadPreview != 3200 {
		t.Errorf("view = %+v", got)
	}

	rr = api.do(http.MethodGet, "/sessions/current", "", nil)
	expectStatus(t, rr, http.StatusOK)
	current := rr.Header().Get("ETag")
	rr = api.do(http.MethodGet, "/sessions/current", "", http.Header{"If-None-Match": {current}})
	expectStatus(t, rr, http.StatusNotModified)
}

func TestCORS(t *testing.T) {
	api := newAPI(t)

	rr := api.do(http.MethodOptions, "/sessions/abc/rsvp", "", http.Header{"Origin": {"https://turf.example"}})
	expectStatus(t, rr, http.StatusNoContent)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://turf.example" {
		t.Errorf("allowed origin = %q", got)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Headers"), auth.HeaderAdminPassword) {
		t.Error("admin header is not allowed cross-origin")
	}

	rr = api.do(http.MethodGet, "/health", "", http.Header{"Origin": {"https://evil.example"}})
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}

func TestMetricsRoute(t *testing.T) {
	api := newAPI(t)
	api.createLocked(3200, "Arjun")

	rr := api.do(http.MethodGet, "/metrics", "", nil)
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), "turfsplit_session_transitions_total") {
		t.Error("metrics output is missing session transitions")
	}
}
