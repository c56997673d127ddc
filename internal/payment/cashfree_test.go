package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCashfreeCreateOrder(t *testing.T) {
	var got cashfreeOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-client-id") != "app" || r.Header.Get("x-client-secret") != "secret" {
			t.Errorf("missing credentials headers: %v", r.Header)
		}
		if r.Header.Get("x-api-version") != cashfreeAPIVersion {
			t.Errorf("x-api-version = %q", r.Header.Get("x-api-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order_id":"turf_s1_p1_abc123","order_status":"ACTIVE","payment_session_id":"session_xyz"}`))
	}))
	defer srv.Close()

	c := NewCashfree("app", "secret", "sandbox", WithBaseURL(srv.URL))
	order, err := c.CreateOrder(context.Background(), OrderRequest{
		OrderID:      "turf_s1_p1_abc123",
		Amount:       800,
		Reference:    "s1/p1",
		CustomerName: "Arjun",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.PaymentSessionID != "session_xyz" || order.OrderID != "turf_s1_p1_abc123" {
		t.Errorf("CreateOrder() = %+v", order)
	}
	if got.OrderAmount != 800 || got.OrderCurrency != "INR" {
		t.Errorf("request amount/currency = %d %s", got.OrderAmount, got.OrderCurrency)
	}
	if got.CustomerDetails.CustomerPhone != defaultCustomerPhone {
		t.Errorf("customer phone = %q, want default", got.CustomerDetails.CustomerPhone)
	}
	if got.OrderTags["reference"] != "s1/p1" {
		t.Errorf("order tags = %v", got.OrderTags)
	}
}

func TestCashfreeVerifyOrder(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantSettled bool
		wantErr     bool
		unavailable bool
	}{
		{name: "paid", status: 200, body: `{"order_id":"o1","order_amount":800.00,"order_status":"PAID","order_tags":{"reference":"s1/p1"}}`, wantSettled: true},
		{name: "active", status: 200, body: `{"order_id":"o1","order_amount":800,"order_status":"ACTIVE"}`},
		{name: "not found is terminal", status: 404, body: `{"message":"order not found","code":"order_not_found"}`, wantErr: true},
		{name: "server error is retryable", status: 502, body: `bad gateway`, wantErr: true, unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/orders/o1" {
					t.Errorf("path = %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewCashfree("app", "secret", "sandbox", WithBaseURL(srv.URL))
			st, err := c.VerifyOrder(context.Background(), "o1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyOrder() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrUnavailable) != tt.unavailable {
				t.Errorf("errors.Is(err, ErrUnavailable) = %v, want %v", errors.Is(err, ErrUnavailable), tt.unavailable)
			}
			if err != nil {
				return
			}
			if st.Settled != tt.wantSettled {
				t.Errorf("Settled = %v, want %v", st.Settled, tt.wantSettled)
			}
			if tt.wantSettled && (st.Amount != 800 || st.Reference != "s1/p1") {
				t.Errorf("status = %+v", st)
			}
		})
	}
}

func TestCashfreeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewCashfree("app", "secret", "sandbox", WithBaseURL(srv.URL))
	_, err := c.CreateOrder(context.Background(), OrderRequest{OrderID: "o1", Amount: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("CreateOrder() error = %v, want ErrUnavailable", err)
	}
}

func TestNewCashfreeSelectsEnvironment(t *testing.T) {
	if c := NewCashfree("a", "b", "production"); c.baseURL != cashfreeProductionURL {
		t.Errorf("production baseURL = %s", c.baseURL)
	}
	if c := NewCashfree("a", "b", "sandbox"); c.baseURL != cashfreeSandboxURL {
		t.Errorf("sandbox baseURL = %s", c.baseURL)
	}
}
