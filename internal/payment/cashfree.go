package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	cashfreeProductionURL = "https://api.cashfree.com/pg"
	cashfreeSandboxURL    = "https://sandbox.cashfree.com/pg"
	cashfreeAPIVersion    = "2023-08-01"

	defaultCustomerPhone = "9999999999"
	orderStatusPaid      = "PAID"
)

var _ Gateway = (*Cashfree)(nil)

var tracer = otel.Tracer("github.com/Shivanand-hulikatti/turfsplit/internal/payment")

// Cashfree is a Gateway backed by the Cashfree PG API.
type Cashfree struct {
	baseURL string
	appID   string
	secret  string
	client  *http.Client
}

// CashfreeOption customises a Cashfree client.
type CashfreeOption func(*Cashfree)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) CashfreeOption {
	return func(c *Cashfree) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) CashfreeOption {
	return func(c *Cashfree) { c.client = hc }
}

// NewCashfree builds a client. env "production" selects the live API; any
// other value selects the sandbox.
func NewCashfree(appID, secret, env string, opts ...CashfreeOption) *Cashfree {
	c := &Cashfree{
		baseURL: cashfreeSandboxURL,
		appID:   appID,
		secret:  secret,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	if env == "production" {
		c.baseURL = cashfreeProductionURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     int64             `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails cashfreeCustomer  `json:"customer_details"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
}

type cashfreeOrder struct {
	OrderID          string            `json:"order_id"`
	OrderAmount      float64           `json:"order_amount"`
	OrderStatus      string            `json:"order_status"`
	PaymentSessionID string            `json:"payment_session_id"`
	OrderTags        map[string]string `json:"order_tags"`
}

type cashfreeError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CreateOrder allocates an INR order for req.Amount.
func (c *Cashfree) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	ctx, span := tracer.Start(ctx, "cashfree.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", req.OrderID), attribute.Int64("order.amount", req.Amount))

	phone := req.CustomerPhone
	if phone == "" {
		phone = defaultCustomerPhone
	}
	body := cashfreeOrderRequest{
		OrderID:       req.OrderID,
		OrderAmount:   req.Amount,
		OrderCurrency: "INR",
		CustomerDetails: cashfreeCustomer{
			CustomerID:    req.OrderID,
			CustomerName:  req.CustomerName,
			CustomerPhone: phone,
		},
	}
	if req.Reference != "" {
		body.OrderTags = map[string]string{"reference": req.Reference}
	}

	var out cashfreeOrder
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		return Order{}, err
	}
	return Order{OrderID: out.OrderID, PaymentSessionID: out.PaymentSessionID}, nil
}

// VerifyOrder fetches the order and reports whether it has been paid.
func (c *Cashfree) VerifyOrder(ctx context.Context, orderID string) (OrderStatus, error) {
	ctx, span := tracer.Start(ctx, "cashfree.VerifyOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var out cashfreeOrder
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify order")
		return OrderStatus{}, err
	}
	span.SetAttributes(attribute.String("order.status", out.OrderStatus))

	return OrderStatus{
		OrderID:   out.OrderID,
		Settled:   out.OrderStatus == orderStatusPaid,
		Amount:    int64(out.OrderAmount),
		Reference: out.OrderTags["reference"],
	}, nil
}

func (c *Cashfree) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secret)
	req.Header.Set("x-api-version", cashfreeAPIVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		var apiErr cashfreeError
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s %s: %d %s", ErrUnavailable, method, path, resp.StatusCode, msg)
		}
		return fmt.Errorf("cashfree %s %s: %d %s", method, path, resp.StatusCode, msg)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
