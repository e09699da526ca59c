// Package api is the station's client for the remote order/payment service.
// Every call applies a bounded timeout; a timeout classifies as network-class
// so the sync coordinator treats it like lost connectivity.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/khanabook/pos-station/internal/model"
	"github.com/shopspring/decimal"
)

const defaultTimeout = 10 * time.Second

// TokenSource supplies the bearer token for outgoing requests.
// Satisfied by *auth.Session.
type TokenSource interface {
	Token() string
}

// Client calls the remote order/payment service.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

// New creates a Client for the given base URL (e.g. http://host:8080/api).
func New(base string, tokens TokenSource) *Client {
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: defaultTimeout},
		tokens: tokens,
	}
}

// CreateOrder places a new order. POST /orders.
func (c *Client) CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error) {
	var order model.Order
	err := c.do(ctx, http.MethodPost, "/orders", draft, &order)
	return order, err
}

// AddItems appends items to an open order. POST /orders/{id}/items.
func (c *Client) AddItems(ctx context.Context, orderID int64, items []model.OrderItemDraft) (model.Order, error) {
	var order model.Order
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/items", orderID), items, &order)
	return order, err
}

// UpdateStatus transitions an order's status. PUT /orders/{id}/status?status=X.
func (c *Client) UpdateStatus(ctx context.Context, orderID int64, status string) (model.Order, error) {
	var order model.Order
	path := fmt.Sprintf("/orders/%d/status?status=%s", orderID, url.QueryEscape(status))
	err := c.do(ctx, http.MethodPut, path, nil, &order)
	return order, err
}

// CancelOrder cancels an order. PUT /orders/{id}/cancel.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) (model.Order, error) {
	var order model.Order
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d/cancel", orderID), nil, &order)
	return order, err
}

// ProcessPayment settles a bill. POST /payments.
func (c *Client) ProcessPayment(ctx context.Context, draft model.PaymentDraft) (model.Payment, error) {
	var payment model.Payment
	err := c.do(ctx, http.MethodPost, "/payments", draft, &payment)
	return payment, err
}

// GetBill fetches the computed bill snapshot. GET /payments/bill/{id}.
func (c *Client) GetBill(ctx context.Context, orderID int64) (model.Bill, error) {
	var bill model.Bill
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/payments/bill/%d", orderID), nil, &bill)
	return bill, err
}

// DigitalPaymentRequest starts a gateway checkout for an order.
type DigitalPaymentRequest struct {
	OrderID  int64           `json:"orderId"`
	Discount decimal.Decimal `json:"discount"`
	Mode     string          `json:"mode"`
	Amount   decimal.Decimal `json:"amount"`
	Metadata string          `json:"metadata,omitempty"`
}

// DigitalPaymentResponse carries the gateway form the UI must submit.
type DigitalPaymentResponse struct {
	Action string            `json:"action"`
	Fields map[string]string `json:"fields"`
}

// InitiateDigitalPayment hands the settlement off to the payment gateway.
// POST /payments/initiate-digital. Failures classify as GatewayError (never
// queued): replaying an ambiguous gateway handoff could charge twice.
func (c *Client) InitiateDigitalPayment(ctx context.Context, req DigitalPaymentRequest) (DigitalPaymentResponse, error) {
	var resp DigitalPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/payments/initiate-digital", req, &resp); err != nil {
		return DigitalPaymentResponse{}, asGatewayError(err)
	}
	return resp, nil
}

// VerifyEasebuzzPayment confirms a completed gateway transaction.
// POST /payments/easebuzz/verify.
func (c *Client) VerifyEasebuzzPayment(ctx context.Context, payload map[string]string) (model.Payment, error) {
	var payment model.Payment
	if err := c.do(ctx, http.MethodPost, "/payments/easebuzz/verify", payload, &payment); err != nil {
		return model.Payment{}, asGatewayError(err)
	}
	return payment, nil
}

// Health probes the remote service. Used as the connectivity check for the
// coordinator's online/offline transitions.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// --- Transport ---

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classifyStatus maps HTTP statuses onto the error taxonomy. 5xx counts as
// network-class: the request may not have been applied and is safe to retry.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		io.Copy(io.Discard, resp.Body)
		return ErrAuthExpired
	case resp.StatusCode < 500:
		return &ValidationError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	default:
		return fmt.Errorf("%w: remote returned %d", ErrNetworkUnavailable, resp.StatusCode)
	}
}

func errorMessage(body io.Reader) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "invalid request"
	}
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	return "invalid request"
}

func asGatewayError(err error) error {
	if IsNetworkClass(err) || errors.Is(err, ErrAuthExpired) {
		return err
	}
	return &GatewayError{Message: err.Error()}
}
