package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Error kinds reported by the command surface.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("table already has an active order")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrSettlement        = errors.New("settlement failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// APIError is a non-2xx response. It unwraps to one of the Err* kinds.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "validation":
		return ErrValidation
	case "not_found":
		return ErrNotFound
	case "conflicting_active_order":
		return ErrConflict
	case "invalid_transition":
		return ErrInvalidTransition
	case "settlement_failure":
		return ErrSettlement
	}
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Client calls the order command surface on behalf of one terminal.
type Client struct {
	baseURL  string
	tenantID uuid.UUID
	token    string
	http     *http.Client
}

// NewClient creates a Client for a logged-in terminal.
func NewClient(baseURL string, creds Credentials) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: creds.TenantID,
		token:    creds.AccessToken,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Login exchanges the tenant's terminal secret for credentials.
func Login(ctx context.Context, baseURL string, tenantID uuid.UUID, secret, terminal, role, station string) (Credentials, error) {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: 10 * time.Second}}
	var creds Credentials
	err := c.do(ctx, http.MethodPost, "/auth/terminal", map[string]string{
		"tenant_id": tenantID.String(),
		"secret":    secret,
		"terminal":  terminal,
		"role":      role,
		"station":   station,
	}, &creds)
	return creds, err
}

// WebSocketURL returns the change-signal endpoint for this terminal's tenant.
func (c *Client) WebSocketURL() string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/tenants/" + c.tenantID.String() + "/orders?token=" + url.QueryEscape(c.token)
}

func (c *Client) tenantPath(format string, args ...interface{}) string {
	return "/tenants/" + c.tenantID.String() + fmt.Sprintf(format, args...)
}

func (c *Client) ListOrders(ctx context.Context, station string) ([]Order, error) {
	path := c.tenantPath("/orders")
	if station != "" {
		path += "?station=" + url.QueryEscape(station)
	}
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	var resp OrderDetail
	if err := c.do(ctx, http.MethodGet, c.tenantPath("/orders/%s", orderID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetTableOrder(ctx context.Context, table string) (*Order, error) {
	var resp Order
	if err := c.do(ctx, http.MethodGet, c.tenantPath("/tables/%s/order", url.PathEscape(table)), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateOrder(ctx context.Context, table, note string, items []ItemInput) (*Order, error) {
	var resp Order
	err := c.do(ctx, http.MethodPost, c.tenantPath("/orders"), map[string]interface{}{
		"table_label":   table,
		"customer_note": note,
		"items":         items,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AppendItems(ctx context.Context, orderID uuid.UUID, items []ItemInput) (*Order, error) {
	var resp Order
	if err := c.do(ctx, http.MethodPost, c.tenantPath("/orders/%s/items", orderID), map[string]interface{}{"items": items}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SetItemStatus(ctx context.Context, orderID, itemID uuid.UUID, status string) (*Order, error) {
	var resp Order
	if err := c.do(ctx, http.MethodPatch, c.tenantPath("/orders/%s/items/%s/status", orderID, itemID), map[string]string{"status": status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*Order, error) {
	var resp Order
	if err := c.do(ctx, http.MethodPatch, c.tenantPath("/orders/%s/status", orderID), map[string]string{"status": status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RecordPayment(ctx context.Context, orderID uuid.UUID, in PaymentInput) (*PaymentResult, error) {
	var resp PaymentResult
	if err := c.do(ctx, http.MethodPost, c.tenantPath("/orders/%s/payments", orderID), in, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
