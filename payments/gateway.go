package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount      = errors.New("payment amount must be greater than zero")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrAlreadyRefunded    = errors.New("payment already refunded")
	ErrNotAttached        = errors.New("no charge attached to session")
)

// SessionStatus is the gateway's authoritative view of a checkout session.
type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionPaid    SessionStatus = "paid"
	SessionFailed  SessionStatus = "failed"
)

type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client talks to the hosted-checkout gateway. It holds no local state beyond
// configuration, so every operation is safe to retry; callers own persistence.
type Client struct {
	cfg    Config
	client *http.Client
	log    *logrus.Logger
}

func NewClient(cfg Config, log *logrus.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

type SessionRequest struct {
	BookingID   string            `json:"booking_id"`
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Session struct {
	ID          string `json:"id"`
	RedirectURL string `json:"redirect_url"`
}

type sessionStateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
	Code     string `json:"code"`
}

// CreateSession opens a hosted checkout session for the given amount. The
// customer completes payment out-of-band via the returned redirect URL.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, c.unavailable(resp)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway rejected session: %s", string(respBody))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}

	c.log.WithFields(logrus.Fields{"booking_id": req.BookingID, "session_id": session.ID}).
		Info("checkout session created")
	return &session, nil
}

// GetStatus is idempotent and side-effect-free.
func (c *Client) GetStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", c.unavailable(resp)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gateway returned %d for session %s: %s", resp.StatusCode, sessionID, string(respBody))
	}

	var state sessionStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return "", fmt.Errorf("failed to decode session state: %w", err)
	}

	switch state.Status {
	case "paid", "complete", "succeeded":
		return SessionPaid, nil
	case "failed", "expired", "canceled":
		return SessionFailed, nil
	default:
		return SessionPending, nil
	}
}

// Refund ensures no charge remains attached to the session. AlreadyRefunded
// and NotAttached are returned as distinct errors so callers can treat them
// as idempotent success.
func (c *Client) Refund(ctx context.Context, sessionID string) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions/"+sessionID+"/refund", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", c.unavailable(resp)
	}

	var result refundResponse
	respBody, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(respBody, &result)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		c.log.WithFields(logrus.Fields{"session_id": sessionID, "refund_id": result.RefundID}).
			Info("refund issued")
		return result.RefundID, nil
	case resp.StatusCode == http.StatusConflict || result.Code == "already_refunded":
		return "", ErrAlreadyRefunded
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", ErrNotAttached
	default:
		return "", fmt.Errorf("gateway refund failed with %d: %s", resp.StatusCode, string(respBody))
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("gateway request failed")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return resp, nil
}

func (c *Client) unavailable(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	c.log.WithField("status", resp.StatusCode).Warnf("gateway error: %s", string(respBody))
	return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
}
