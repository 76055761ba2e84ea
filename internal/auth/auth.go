// Package auth validates the opaque tickets clients present when they
// connect. Validation is delegated to an external service; the engine only
// learns the stable identity behind a ticket and whether it is banned.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidTicket indicates the ticket is definitively invalid.
	ErrInvalidTicket = errors.New("auth: invalid ticket")

	// ErrBanned indicates the ticket is valid but the identity is barred
	// from playing.
	ErrBanned = errors.New("auth: identity banned")

	// ErrUnavailable indicates the auth service is unreachable or
	// unavailable. Callers may choose to fail open or fail closed.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity is the authenticated principal behind a socket.
type Identity struct {
	PlayerKey   string `json:"player_key"`
	DisplayName string `json:"display_name"`
}

// Validator exchanges a ticket for an identity.
type Validator interface {
	// Validate checks a ticket. Returns:
	//   - (*Identity, nil) if the ticket is valid
	//   - (nil, ErrInvalidTicket) if the ticket is definitively invalid
	//   - (nil, ErrBanned) if the identity behind it is banned
	//   - (nil, ErrUnavailable) if the auth service cannot answer
	Validate(ctx context.Context, ticket string) (*Identity, error)
}

// HTTPValidator validates tickets via HTTP callback to an external service.
type HTTPValidator struct {
	url    string
	secret string
	client *http.Client
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url, secret string) *HTTPValidator {
	return &HTTPValidator{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 500 * time.Millisecond, // Align with context timeout
		},
	}
}

type validateRequest struct {
	Ticket string `json:"ticket"`
}

type validateResponse struct {
	Valid       bool   `json:"valid"`
	Banned      bool   `json:"banned,omitempty"`
	PlayerKey   string `json:"player_key,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, ticket string) (*Identity, error) {
	if ticket == "" {
		return nil, ErrInvalidTicket
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Ticket: ticket})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if v.secret != "" {
		req.Header.Set("X-Auth-Secret", v.secret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		// Network errors, timeouts, etc. = unavailable
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success - decode response
	case http.StatusUnauthorized, http.StatusForbidden:
		// Definitive rejection
		return nil, ErrInvalidTicket
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	// Limit response body to 1MB to avoid pathological responses
	limitedReader := io.LimitReader(resp.Body, 1<<20)

	var authResp validateResponse
	if err := json.NewDecoder(limitedReader).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}

	if !authResp.Valid {
		return nil, ErrInvalidTicket
	}
	if authResp.Banned {
		return nil, ErrBanned
	}
	if authResp.PlayerKey == "" {
		return nil, fmt.Errorf("%w: response missing player key", ErrUnavailable)
	}

	return &Identity{
		PlayerKey:   authResp.PlayerKey,
		DisplayName: authResp.DisplayName,
	}, nil
}

// NoopValidator accepts every non-empty ticket and uses the ticket itself as
// the player key (dev mode).
type NoopValidator struct{}

// NewNoopValidator creates a validator that allows all connections.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(ctx context.Context, ticket string) (*Identity, error) {
	if ticket == "" {
		return nil, ErrInvalidTicket
	}
	return &Identity{PlayerKey: ticket, DisplayName: ticket}, nil
}
