// Package payme runs the top-up payment handshake: acquire an access token,
// acquire a single-use nonce, build the payment-session payload, then hand
// everything to the payment widget and classify its completion callback.
package payme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateApproved   State = "approved"
	StateDeclined   State = "declined"
)

type Method string

const (
	MethodCard         Method = "CARD"
	MethodYape         Method = "YAPE"
	MethodPagoEfectivo Method = "PAGOEFECTIVO"
)

func ValidMethod(m Method) bool {
	switch m {
	case MethodCard, MethodYape, MethodPagoEfectivo:
		return true
	}
	return false
}

// Identity is the billing identity taken from the active session.
type Identity struct {
	FullName string
	Email    string
}

type Request struct {
	Method Method
	Amount decimal.Decimal
	Phone  string
	Payer  Identity
}

// Handshake tracks one payment attempt at a time:
// idle -> processing -> {approved, declined}. A declined attempt can be
// retried (full sequence re-runs with a fresh nonce) or abandoned back to
// idle via ChangeMethod; approved is terminal for the attempt. Every failure
// along the way surfaces as declined with a message, never as a fatal error.
type Handshake struct {
	mu           sync.Mutex
	logger       *slog.Logger
	auth         *AuthClient
	widget       Widget
	merchantCode string

	state   State
	message string
	last    Request
}

func NewHandshake(auth *AuthClient, widget Widget, merchantCode string, logger *slog.Logger) *Handshake {
	return &Handshake{
		logger:       logger,
		auth:         auth,
		widget:       widget,
		merchantCode: merchantCode,
		state:        StateIdle,
	}
}

// Begin starts a new attempt. It refuses to abandon an attempt that is still
// processing; any other prior state is replaced.
func (h *Handshake) Begin(ctx context.Context, req Request) error {
	h.mu.Lock()
	if h.state == StateProcessing {
		h.mu.Unlock()
		return ErrAttemptInFlight
	}

	if err := validateRequest(req); err != nil {
		h.state = StateDeclined
		h.message = err.Error()
		h.mu.Unlock()
		return err
	}

	h.state = StateProcessing
	h.message = ""
	h.last = req
	h.mu.Unlock()

	return h.run(ctx, req)
}

// Retry re-runs the declined attempt from scratch: new token, new nonce, new
// widget session.
func (h *Handshake) Retry(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateDeclined {
		h.mu.Unlock()
		return ErrNoDeclinedAttempt
	}
	h.state = StateProcessing
	h.message = ""
	req := h.last
	h.mu.Unlock()

	return h.run(ctx, req)
}

// ChangeMethod abandons a declined attempt and returns to idle so the caller
// can pick a different payment rail.
func (h *Handshake) ChangeMethod() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateDeclined {
		return ErrNoDeclinedAttempt
	}
	h.state = StateIdle
	h.message = ""
	h.last = Request{}
	return nil
}

// Attempt returns the request behind the current attempt, zero if none.
func (h *Handshake) Attempt() Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Status returns the current state and its human-readable message.
func (h *Handshake) Status() (State, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state, h.message
}

func validateRequest(req Request) error {
	if !ValidMethod(req.Method) {
		return errors.New("a payment method must be selected")
	}
	if !req.Amount.IsPositive() {
		return errors.New("the top-up amount must be positive")
	}
	if req.Phone == "" {
		return errors.New("a destination phone number is required")
	}
	return nil
}

func (h *Handshake) run(ctx context.Context, req Request) error {
	if h.widget == nil {
		return h.decline(fmt.Errorf("%w: no payment form is wired", ErrWidgetUnavailable))
	}

	token, err := h.auth.FetchToken(ctx)
	if err != nil {
		return h.decline(err)
	}

	nonce, err := h.auth.FetchNonce(ctx, token)
	if err != nil {
		return h.decline(err)
	}

	payload, err := buildPayload(req, h.merchantCode)
	if err != nil {
		return h.decline(err)
	}

	session := Session{
		Nonce:   nonce,
		Payload: payload,
		Settings: Settings{
			ShowCloseButton:     false,
			DisplayResultScreen: false,
		},
		DisplaySettings: DisplaySettings{Methods: []Method{req.Method}},
	}

	cb := Callbacks{OnResult: h.complete, OnTrack: h.track, OnError: h.fail}
	if err := h.widget.BeginSession(ctx, session, cb); err != nil {
		return h.decline(err)
	}
	return nil
}

// complete classifies the widget's completion payload. A callback arriving
// outside processing belongs to an abandoned attempt and is ignored.
func (h *Handshake) complete(payload CompletionPayload) {
	code := payload.StatusCode()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateProcessing {
		return
	}

	if approvedCode(code) {
		h.state = StateApproved
		h.message = "Payment approved. You can finalize the transaction."
		h.logger.Info("Payment approved", slog.String("code", code))
		return
	}

	h.state = StateDeclined
	h.message = "The payment was not approved. Try again."
	h.logger.Info("Payment declined", slog.String("code", code), "error", ErrPaymentDeclined)
}

func (h *Handshake) track(event json.RawMessage) {
	h.logger.Debug("Payment widget tracking", slog.String("event", string(event)))
}

func (h *Handshake) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateProcessing {
		return
	}
	h.state = StateDeclined
	h.message = "An error occurred while processing the payment. Try again."
	h.logger.Error("Payment widget error", "error", err)
}

func (h *Handshake) decline(err error) error {
	h.mu.Lock()
	h.state = StateDeclined
	h.message = err.Error()
	h.mu.Unlock()

	h.logger.Error("Payment attempt declined", "error", err)
	return err
}
