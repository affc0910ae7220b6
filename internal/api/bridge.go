package api

import (
	"context"
	"errors"
	"sync"

	"github.com/luqea/luqea-wallet/internal/payme"
)

var ErrNoWidgetSession = errors.New("no payment widget session in progress")

// WidgetBridge implements payme.Widget for the HTTP surface. The real
// payment form runs in the client; BeginSession parks the session material
// for the client to fetch, and the client posts the widget's completion
// payload back, which Deliver/Fail feed into the handshake callbacks.
type WidgetBridge struct {
	mu      sync.Mutex
	session payme.Session
	cb      payme.Callbacks
	active  bool
}

func NewWidgetBridge() *WidgetBridge {
	return &WidgetBridge{}
}

func (b *WidgetBridge) BeginSession(_ context.Context, session payme.Session, cb payme.Callbacks) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = session
	b.cb = cb
	b.active = true
	return nil
}

// Material returns the session handed over by the last BeginSession.
func (b *WidgetBridge) Material() (payme.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session, b.active
}

// Deliver feeds a completion payload to the handshake. The session is spent
// afterwards; a retry establishes a new one.
func (b *WidgetBridge) Deliver(payload payme.CompletionPayload) error {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return ErrNoWidgetSession
	}
	cb := b.cb
	b.active = false
	b.mu.Unlock()

	cb.OnResult(payload)
	return nil
}

// Fail reports a widget error instead of a completion payload.
func (b *WidgetBridge) Fail(err error) error {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return ErrNoWidgetSession
	}
	cb := b.cb
	b.active = false
	b.mu.Unlock()

	cb.OnError(err)
	return nil
}
