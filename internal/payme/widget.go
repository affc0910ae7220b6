package payme

import (
	"context"
	"encoding/json"
)

type Settings struct {
	ShowCloseButton     bool `json:"show_close_button"`
	DisplayResultScreen bool `json:"display_result_screen"`
}

type DisplaySettings struct {
	Methods []Method `json:"methods"`
}

// Session is the construction material handed to the payment widget: the
// single-use nonce plus the payment payload and display configuration.
type Session struct {
	Nonce           string          `json:"nonce"`
	Payload         Payload         `json:"payload"`
	Settings        Settings        `json:"settings"`
	DisplaySettings DisplaySettings `json:"display_settings"`
}

type Callbacks struct {
	OnResult func(CompletionPayload)
	OnTrack  func(json.RawMessage)
	OnError  func(error)
}

// Widget is the capability the handshake depends on instead of the real
// third-party payment form. BeginSession hands over a session and returns
// once the widget has accepted it; the outcome arrives later through the
// callbacks.
type Widget interface {
	BeginSession(ctx context.Context, session Session, cb Callbacks) error
}
