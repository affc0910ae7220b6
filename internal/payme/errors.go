package payme

import "errors"

var (
	ErrConfigurationMissing = errors.New("payment configuration missing")
	ErrNetworkFailure       = errors.New("payment authority request failed")
	ErrMalformedResponse    = errors.New("payment authority response malformed")
	ErrWidgetUnavailable    = errors.New("payment widget unavailable")
	ErrPaymentDeclined      = errors.New("payment not approved")
	ErrAttemptInFlight      = errors.New("payment attempt already processing")
	ErrNoDeclinedAttempt    = errors.New("no declined attempt to act on")
)
