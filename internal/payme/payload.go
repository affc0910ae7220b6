package payme

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Currency 604 is the ISO numeric code for PEN; the gateway only takes it
// in numeric form.
const currencyPEN = "604"

type Phone struct {
	CountryCode string `json:"country_code"`
	Subscriber  string `json:"subscriber"`
}

type Location struct {
	Line1   string `json:"line_1"`
	Line2   string `json:"line_2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type Party struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Phone     Phone    `json:"phone"`
	Location  Location `json:"location"`
}

type PaymentDetails struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Billing  Party  `json:"billing"`
	Customer Party  `json:"customer"`
}

type Payload struct {
	Action                  string         `json:"action"`
	Channel                 string         `json:"channel"`
	MerchantCode            string         `json:"merchant_code"`
	MerchantOperationNumber string         `json:"merchant_operation_number"`
	PaymentDetails          PaymentDetails `json:"payment_details"`
}

func merchantLocation() Location {
	return Location{
		Line1:   "Av. San Borja Norte 1743",
		Line2:   "",
		City:    "Lima",
		State:   "Lima",
		Country: "PE",
	}
}

// buildPayload assembles the payment-session payload: amount in minor
// currency units, billing/customer identity from the active session, and the
// fixed merchant address fields.
func buildPayload(req Request, merchantCode string) (Payload, error) {
	if merchantCode == "" {
		return Payload{}, fmt.Errorf("%w: merchant code not set", ErrConfigurationMissing)
	}

	first, last := payerName(req.Payer.FullName)
	email := req.Payer.Email
	if email == "" {
		email = "cliente@demo.com"
	}

	phone := Phone{CountryCode: "+51", Subscriber: digitsOnly(req.Phone)}
	if phone.Subscriber == "" {
		phone.Subscriber = "000000000"
	}

	party := Party{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     phone,
		Location:  merchantLocation(),
	}

	return Payload{
		Action:                  "authorize",
		Channel:                 "ecommerce",
		MerchantCode:            merchantCode,
		MerchantOperationNumber: operationNumber(),
		PaymentDetails: PaymentDetails{
			Amount:   minorUnits(req.Amount),
			Currency: currencyPEN,
			Billing:  party,
			Customer: party,
		},
	}, nil
}

func minorUnits(amount decimal.Decimal) string {
	return amount.Shift(2).Round(0).String()
}

// operationNumber is the last 12 digits of the current unix-milli clock,
// which is unique enough for a demo merchant reference.
func operationNumber() string {
	n := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(n) > 12 {
		n = n[len(n)-12:]
	}
	return n
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// payerName splits a display name into the gateway's first/last fields. The
// gateway rejects an empty last name, hence the single-space fallback.
func payerName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "Cliente", " "
	}
	last = strings.Join(parts[1:], " ")
	if last == "" {
		last = " "
	}
	return parts[0], last
}
