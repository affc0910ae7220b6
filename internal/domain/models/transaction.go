package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindTopup   TransactionKind = "topup"
	KindSend    TransactionKind = "send"
	KindReceive TransactionKind = "receive"
)

type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "success"
	StatusPending TransactionStatus = "pending"
	StatusFailed  TransactionStatus = "failed"
)

// Transaction is immutable once appended to the ledger. Counterpart is the
// recipient for "send", the sender for "receive", and empty for "topup".
type Transaction struct {
	ID          string            `json:"id"`
	Kind        TransactionKind   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Counterpart string            `json:"counterpart,omitempty"`
	Date        time.Time         `json:"date"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
}
