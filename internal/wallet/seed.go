package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/luqea/luqea-wallet/internal/domain/models"
)

func defaultBalance() decimal.Decimal {
	return decimal.NewFromFloat(2547.89)
}

// seedTransactions is the demo history shown before the user does anything.
// The log is process-lifetime only, so every start begins from these entries.
func seedTransactions() []models.Transaction {
	return []models.Transaction{
		{
			ID:          "1",
			Kind:        models.KindReceive,
			Amount:      decimal.NewFromFloat(150.00),
			Counterpart: "+1 234-567-8901",
			Date:        time.Date(2026, time.February, 25, 14, 30, 0, 0, time.UTC),
			Status:      models.StatusSuccess,
			Description: "Payment received",
		},
		{
			ID:          "2",
			Kind:        models.KindSend,
			Amount:      decimal.NewFromFloat(45.50),
			Counterpart: "+1 234-567-8902",
			Date:        time.Date(2026, time.February, 24, 10, 15, 0, 0, time.UTC),
			Status:      models.StatusSuccess,
			Description: "Money sent",
		},
		{
			ID:          "3",
			Kind:        models.KindTopup,
			Amount:      decimal.NewFromFloat(200.00),
			Date:        time.Date(2026, time.February, 23, 16, 45, 0, 0, time.UTC),
			Status:      models.StatusSuccess,
			Description: "Wallet top up",
		},
		{
			ID:          "4",
			Kind:        models.KindSend,
			Amount:      decimal.NewFromFloat(75.00),
			Counterpart: "+1 234-567-8903",
			Date:        time.Date(2026, time.February, 22, 9, 20, 0, 0, time.UTC),
			Status:      models.StatusPending,
			Description: "Money sent",
		},
		{
			ID:          "5",
			Kind:        models.KindTopup,
			Amount:      decimal.NewFromFloat(100.00),
			Date:        time.Date(2026, time.February, 20, 12, 0, 0, 0, time.UTC),
			Status:      models.StatusFailed,
			Description: "Wallet top up",
		},
	}
}
