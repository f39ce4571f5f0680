package interfaces

import (
	"context"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

// LedgerStore owns the account_id -> AccountLedger mapping.
type LedgerStore interface {
	// GetOrCreate returns the ledger for the account, constructing a fresh
	// one on first sight.
	GetOrCreate(accountID uint16) *models.AccountLedger
	Get(accountID uint16) (*models.AccountLedger, bool)
	Accounts() []*models.AccountLedger
}

// BalanceSink receives the final snapshot of a run.
type BalanceSink interface {
	SaveBalances(ctx context.Context, runID string, balances []models.AccountBalance) error
}

// EventSource yields validated events in arrival order. Next returns io.EOF
// once the stream is exhausted; any other error is fatal to the run.
type EventSource interface {
	Next(ctx context.Context) (models.TransactionEvent, error)
}
