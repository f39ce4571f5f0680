package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventProcessed is the audit record emitted for every ingested event,
// accepted or not.
type EventProcessed struct {
	RunID      string          `json:"run_id"`
	Sequence   uint64          `json:"sequence"`
	Kind       string          `json:"type"`
	AccountID  uint16          `json:"client"`
	TxID       uint32          `json:"tx"`
	Amount     decimal.Decimal `json:"amount"`
	Accepted   bool            `json:"accepted"`
	Reason     string          `json:"reason,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
