package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Stage is the position of a transaction id in its lifecycle.
type Stage uint8

const (
	StageEmpty Stage = iota
	StagePosted
	StageDisputed
	StageResolved
	StageChargedBack
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StagePosted:
		return "posted"
	case StageDisputed:
		return "disputed"
	case StageResolved:
		return "resolved"
	case StageChargedBack:
		return "charged_back"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Final reports whether no further event can be accepted at this stage.
func (s Stage) Final() bool {
	return s == StageResolved || s == StageChargedBack
}

// TxHistory is the append-only trail of events accepted for one transaction id.
// Events[0] is always the posting (deposit or withdrawal); the stage and the
// trail length move together.
type TxHistory struct {
	Stage  Stage              `json:"stage"`
	Events []TransactionEvent `json:"events"`
}

// Len is the number of events recorded for the transaction id.
func (h *TxHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Events)
}

// Posted returns the posting event this history was opened with.
func (h *TxHistory) Posted() (TransactionEvent, bool) {
	if h == nil || len(h.Events) == 0 || !h.Events[0].Kind.IsPosting() {
		return TransactionEvent{}, false
	}
	return h.Events[0], true
}

// AccountLedger is the per-account state. It is created on first reference
// and never deleted.
type AccountLedger struct {
	AccountID uint16
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
	History   map[uint32]*TxHistory
}

// NewAccountLedger returns an unlocked ledger with zero balances.
func NewAccountLedger(accountID uint16) *AccountLedger {
	zero := NormalizeAmount(decimal.Zero)
	return &AccountLedger{
		AccountID: accountID,
		Available: zero,
		Held:      zero,
		History:   make(map[uint32]*TxHistory),
	}
}

// Total is always derived: available plus held.
func (a *AccountLedger) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Balance returns a value copy of the balances for projection.
func (a *AccountLedger) Balance() AccountBalance {
	return AccountBalance{
		AccountID: a.AccountID,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}

// AccountBalance is one row of the final snapshot.
type AccountBalance struct {
	AccountID uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}
