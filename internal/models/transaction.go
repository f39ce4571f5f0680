package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits carried by every amount.
const Precision = 4

// Kind is the type of a transaction event.
type Kind uint8

const (
	Deposit Kind = iota + 1
	Withdrawal
	Dispute
	Resolve
	Chargeback
)

func (k Kind) String() string {
	switch k {
	case Deposit:
		return "deposit"
	case Withdrawal:
		return "withdrawal"
	case Dispute:
		return "dispute"
	case Resolve:
		return "resolve"
	case Chargeback:
		return "chargeback"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsPosting reports whether events of this kind move funds on their own
// (deposit and withdrawal), as opposed to referencing a posted transaction.
func (k Kind) IsPosting() bool {
	return k == Deposit || k == Withdrawal
}

// ParseKind parses the lowercase name of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return Deposit, nil
	case "withdrawal":
		return Withdrawal, nil
	case "dispute":
		return Dispute, nil
	case "resolve":
		return Resolve, nil
	case "chargeback":
		return Chargeback, nil
	default:
		return 0, fmt.Errorf("unknown transaction type: %q", s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TransactionEvent is one immutable row of the input log.
// Amount is only meaningful for deposits and withdrawals.
// Sequence is stamped by the sequencer and reflects arrival order.
type TransactionEvent struct {
	Kind      Kind            `json:"type"`
	AccountID uint16          `json:"client"`
	TxID      uint32          `json:"tx"`
	Amount    decimal.Decimal `json:"amount"`
	Sequence  uint64          `json:"sequence"`
}

// NormalizeAmount rounds an amount to Precision fractional digits.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// ParseAmount parses a decimal literal. Empty input is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NormalizeAmount(decimal.Zero), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return NormalizeAmount(d), nil
}
