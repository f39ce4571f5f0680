package ledger

import (
	"errors"
	"fmt"

	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

var (
	// ErrInsufficientFunds indicates a withdrawal larger than the available funds.
	// The withdrawal is still recorded in the history of its transaction id.
	ErrInsufficientFunds = errors.New("insufficient available funds")

	// ErrDuplicateTransaction indicates a deposit or withdrawal reusing a posted tx id
	ErrDuplicateTransaction = errors.New("transaction id already posted")

	// ErrAccountLocked indicates a restricted operation on a charged-back account
	ErrAccountLocked = errors.New("account is locked")

	// ErrUnknownTransaction indicates a reference to a tx id never posted on the account
	ErrUnknownTransaction = errors.New("no posted transaction with this id")

	// ErrAlreadyDisputed indicates a second dispute on the same tx id
	ErrAlreadyDisputed = errors.New("transaction already disputed")

	// ErrNotDisputed indicates a resolve or chargeback on an undisputed tx id
	ErrNotDisputed = errors.New("transaction is not under dispute")

	// ErrTransactionFinalized indicates any event after a resolve or chargeback
	ErrTransactionFinalized = errors.New("transaction already resolved or charged back")

	// ErrInconsistentHistory indicates a history that breaks its own stage
	// invariants. It should be unreachable.
	ErrInconsistentHistory = errors.New("internal consistency violation in transaction history")

	// ErrUnknownKind indicates an event kind outside the closed set
	ErrUnknownKind = errors.New("unknown event kind")
)

// RejectionError reports a dropped event with enough context for audit.
type RejectionError struct {
	Event  models.TransactionEvent
	Reason error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s (tx %d, client %d, seq %d) rejected: %v",
		e.Event.Kind, e.Event.TxID, e.Event.AccountID, e.Event.Sequence, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// IsInternal reports whether err is an internal consistency failure rather
// than an ordinary semantic rejection.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInconsistentHistory) || errors.Is(err, ErrUnknownKind)
}
