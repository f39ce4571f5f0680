package ledger

import (
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

// Apply runs one event against one account ledger. It returns nil when the
// event is accepted, or the reason it was rejected. A rejected event never
// mutates balances; the only rejected event that is recorded in history is a
// withdrawal refused for insufficient funds.
//
// Events for the same account must be applied in arrival order.
func Apply(acct *models.AccountLedger, ev models.TransactionEvent) error {
	switch ev.Kind {
	case models.Deposit:
		return applyDeposit(acct, ev)
	case models.Withdrawal:
		return applyWithdrawal(acct, ev)
	case models.Dispute:
		return applyDispute(acct, ev)
	case models.Resolve:
		return applyResolve(acct, ev)
	case models.Chargeback:
		return applyChargeback(acct, ev)
	default:
		return ErrUnknownKind
	}
}

// depth is the number of events a history holds at the given stage.
func depth(s models.Stage) int {
	switch s {
	case models.StageEmpty:
		return 0
	case models.StagePosted:
		return 1
	case models.StageDisputed:
		return 2
	case models.StageResolved, models.StageChargedBack:
		return 3
	default:
		return -1
	}
}

// stageOf returns the current stage of tx, checking that the stage and the
// trail length agree.
func stageOf(acct *models.AccountLedger, txID uint32) (models.Stage, error) {
	h, ok := acct.History[txID]
	if !ok {
		return models.StageEmpty, nil
	}
	if h.Len() != depth(h.Stage) {
		return h.Stage, ErrInconsistentHistory
	}
	return h.Stage, nil
}

func record(acct *models.AccountLedger, ev models.TransactionEvent, next models.Stage) {
	h, ok := acct.History[ev.TxID]
	if !ok {
		h = &models.TxHistory{}
		acct.History[ev.TxID] = h
	}
	h.Events = append(h.Events, ev)
	h.Stage = next
}

func applyDeposit(acct *models.AccountLedger, ev models.TransactionEvent) error {
	stage, err := stageOf(acct, ev.TxID)
	if err != nil {
		return err
	}
	if stage != models.StageEmpty {
		return ErrDuplicateTransaction
	}

	// Deposits are accepted on locked accounts too.
	acct.Available = acct.Available.Add(ev.Amount)
	record(acct, ev, models.StagePosted)
	return nil
}

func applyWithdrawal(acct *models.AccountLedger, ev models.TransactionEvent) error {
	if acct.Locked {
		return ErrAccountLocked
	}
	stage, err := stageOf(acct, ev.TxID)
	if err != nil {
		return err
	}
	if stage != models.StageEmpty {
		return ErrDuplicateTransaction
	}

	if ev.Amount.GreaterThan(acct.Available) {
		// Kept as a posted reference so a later dispute can target it.
		record(acct, ev, models.StagePosted)
		return ErrInsufficientFunds
	}

	acct.Available = acct.Available.Sub(ev.Amount)
	record(acct, ev, models.StagePosted)
	return nil
}

func applyDispute(acct *models.AccountLedger, ev models.TransactionEvent) error {
	if acct.Locked {
		return ErrAccountLocked
	}
	stage, err := stageOf(acct, ev.TxID)
	if err != nil {
		return err
	}
	switch stage {
	case models.StageEmpty:
		return ErrUnknownTransaction
	case models.StagePosted:
	case models.StageDisputed:
		return ErrAlreadyDisputed
	case models.StageResolved, models.StageChargedBack:
		return ErrTransactionFinalized
	default:
		return ErrInconsistentHistory
	}

	prior, ok := acct.History[ev.TxID].Posted()
	if !ok {
		return ErrInconsistentHistory
	}

	switch prior.Kind {
	case models.Withdrawal:
		// Funds already left available; hold the amount at risk of reversal.
		acct.Held = acct.Held.Add(prior.Amount)
	case models.Deposit:
		acct.Available = acct.Available.Sub(prior.Amount)
		acct.Held = acct.Held.Add(prior.Amount)
	default:
		return ErrInconsistentHistory
	}
	record(acct, ev, models.StageDisputed)
	return nil
}

// disputedPrior checks that tx is under dispute on an unlocked account and
// returns the posting it was opened with.
func disputedPrior(acct *models.AccountLedger, txID uint32) (models.TransactionEvent, error) {
	if acct.Locked {
		return models.TransactionEvent{}, ErrAccountLocked
	}
	stage, err := stageOf(acct, txID)
	if err != nil {
		return models.TransactionEvent{}, err
	}
	switch stage {
	case models.StageEmpty:
		return models.TransactionEvent{}, ErrUnknownTransaction
	case models.StagePosted:
		return models.TransactionEvent{}, ErrNotDisputed
	case models.StageDisputed:
	case models.StageResolved, models.StageChargedBack:
		return models.TransactionEvent{}, ErrTransactionFinalized
	default:
		return models.TransactionEvent{}, ErrInconsistentHistory
	}

	prior, ok := acct.History[txID].Posted()
	if !ok {
		return models.TransactionEvent{}, ErrInconsistentHistory
	}
	return prior, nil
}

func applyResolve(acct *models.AccountLedger, ev models.TransactionEvent) error {
	prior, err := disputedPrior(acct, ev.TxID)
	if err != nil {
		return err
	}

	acct.Held = acct.Held.Sub(prior.Amount)
	acct.Available = acct.Available.Add(prior.Amount)
	record(acct, ev, models.StageResolved)
	return nil
}

func applyChargeback(acct *models.AccountLedger, ev models.TransactionEvent) error {
	prior, err := disputedPrior(acct, ev.TxID)
	if err != nil {
		return err
	}

	acct.Held = acct.Held.Sub(prior.Amount)
	acct.Locked = true
	record(acct, ev, models.StageChargedBack)
	return nil
}
