package ledger

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models/events"
	"go.uber.org/zap"
)

// Ledger routes events to the account ledgers held by its store and runs the
// state machine on them. Each account is owned by one caller at a time through
// a per-account mutex, so Ingest is safe for concurrent use as long as events
// of the same account arrive in order.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher
	logger    *zap.Logger
	runID     string
	now       func() time.Time

	muMap map[uint16]*sync.Mutex // one mutex per account
	mapMu sync.Mutex             // protects muMap itself

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used as the reporting channel for rejections.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithPublisher publishes an events.EventProcessed for every ingested event.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithRunID tags audit records with the id of the current run.
func WithRunID(runID string) Option {
	return func(l *Ledger) { l.runID = runID }
}

// NewLedger creates a ledger service over the given store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
		muMap:  make(map[uint16]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) getAccountLock(accountID uint16) *sync.Mutex {
	// Guard the mutex map itself; the returned lock guards the account.
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	// First event for this account: create its mutex lazily
	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// Stamper assigns the arrival ordinal of an event.
type Stamper interface {
	Stamp(ev models.TransactionEvent) models.TransactionEvent
}

// Ingest applies one event to the ledger of its account, creating the ledger
// on first sight. It returns nil when the event is accepted and a
// *RejectionError otherwise. Rejections are never fatal: the event is dropped
// and the caller moves on to the next one.
func (l *Ledger) Ingest(ctx context.Context, ev models.TransactionEvent) error {
	_, err := l.ingest(ctx, ev, nil)
	return err
}

// IngestStamped is Ingest for callers that have not numbered the event yet.
// The ordinal is taken from stamper while the account lock is held, so within
// one account the sequence numbers follow the order events were applied in.
// The stamped event is returned whatever the outcome.
func (l *Ledger) IngestStamped(ctx context.Context, ev models.TransactionEvent, stamper Stamper) (models.TransactionEvent, error) {
	return l.ingest(ctx, ev, stamper)
}

func (l *Ledger) ingest(ctx context.Context, ev models.TransactionEvent, stamper Stamper) (models.TransactionEvent, error) {
	// Run the state machine under the account lock
	ev, err := l.apply(ev, stamper)

	// Log and publish the outcome outside the lock; a slow broker must not
	// hold up other events of the account.
	l.report(ctx, ev, err)

	if err != nil {
		l.rejected.Add(1)
		return ev, &RejectionError{Event: ev, Reason: err}
	}
	l.accepted.Add(1)
	return ev, nil
}

func (l *Ledger) apply(ev models.TransactionEvent, stamper Stamper) (models.TransactionEvent, error) {
	// Lock only the account we are modifying
	mu := l.getAccountLock(ev.AccountID)
	mu.Lock()
	defer mu.Unlock()

	// Number the event now that no other event of this account can overtake it
	if stamper != nil {
		ev = stamper.Stamp(ev)
	}

	// Unknown accounts are opened on first reference, even by a rejected event
	acct := l.store.GetOrCreate(ev.AccountID)

	// A rejected event leaves the balances as they were
	return ev, Apply(acct, ev)
}

func (l *Ledger) report(ctx context.Context, ev models.TransactionEvent, err error) {
	fields := []zap.Field{
		zap.Uint64("seq", ev.Sequence),
		zap.Stringer("kind", ev.Kind),
		zap.Uint16("client", ev.AccountID),
		zap.Uint32("tx", ev.TxID),
	}
	switch {
	case err == nil:
		l.logger.Debug("event applied", fields...)
	case IsInternal(err):
		l.logger.Error("event dropped", append(fields, zap.Error(err))...)
	default:
		l.logger.Warn("event rejected", append(fields, zap.Error(err))...)
	}

	if l.publisher == nil {
		return
	}
	record := events.EventProcessed{
		RunID:      l.runID,
		Sequence:   ev.Sequence,
		Kind:       ev.Kind.String(),
		AccountID:  ev.AccountID,
		TxID:       ev.TxID,
		Amount:     ev.Amount,
		Accepted:   err == nil,
		OccurredAt: l.now(),
	}
	if err != nil {
		record.Reason = err.Error()
	}
	if perr := l.publisher.Publish(ctx, accountKey(ev.AccountID), record); perr != nil {
		l.logger.Error("could not publish audit record", append(fields, zap.Error(perr))...)
	}
}

// Snapshot returns the balances of every account ordered by account id.
func (l *Ledger) Snapshot() []models.AccountBalance {
	accounts := l.store.Accounts()
	balances := make([]models.AccountBalance, 0, len(accounts))
	for _, acct := range accounts {
		mu := l.getAccountLock(acct.AccountID)
		mu.Lock()
		balances = append(balances, acct.Balance())
		mu.Unlock()
	}
	return balances
}

// Account returns the balance of one account, if it was ever referenced.
func (l *Ledger) Account(accountID uint16) (models.AccountBalance, bool) {
	acct, ok := l.store.Get(accountID)
	if !ok {
		return models.AccountBalance{}, false
	}
	mu := l.getAccountLock(accountID)
	mu.Lock()
	defer mu.Unlock()
	return acct.Balance(), true
}

// History returns a copy of the trail recorded for one transaction id.
func (l *Ledger) History(accountID uint16, txID uint32) (models.TxHistory, bool) {
	acct, ok := l.store.Get(accountID)
	if !ok {
		return models.TxHistory{}, false
	}
	mu := l.getAccountLock(accountID)
	mu.Lock()
	defer mu.Unlock()

	h, ok := acct.History[txID]
	if !ok {
		return models.TxHistory{}, false
	}
	return models.TxHistory{
		Stage:  h.Stage,
		Events: append([]models.TransactionEvent(nil), h.Events...),
	}, true
}

// Stats counts ingested events by outcome.
type Stats struct {
	Accepted uint64
	Rejected uint64
}

func (l *Ledger) Stats() Stats {
	return Stats{Accepted: l.accepted.Load(), Rejected: l.rejected.Load()}
}

// IsRejection reports whether err came from Ingest dropping an event.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// accountKey keys audit records by account so a partitioned topic keeps the
// per-account order.
func accountKey(accountID uint16) string {
	return strconv.FormatUint(uint64(accountID), 10)
}
