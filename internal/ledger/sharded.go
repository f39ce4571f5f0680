package ledger

import (
	"context"
	"sort"
	"sync"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

const defaultQueueSize = 256

// Sharded partitions accounts over independent ledgers by account id modulo
// the shard count. Each shard drains its own queue on its own goroutine, so
// the order of events within an account is the order they were submitted in.
// There is no ordering across shards.
type Sharded struct {
	shards []*shard
	wg     sync.WaitGroup
}

type shard struct {
	ledger *Ledger
	queue  chan models.TransactionEvent
}

// NewSharded starts n shard workers. Each shard gets its own store from
// newStore and shares the given options.
func NewSharded(ctx context.Context, n int, newStore func() interfaces.LedgerStore, opts ...Option) *Sharded {
	if n < 1 {
		n = 1
	}
	s := &Sharded{shards: make([]*shard, n)}
	for i := range s.shards {
		sh := &shard{
			ledger: NewLedger(newStore(), opts...),
			queue:  make(chan models.TransactionEvent, defaultQueueSize),
		}
		s.shards[i] = sh
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for ev := range sh.queue {
				// Rejections are reported by the shard ledger itself.
				_ = sh.ledger.Ingest(ctx, ev)
			}
		}()
	}
	return s
}

func (s *Sharded) shardFor(accountID uint16) *shard {
	return s.shards[int(accountID)%len(s.shards)]
}

// Submit queues an event on the shard owning its account. It blocks while
// the shard queue is full. Submit must not be called after Close.
func (s *Sharded) Submit(ctx context.Context, ev models.TransactionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.shardFor(ev.AccountID).queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for every shard to drain.
func (s *Sharded) Close() {
	for _, sh := range s.shards {
		close(sh.queue)
	}
	s.wg.Wait()
}

// Snapshot merges the balances of all shards, ordered by account id.
// Call it after Close.
func (s *Sharded) Snapshot() []models.AccountBalance {
	var balances []models.AccountBalance
	for _, sh := range s.shards {
		balances = append(balances, sh.ledger.Snapshot()...)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].AccountID < balances[j].AccountID })
	return balances
}

func (s *Sharded) Stats() Stats {
	var total Stats
	for _, sh := range s.shards {
		st := sh.ledger.Stats()
		total.Accepted += st.Accepted
		total.Rejected += st.Rejected
	}
	return total
}
