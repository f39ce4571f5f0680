// Package sequence stamps events with their arrival ordinal.
//
// Ordinals live only for the duration of a run; they are not persisted, so a
// restarted run numbers its events from the start again.
package sequence

import (
	"context"
	"sync/atomic"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

// Sequencer hands out strictly increasing ordinals starting at zero.
type Sequencer struct {
	next atomic.Uint64
}

func New() *Sequencer {
	return &Sequencer{}
}

// Stamp returns ev carrying the next ordinal.
func (s *Sequencer) Stamp(ev models.TransactionEvent) models.TransactionEvent {
	ev.Sequence = s.next.Add(1) - 1
	return ev
}

// Issued is the number of ordinals handed out so far.
func (s *Sequencer) Issued() uint64 {
	return s.next.Load()
}

// Source stamps every event read from an underlying source.
type Source struct {
	src interfaces.EventSource
	seq *Sequencer
}

func NewSource(src interfaces.EventSource, seq *Sequencer) *Source {
	return &Source{src: src, seq: seq}
}

func (s *Source) Next(ctx context.Context) (models.TransactionEvent, error) {
	ev, err := s.src.Next(ctx)
	if err != nil {
		return ev, err
	}
	return s.seq.Stamp(ev), nil
}

var _ interfaces.EventSource = (*Source)(nil)
