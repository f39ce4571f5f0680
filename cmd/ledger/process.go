package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/projection"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/sequence"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/source/csvsource"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/storage/memory"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/storage/postgres"
	"go.uber.org/zap"
)

type processCmd struct {
	out     io.Writer
	shards  int
	publish bool
	persist bool
}

func (*processCmd) Name() string { return "process" }
func (*processCmd) Synopsis() string {
	return "compute final balances from a CSV file of transactions"
}
func (*processCmd) Usage() string {
	return `ledger process [-shards <n>] [-publish] [-persist] <transactions.csv>

  Reads the chronological list of client transactions, applies them in order
  and writes one row per client (client,available,held,total,locked) to
  standard output. Rejected transactions are reported in the log.
`
}

func (p *processCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.shards, "shards", 0, "Number of account shards processed in parallel (defaults to LEDGER_SHARDS).")
	f.BoolVar(&p.publish, "publish", false, "Publish an audit record per event to KAFKA_BROKERS.")
	f.BoolVar(&p.persist, "persist", false, "Save the final balances to DATABASE_URL.")
}

func (p *processCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Invalid! Input must be path to file that exists on the filesystem.")
		return subcommands.ExitUsageError
	}

	cfg, logger, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	shards := cfg.Shards
	if p.shards > 0 {
		shards = p.shards
	}

	src, err := csvsource.Open(f.Arg(0))
	if err != nil {
		logger.Error("encountered error while processing data", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer src.Close()

	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithRunID(runID)}
	if p.publish {
		if len(cfg.KafkaBrokers) == 0 {
			logger.Error("-publish requires KAFKA_BROKERS")
			return subcommands.ExitFailure
		}
		pub := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer pub.Close()
		opts = append(opts, ledger.WithPublisher(pub))
	}

	var sink interfaces.BalanceSink
	if p.persist {
		if cfg.DatabaseURL == "" {
			logger.Error("-persist requires DATABASE_URL")
			return subcommands.ExitFailure
		}
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("could not open balance store", zap.Error(err))
			return subcommands.ExitFailure
		}
		defer store.Close()
		sink = store
	}

	logger.Info("processing transactions", zap.String("input", f.Arg(0)), zap.Int("shards", shards))
	balances, stats, err := process(ctx, sequence.NewSource(src, sequence.New()), shards, opts...)
	if err != nil {
		logger.Error("encountered error while processing data", zap.Error(err))
		return subcommands.ExitFailure
	}

	if err := projection.WriteCSV(p.out, balances); err != nil {
		logger.Error("could not write balances", zap.Error(err))
		return subcommands.ExitFailure
	}
	if sink != nil {
		if err := sink.SaveBalances(ctx, runID, balances); err != nil {
			logger.Error("could not persist balances", zap.Error(err))
			return subcommands.ExitFailure
		}
	}

	logger.Debug("done processing!",
		zap.Int("accounts", len(balances)),
		zap.Uint64("accepted", stats.Accepted),
		zap.Uint64("rejected", stats.Rejected),
	)
	return subcommands.ExitSuccess
}

// process drains src into the ledger and returns the final balances. A
// source error aborts the run; rejected events do not.
func process(ctx context.Context, src interfaces.EventSource, shards int, opts ...ledger.Option) ([]models.AccountBalance, ledger.Stats, error) {
	if shards <= 1 {
		l := ledger.NewLedger(memory.NewMemoryLedgerStore(), opts...)
		for {
			ev, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return l.Snapshot(), l.Stats(), nil
			}
			if err != nil {
				return nil, ledger.Stats{}, err
			}
			// Rejections are reported through the ledger logger.
			_ = l.Ingest(ctx, ev)
		}
	}

	newStore := func() interfaces.LedgerStore { return memory.NewMemoryLedgerStore() }
	s := ledger.NewSharded(ctx, shards, newStore, opts...)
	for {
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err == nil {
			err = s.Submit(ctx, ev)
		}
		if err != nil {
			s.Close()
			return nil, ledger.Stats{}, err
		}
	}
	s.Close()
	return s.Snapshot(), s.Stats(), nil
}
