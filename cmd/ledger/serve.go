package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/events/kafka"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/httpapi"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/sequence"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/storage/memory"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger over HTTP" }
func (*serveCmd) Usage() string {
	return `ledger serve [-addr <host:port>]

  Accepts transaction events one at a time on POST /events and exposes the
  current balances on GET /accounts and GET /accounts/balance?client=<id>.
  When KAFKA_BROKERS is set every processed event is published as an audit
  record.
`
}

func (p *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.addr, "addr", "", "Listen address (defaults to LEDGER_HTTP_ADDR).")
}

func (p *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer logger.Sync()

	addr := cfg.HTTPAddr
	if p.addr != "" {
		addr = p.addr
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithRunID(runID)}
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer pub.Close()
		opts = append(opts, ledger.WithPublisher(pub))
	}

	api := httpapi.NewServer(ledger.NewLedger(memory.NewMemoryLedgerStore(), opts...), sequence.New(), logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
			return subcommands.ExitFailure
		}
		logger.Info("server stopped")
	}
	return subcommands.ExitSuccess
}
