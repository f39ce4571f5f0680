// Command ledger computes account balances from a chronological log of
// deposits, withdrawals, disputes, resolutions and chargebacks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/config"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/logging"
	"go.uber.org/zap"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var envFile = flag.String("env-file", ".env", "Path to an optional dotenv file")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&processCmd{out: os.Stdout}, "")
	commander.Register(&serveCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// setup loads the configuration and builds the logger shared by all commands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("could not configure logging: %w", err)
	}
	return cfg, logger, nil
}
