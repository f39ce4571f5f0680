// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultHTTPAddr   = ":8080"
	DefaultKafkaTopic = "ledger_events"
)

type Config struct {
	Environment  string
	LogLevel     string
	Shards       int
	HTTPAddr     string
	KafkaBrokers []string
	KafkaTopic   string
	DatabaseURL  string
}

// Load reads the given dotenv files (".env" when none is given) and then the
// process environment. Missing dotenv files are not an error; variables
// already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("could not load %s: %w", f, err)
		}
	}

	cfg := Config{
		Environment: getenv("LEDGER_ENV", "production"),
		LogLevel:    os.Getenv("LEDGER_LOG_LEVEL"),
		HTTPAddr:    getenv("LEDGER_HTTP_ADDR", DefaultHTTPAddr),
		KafkaTopic:  getenv("KAFKA_TOPIC", DefaultKafkaTopic),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Shards:      1,
	}

	if v := strings.TrimSpace(os.Getenv("LEDGER_SHARDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("LEDGER_SHARDS must be a positive integer, got %q", v)
		}
		cfg.Shards = n
	}

	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
