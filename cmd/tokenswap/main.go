package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tokenswap",
		Short:        "Constant-product token swap pool",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("backend", "memory", "ledger backend (memory, postgres)")
	flags.String("state-file", "./data/state.json", "memory backend state file")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("journal", "./data/operations.jsonl", "operation journal JSONL path (memory backend)")
	flags.String("program-id", "", "program id pool addresses are derived under")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")
	flags.Int("max-retries", 5, "maximum connection retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newPoolCmd(), newLiquidityCmd(), newSwapCmd(), newAccountCmd(), newMigrateCmd())
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
