package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokenswap/internal/auth"
	"tokenswap/internal/config"
	"tokenswap/internal/ledger"
	"tokenswap/internal/ledger/memory"
	"tokenswap/internal/model"
	"tokenswap/internal/observability"
	"tokenswap/internal/program"
	"tokenswap/internal/registry"
	"tokenswap/internal/state"
	"tokenswap/internal/storage"
	"tokenswap/internal/storage/postgres"
)

// env is one CLI run's wiring of config, backend and program.
type env struct {
	cfg       config.Config
	logger    *zap.Logger
	programID model.AccountID
	program   *program.Program
	accounts  ledger.Accounts
	history   func(ctx context.Context, pool model.AccountID, limit int) ([]model.OperationRecord, error)
	registry  *prometheus.Registry
	closers   []func() error
}

func openEnv(ctx context.Context, cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	programID, err := model.ParseAccountID(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("parse program id: %w", err)
	}

	e := &env{
		cfg:       cfg,
		logger:    logger,
		programID: programID,
		registry:  prometheus.NewRegistry(),
	}
	guard := auth.NewGuard(logger)

	var (
		bank    ledger.Ledger
		store   registry.Store
		journal storage.Journal
	)
	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.MaxRetries, cfg.RetryBackoff)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		e.closers = append(e.closers, func() error { pg.Close(); return nil })
		bank, store, journal = pg, pg, pg
		e.accounts = pg
		e.history = pg.Operations
		logger.Debug("backend ready", zap.String("backend", cfg.Backend), zap.String("pg_dsn", redactDSN(cfg.PGDSN)))

	default:
		mem := memory.NewLedger()
		pools := registry.NewMemoryStore()
		files := state.NewFileStore(cfg.StateFile)
		snap, ok, err := files.Load()
		if err != nil {
			return nil, err
		}
		if ok {
			mem.Restore(snap.Accounts)
			pools.Restore(snap.Pools)
		}
		e.closers = append(e.closers, func() error {
			return files.Save(state.Snapshot{Accounts: mem.Accounts(), Pools: pools.Pools()})
		})
		jsonl := storage.NewJsonlStorage(cfg.Journal)
		bank, store, journal = mem, pools, jsonl
		e.accounts = mem
		e.history = func(_ context.Context, pool model.AccountID, limit int) ([]model.OperationRecord, error) {
			return filterHistory(cfg.Journal, pool, limit)
		}
		logger.Debug("backend ready",
			zap.String("backend", cfg.Backend),
			zap.String("state_file", cfg.StateFile),
			zap.Bool("restored", ok),
		)
	}

	e.program = program.New(program.Options{
		Registry: registry.New(store, guard, logger),
		Ledger:   bank,
		Guard:    guard,
		Journal:  journal,
		Metrics:  observability.NewMetrics(e.registry),
		Logger:   logger,
	})
	return e, nil
}

// Close persists state, writes metrics and releases the backend.
func (e *env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if e.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(e.cfg.MetricsFile, e.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	_ = e.logger.Sync()
	return errors.Join(errs...)
}

// withEnv opens the environment, runs fn and closes it, keeping fn's error first.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) (err error) {
	ctx := cmd.Context()
	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := e.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, e)
}

func filterHistory(path string, pool model.AccountID, limit int) ([]model.OperationRecord, error) {
	records, err := storage.ReadOperations(path)
	if err != nil {
		return nil, err
	}
	out := make([]model.OperationRecord, 0, len(records))
	for _, record := range records {
		if record.Pool != pool {
			continue
		}
		out = append(out, record)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func accountFlag(cmd *cobra.Command, name string) (model.AccountID, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return model.AccountID{}, fmt.Errorf("--%s is required", name)
	}
	id, err := model.ParseAccountID(raw)
	if err != nil {
		return model.AccountID{}, fmt.Errorf("--%s: %w", name, err)
	}
	return id, nil
}

// capabilityFlag issues a capability for the identity named by an --as style
// flag. The CLI is a trusted operator tool; signatures are not verified here.
func capabilityFlag(cmd *cobra.Command, name string) (auth.Capability, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return auth.Capability{}, nil
	}
	id, err := model.ParseAccountID(raw)
	if err != nil {
		return auth.Capability{}, fmt.Errorf("--%s: %w", name, err)
	}
	return auth.Issue(id), nil
}
