// Package program exposes the pool's externally invokable entry points. Each
// mutating call runs as one host invocation over the accounts it declares and
// is journaled after it commits.
package program

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tokenswap/internal/auth"
	"tokenswap/internal/ledger"
	"tokenswap/internal/model"
	"tokenswap/internal/observability"
	"tokenswap/internal/orchestrator"
	"tokenswap/internal/pricing"
	"tokenswap/internal/registry"
	"tokenswap/internal/storage"
)

type CreatePoolRequest struct {
	Address      model.AccountID
	VaultA       model.AccountID
	VaultB       model.AccountID
	Authority    model.AccountID
	FeeBps       uint64
	AuthorityCap auth.Capability
	PayerCap     auth.Capability
}

type DepositRequest struct {
	Pool    model.AccountID
	User    orchestrator.UserAccounts
	AmountA uint64
	AmountB uint64
	UserCap auth.Capability
}

type SwapRequest struct {
	Pool         model.AccountID
	Source       model.AccountID
	Destination  model.AccountID
	AmountIn     uint64
	MinAmountOut uint64
	AuthorityCap auth.Capability
}

type WithdrawRequest struct {
	Pool         model.AccountID
	User         orchestrator.UserAccounts
	AmountA      uint64
	AmountB      uint64
	AuthorityCap auth.Capability
}

// Options configures a Program. Journal, Metrics and Logger are optional.
type Options struct {
	Registry *registry.Registry
	Ledger   ledger.Ledger
	Guard    *auth.Guard
	Journal  storage.Journal
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

type Program struct {
	registry *registry.Registry
	ledger   ledger.Ledger
	orch     *orchestrator.Orchestrator
	journal  storage.Journal
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func New(opts Options) *Program {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	journal := opts.Journal
	if journal == nil {
		journal = storage.Discard{}
	}
	guard := opts.Guard
	if guard == nil {
		guard = auth.NewGuard(logger)
	}
	return &Program{
		registry: opts.Registry,
		ledger:   opts.Ledger,
		orch:     orchestrator.New(guard),
		journal:  journal,
		metrics:  opts.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CreatePool allocates a pool record.
func (p *Program) CreatePool(ctx context.Context, req CreatePoolRequest) (model.Pool, error) {
	start := time.Now()
	pool, err := p.registry.Create(ctx, registry.CreateParams{
		Address:   req.Address,
		VaultA:    req.VaultA,
		VaultB:    req.VaultB,
		Authority: req.Authority,
		FeeBps:    req.FeeBps,
	}, req.AuthorityCap, req.PayerCap)
	p.finish(model.OperationCreatePool, req.Address, start, err)
	if err != nil {
		return model.Pool{}, err
	}

	p.record(ctx, model.OperationRecord{
		Kind:   model.OperationCreatePool,
		Pool:   pool.Address,
		Actor:  req.AuthorityCap.Identity(),
		FeeBps: pool.FeeBps,
	})
	return pool, nil
}

// Deposit moves liquidity from the user's accounts into the vaults.
func (p *Program) Deposit(ctx context.Context, req DepositRequest) error {
	start := time.Now()
	pool, err := p.registry.Get(ctx, req.Pool)
	if err == nil {
		accounts := []model.AccountID{pool.VaultA, pool.VaultB, req.User.TokenA, req.User.TokenB}
		err = p.ledger.Atomically(ctx, accounts, func(ctx context.Context, tx ledger.Tx) error {
			return p.orch.Deposit(ctx, tx, pool, req.User, req.AmountA, req.AmountB, req.UserCap)
		})
	}
	p.finish(model.OperationDeposit, req.Pool, start, err)
	if err != nil {
		return err
	}

	p.record(ctx, model.OperationRecord{
		Kind:    model.OperationDeposit,
		Pool:    pool.Address,
		Actor:   req.UserCap.Identity(),
		FeeBps:  pool.FeeBps,
		AmountA: req.AmountA,
		AmountB: req.AmountB,
	})
	return nil
}

// Swap prices and executes a swap under the pool authority.
func (p *Program) Swap(ctx context.Context, req SwapRequest) (orchestrator.SwapResult, error) {
	start := time.Now()
	var result orchestrator.SwapResult
	pool, err := p.registry.Get(ctx, req.Pool)
	if err == nil {
		accounts := []model.AccountID{pool.VaultA, pool.VaultB, req.Source, req.Destination}
		err = p.ledger.Atomically(ctx, accounts, func(ctx context.Context, tx ledger.Tx) error {
			var err error
			result, err = p.orch.Swap(ctx, tx, pool, req.Source, req.Destination, req.AmountIn, req.MinAmountOut, req.AuthorityCap)
			return err
		})
	}
	p.finish(model.OperationSwap, req.Pool, start, err)
	if err != nil {
		return orchestrator.SwapResult{}, err
	}

	p.metrics.ObserveSwap(result.AmountIn, result.AmountOut)
	source, destination := result.Source, result.Destination
	p.record(ctx, model.OperationRecord{
		Kind:        model.OperationSwap,
		Pool:        pool.Address,
		Actor:       req.AuthorityCap.Identity(),
		FeeBps:      pool.FeeBps,
		AmountIn:    result.AmountIn,
		AmountOut:   result.AmountOut,
		Source:      &source,
		Destination: &destination,
		ReserveIn:   result.ReserveIn,
		ReserveOut:  result.ReserveOut,
	})
	return result, nil
}

// Withdraw moves liquidity from the vaults to the user's accounts under the
// pool authority.
func (p *Program) Withdraw(ctx context.Context, req WithdrawRequest) error {
	start := time.Now()
	pool, err := p.registry.Get(ctx, req.Pool)
	if err == nil {
		accounts := []model.AccountID{pool.VaultA, pool.VaultB, req.User.TokenA, req.User.TokenB}
		err = p.ledger.Atomically(ctx, accounts, func(ctx context.Context, tx ledger.Tx) error {
			return p.orch.Withdraw(ctx, tx, pool, req.User, req.AmountA, req.AmountB, req.AuthorityCap)
		})
	}
	p.finish(model.OperationWithdraw, req.Pool, start, err)
	if err != nil {
		return err
	}

	p.record(ctx, model.OperationRecord{
		Kind:    model.OperationWithdraw,
		Pool:    pool.Address,
		Actor:   req.AuthorityCap.Identity(),
		FeeBps:  pool.FeeBps,
		AmountA: req.AmountA,
		AmountB: req.AmountB,
	})
	return nil
}

// Pool returns the pool record.
func (p *Program) Pool(ctx context.Context, address model.AccountID) (model.Pool, error) {
	return p.registry.Get(ctx, address)
}

// Reserves reads both vault balances in one invocation.
func (p *Program) Reserves(ctx context.Context, address model.AccountID) (uint64, uint64, error) {
	pool, err := p.registry.Get(ctx, address)
	if err != nil {
		return 0, 0, err
	}
	var reserveA, reserveB uint64
	err = p.ledger.Atomically(ctx, []model.AccountID{pool.VaultA, pool.VaultB}, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		if reserveA, err = tx.Balance(ctx, pool.VaultA); err != nil {
			return err
		}
		reserveB, err = tx.Balance(ctx, pool.VaultB)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return reserveA, reserveB, nil
}

// Quote simulates a swap from source against the live reserves.
func (p *Program) Quote(ctx context.Context, address, source model.AccountID, amountIn, minAmountOut uint64) (orchestrator.SwapResult, error) {
	pool, err := p.registry.Get(ctx, address)
	if err != nil {
		return orchestrator.SwapResult{}, err
	}
	var result orchestrator.SwapResult
	err = p.ledger.Atomically(ctx, []model.AccountID{pool.VaultA, pool.VaultB}, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		result, err = orchestrator.Quote(ctx, tx, pool, source, amountIn, minAmountOut)
		return err
	})
	if err != nil {
		return orchestrator.SwapResult{}, err
	}
	return result, nil
}

func (p *Program) finish(kind model.OperationKind, pool model.AccountID, start time.Time, err error) {
	status := operationStatus(err)
	p.metrics.ObserveOperation(kind, status, time.Since(start))
	if status == statusSlippage {
		p.metrics.SlippageRejected()
	}
	if err != nil {
		p.logger.Warn("operation rejected",
			zap.String("kind", string(kind)),
			zap.Stringer("pool", pool),
			zap.String("status", status),
			zap.Error(err),
		)
		return
	}
	p.logger.Info("operation committed",
		zap.String("kind", string(kind)),
		zap.Stringer("pool", pool),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// record journals a committed operation. The operation has already taken
// effect, so a journal failure is logged and counted but not returned.
func (p *Program) record(ctx context.Context, rec model.OperationRecord) {
	rec.Timestamp = p.now().UTC().Format(time.RFC3339Nano)
	if err := p.journal.PutOperationBatch(ctx, []model.OperationRecord{rec}); err != nil {
		p.metrics.JournalFailed()
		p.logger.Error("journal write failed",
			zap.String("kind", string(rec.Kind)),
			zap.Stringer("pool", rec.Pool),
			zap.Error(err),
		)
	}
}

const (
	statusOK           = "ok"
	statusSlippage     = "slippage"
	statusUnauthorized = "unauthorized"
	statusInvalid      = "invalid"
	statusFailed       = "failed"
)

func operationStatus(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, pricing.ErrSlippageExceeded):
		return statusSlippage
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrMissingSigner):
		return statusUnauthorized
	case errors.Is(err, pricing.ErrInvalidFee), errors.Is(err, pricing.ErrInvalidVault),
		errors.Is(err, pricing.ErrEmptyReserves), errors.Is(err, registry.ErrIdenticalVaults),
		errors.Is(err, registry.ErrInvalidAddress), errors.Is(err, registry.ErrAlreadyExists),
		errors.Is(err, registry.ErrNotFound):
		return statusInvalid
	default:
		return statusFailed
	}
}
