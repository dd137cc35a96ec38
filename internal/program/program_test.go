package program

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tokenswap/internal/auth"
	"tokenswap/internal/ledger"
	"tokenswap/internal/ledger/memory"
	"tokenswap/internal/model"
	"tokenswap/internal/observability"
	"tokenswap/internal/orchestrator"
	"tokenswap/internal/pricing"
	"tokenswap/internal/registry"
	"tokenswap/internal/storage"
)

var (
	authority = model.AccountID{1}
	trader    = model.AccountID{2}
	payer     = model.AccountID{3}

	poolAddr = model.AccountID{42}
	vaultA   = model.AccountID{10}
	vaultB   = model.AccountID{11}
	userA    = model.AccountID{20}
	userB    = model.AccountID{21}

	user = orchestrator.UserAccounts{TokenA: userA, TokenB: userB}
)

type fixture struct {
	program *Program
	bank    *memory.Ledger
	metrics *observability.Metrics
	logs    *observer.ObservedLogs
	journal string
}

func newFixture(t *testing.T, journal storage.Journal) *fixture {
	t.Helper()
	ctx := context.Background()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	bank := memory.NewLedger()
	for _, acct := range []struct{ id, owner model.AccountID }{
		{vaultA, authority}, {vaultB, authority}, {userA, trader}, {userB, trader},
	} {
		require.NoError(t, bank.OpenAccount(ctx, acct.id, acct.owner))
	}
	require.NoError(t, bank.Mint(ctx, userA, 5000))
	require.NoError(t, bank.Mint(ctx, userB, 5000))

	path := filepath.Join(t.TempDir(), "ops.jsonl")
	if journal == nil {
		journal = storage.NewJsonlStorage(path)
	}
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	p := New(Options{
		Registry: registry.New(registry.NewMemoryStore(), nil, logger),
		Ledger:   bank,
		Journal:  journal,
		Metrics:  metrics,
		Logger:   logger,
	})
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	return &fixture{program: p, bank: bank, metrics: metrics, logs: logs, journal: path}
}

func (f *fixture) createPool(t *testing.T, fee uint64) model.Pool {
	t.Helper()
	pool, err := f.program.CreatePool(context.Background(), CreatePoolRequest{
		Address:      poolAddr,
		VaultA:       vaultA,
		VaultB:       vaultB,
		Authority:    authority,
		FeeBps:       fee,
		AuthorityCap: auth.Issue(authority),
		PayerCap:     auth.Issue(payer),
	})
	require.NoError(t, err)
	return pool
}

func (f *fixture) balance(t *testing.T, id model.AccountID) uint64 {
	t.Helper()
	account, err := f.bank.Account(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createPool(t, 30)

	require.NoError(t, f.program.Deposit(ctx, DepositRequest{
		Pool: poolAddr, User: user, AmountA: 1000, AmountB: 1000, UserCap: auth.Issue(trader),
	}))
	reserveA, reserveB, err := f.program.Reserves(ctx, poolAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), reserveA)
	assert.Equal(t, uint64(1000), reserveB)

	quote, err := f.program.Quote(ctx, poolAddr, vaultA, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(88), quote.AmountOut)

	result, err := f.program.Swap(ctx, SwapRequest{
		Pool: poolAddr, Source: vaultA, Destination: vaultB, AmountIn: 100, MinAmountOut: 88,
		AuthorityCap: auth.Issue(authority),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(88), result.AmountOut)
	assert.Equal(t, uint64(912), f.balance(t, vaultA))
	assert.Equal(t, uint64(1088), f.balance(t, vaultB))

	require.NoError(t, f.program.Withdraw(ctx, WithdrawRequest{
		Pool: poolAddr, User: user, AmountA: 12, AmountB: 88, AuthorityCap: auth.Issue(authority),
	}))
	assert.Equal(t, uint64(900), f.balance(t, vaultA))
	assert.Equal(t, uint64(1000), f.balance(t, vaultB))
	assert.Equal(t, uint64(4012), f.balance(t, userA))
	assert.Equal(t, uint64(4088), f.balance(t, userB))

	records, err := storage.ReadOperations(f.journal)
	require.NoError(t, err)
	require.Len(t, records, 4)
	kinds := []model.OperationKind{records[0].Kind, records[1].Kind, records[2].Kind, records[3].Kind}
	assert.Equal(t, []model.OperationKind{
		model.OperationCreatePool, model.OperationDeposit, model.OperationSwap, model.OperationWithdraw,
	}, kinds)

	swap := records[2]
	assert.Equal(t, authority, swap.Actor)
	assert.Equal(t, uint64(100), swap.AmountIn)
	assert.Equal(t, uint64(88), swap.AmountOut)
	assert.Equal(t, uint64(1000), swap.ReserveIn)
	require.NotNil(t, swap.Source)
	assert.Equal(t, vaultA, *swap.Source)
	assert.Equal(t, "2024-01-02T03:04:05Z", swap.Timestamp)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("swap", "ok")))
	assert.Equal(t, 4, f.logs.FilterMessage("operation committed").Len())
}

func TestSwapSlippageIsCountedAndNotJournaled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createPool(t, 30)
	require.NoError(t, f.program.Deposit(ctx, DepositRequest{
		Pool: poolAddr, User: user, AmountA: 1000, AmountB: 1000, UserCap: auth.Issue(trader),
	}))

	_, err := f.program.Swap(ctx, SwapRequest{
		Pool: poolAddr, Source: vaultA, Destination: vaultB, AmountIn: 100, MinAmountOut: 89,
		AuthorityCap: auth.Issue(authority),
	})
	assert.ErrorIs(t, err, pricing.ErrSlippageExceeded)
	assert.Equal(t, uint64(1000), f.balance(t, vaultA))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SlippageRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("swap", "slippage")))

	records, err := storage.ReadOperations(f.journal)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTraderCannotSelfAuthorizeSwapOrWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createPool(t, 30)
	require.NoError(t, f.program.Deposit(ctx, DepositRequest{
		Pool: poolAddr, User: user, AmountA: 1000, AmountB: 1000, UserCap: auth.Issue(trader),
	}))

	_, err := f.program.Swap(ctx, SwapRequest{
		Pool: poolAddr, Source: vaultA, Destination: vaultB, AmountIn: 100, AuthorityCap: auth.Issue(trader),
	})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	err = f.program.Withdraw(ctx, WithdrawRequest{
		Pool: poolAddr, User: user, AmountA: 1, AmountB: 1, AuthorityCap: auth.Issue(trader),
	})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	assert.Equal(t, uint64(1000), f.balance(t, vaultA))
	assert.Equal(t, uint64(1000), f.balance(t, vaultB))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("swap", "unauthorized"))+
		testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("withdraw", "unauthorized")))
}

func TestDepositInsufficientFundsLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.createPool(t, 30)

	err := f.program.Deposit(ctx, DepositRequest{
		Pool: poolAddr, User: user, AmountA: 10, AmountB: 5001, UserCap: auth.Issue(trader),
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, uint64(0), f.balance(t, vaultA))
	assert.Equal(t, uint64(5000), f.balance(t, userA))
}

func TestUnknownPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	err := f.program.Deposit(ctx, DepositRequest{Pool: poolAddr, User: user, AmountA: 1, AmountB: 1, UserCap: auth.Issue(trader)})
	assert.ErrorIs(t, err, registry.ErrNotFound)
	_, _, err = f.program.Reserves(ctx, poolAddr)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	_, err = f.program.Pool(ctx, poolAddr)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestCreatePoolFeeBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	req := CreatePoolRequest{
		Address: poolAddr, VaultA: vaultA, VaultB: vaultB, Authority: authority, FeeBps: 1000,
		AuthorityCap: auth.Issue(authority), PayerCap: auth.Issue(payer),
	}
	_, err := f.program.CreatePool(ctx, req)
	assert.ErrorIs(t, err, registry.ErrInvalidFee)

	req.FeeBps = 999
	pool, err := f.program.CreatePool(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), pool.FeeBps)

	_, err = f.program.CreatePool(ctx, req)
	assert.ErrorIs(t, err, registry.ErrAlreadyExists)
}

type failingJournal struct{}

func (failingJournal) PutOperationBatch(context.Context, []model.OperationRecord) error {
	return errors.New("disk full")
}

func TestJournalFailureDoesNotUndoOperation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingJournal{})
	f.createPool(t, 30)

	require.NoError(t, f.program.Deposit(ctx, DepositRequest{
		Pool: poolAddr, User: user, AmountA: 7, AmountB: 9, UserCap: auth.Issue(trader),
	}))
	assert.Equal(t, uint64(7), f.balance(t, vaultA))
	assert.Equal(t, uint64(9), f.balance(t, vaultB))

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.JournalFailures))
	assert.Equal(t, 2, f.logs.FilterMessage("journal write failed").Len())
}

func TestOperationStatus(t *testing.T) {
	assert.Equal(t, statusOK, operationStatus(nil))
	assert.Equal(t, statusSlippage, operationStatus(pricing.ErrSlippageExceeded))
	assert.Equal(t, statusUnauthorized, operationStatus(auth.ErrMissingSigner))
	assert.Equal(t, statusInvalid, operationStatus(pricing.ErrInvalidVault))
	assert.Equal(t, statusFailed, operationStatus(ledger.ErrInsufficientFunds))
}
