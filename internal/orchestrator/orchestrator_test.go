package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenswap/internal/auth"
	"tokenswap/internal/ledger"
	"tokenswap/internal/ledger/memory"
	"tokenswap/internal/model"
	"tokenswap/internal/pricing"
)

var (
	authority = model.AccountID{1}
	user      = model.AccountID{2}
	stranger  = model.AccountID{3}

	vaultA = model.AccountID{10}
	vaultB = model.AccountID{11}
	userA  = model.AccountID{20}
	userB  = model.AccountID{21}

	pool = model.Pool{
		Address:   model.AccountID{42},
		VaultA:    vaultA,
		VaultB:    vaultB,
		Authority: authority,
		FeeBps:    30,
	}
	accounts = UserAccounts{TokenA: userA, TokenB: userB}
	declared = []model.AccountID{vaultA, vaultB, userA, userB}
)

type transfer struct {
	from, to model.AccountID
	amount   uint64
}

// recordingTx wraps a host transaction, records transfers and fails the
// failOn-th call when set.
type recordingTx struct {
	ledger.Tx
	failOn    int
	transfers []transfer
}

var errStub = errors.New("stub transfer failure")

func (r *recordingTx) Transfer(ctx context.Context, from, to model.AccountID, amount uint64, authority auth.Capability) error {
	r.transfers = append(r.transfers, transfer{from: from, to: to, amount: amount})
	if r.failOn > 0 && len(r.transfers) == r.failOn {
		return errStub
	}
	return r.Tx.Transfer(ctx, from, to, amount, authority)
}

func newHost(t *testing.T) *memory.Ledger {
	t.Helper()
	ctx := context.Background()
	l := memory.NewLedger()
	require.NoError(t, l.OpenAccount(ctx, vaultA, authority))
	require.NoError(t, l.OpenAccount(ctx, vaultB, authority))
	require.NoError(t, l.OpenAccount(ctx, userA, user))
	require.NoError(t, l.OpenAccount(ctx, userB, user))
	require.NoError(t, l.Mint(ctx, vaultA, 1000))
	require.NoError(t, l.Mint(ctx, vaultB, 1000))
	require.NoError(t, l.Mint(ctx, userA, 500))
	require.NoError(t, l.Mint(ctx, userB, 500))
	return l
}

func balances(t *testing.T, l *memory.Ledger) map[model.AccountID]uint64 {
	t.Helper()
	out := make(map[model.AccountID]uint64)
	for _, id := range declared {
		account, err := l.Account(context.Background(), id)
		require.NoError(t, err)
		out[id] = account.Balance
	}
	return out
}

func run(t *testing.T, l *memory.Ledger, failOn int, fn func(ctx context.Context, tx ledger.Tx) error) (*recordingTx, error) {
	t.Helper()
	var rec *recordingTx
	err := l.Atomically(context.Background(), declared, func(ctx context.Context, tx ledger.Tx) error {
		rec = &recordingTx{Tx: tx, failOn: failOn}
		return fn(ctx, rec)
	})
	return rec, err
}

func TestDeposit(t *testing.T) {
	l := newHost(t)
	o := New(nil)

	rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		return o.Deposit(ctx, tx, pool, accounts, 100, 40, auth.Issue(user))
	})
	require.NoError(t, err)
	assert.Equal(t, []transfer{{userA, vaultA, 100}, {userB, vaultB, 40}}, rec.transfers)

	assert.Equal(t, map[model.AccountID]uint64{vaultA: 1100, vaultB: 1040, userA: 400, userB: 460}, balances(t, l))
}

func TestDepositIsAtomicWhenSecondTransferFails(t *testing.T) {
	l := newHost(t)
	before := balances(t, l)
	o := New(nil)

	rec, err := run(t, l, 2, func(ctx context.Context, tx ledger.Tx) error {
		return o.Deposit(ctx, tx, pool, accounts, 100, 40, auth.Issue(user))
	})
	assert.ErrorIs(t, err, errStub)
	assert.Len(t, rec.transfers, 2)
	assert.Equal(t, before, balances(t, l))
}

func TestDepositPropagatesTransferErrorUnchanged(t *testing.T) {
	l := newHost(t)
	before := balances(t, l)
	o := New(nil)

	_, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		return o.Deposit(ctx, tx, pool, accounts, 100, 501, auth.Issue(user))
	})
	assert.Equal(t, ledger.ErrInsufficientFunds, err)
	assert.Equal(t, before, balances(t, l))
}

func TestDepositRequiresAccountOwner(t *testing.T) {
	l := newHost(t)
	o := New(nil)

	rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		return o.Deposit(ctx, tx, pool, accounts, 1, 1, auth.Issue(stranger))
	})
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Empty(t, rec.transfers)
}

func TestSwapWorkedExample(t *testing.T) {
	l := newHost(t)
	o := New(nil)

	var result SwapResult
	rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		result, err = o.Swap(ctx, tx, pool, vaultA, vaultB, 100, 88, auth.Issue(authority))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, SwapResult{
		Direction:   pricing.DirectionAToB,
		Source:      vaultA,
		Destination: vaultB,
		AmountIn:    100,
		AmountOut:   88,
		ReserveIn:   1000,
		ReserveOut:  1000,
	}, result)
	assert.Equal(t, []transfer{{vaultA, vaultB, 88}}, rec.transfers)

	got := balances(t, l)
	assert.Equal(t, uint64(912), got[vaultA])
	assert.Equal(t, uint64(1088), got[vaultB])
}

func TestSwapSlippageExceeded(t *testing.T) {
	l := newHost(t)
	before := balances(t, l)
	o := New(nil)

	rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		_, err := o.Swap(ctx, tx, pool, vaultA, vaultB, 100, 89, auth.Issue(authority))
		return err
	})
	assert.ErrorIs(t, err, pricing.ErrSlippageExceeded)
	assert.Empty(t, rec.transfers)
	assert.Equal(t, before, balances(t, l))
}

func TestSwapBToAUsesReversedReserves(t *testing.T) {
	ctx := context.Background()
	l := newHost(t)
	require.NoError(t, l.Mint(ctx, vaultB, 1000))
	o := New(nil)

	var result SwapResult
	_, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		result, err = o.Swap(ctx, tx, pool, vaultB, vaultA, 100, 0, auth.Issue(authority))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, pricing.DirectionBToA, result.Direction)
	assert.Equal(t, uint64(2000), result.ReserveIn)
	assert.Equal(t, uint64(1000), result.ReserveOut)
	// 97*1000/2097
	assert.Equal(t, uint64(46), result.AmountOut)
}

func TestSwapRejectsUnknownSourceVault(t *testing.T) {
	l := newHost(t)
	o := New(nil)

	rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		_, err := o.Swap(ctx, tx, pool, userA, vaultB, 100, 0, auth.Issue(authority))
		return err
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidVault)
	assert.Empty(t, rec.transfers)
}

func TestUnauthorizedBeforeAnyTransfer(t *testing.T) {
	o := New(nil)
	ops := map[string]func(ctx context.Context, tx ledger.Tx, cap auth.Capability) error{
		"swap": func(ctx context.Context, tx ledger.Tx, cap auth.Capability) error {
			_, err := o.Swap(ctx, tx, pool, vaultA, vaultB, 100, 0, cap)
			return err
		},
		"withdraw": func(ctx context.Context, tx ledger.Tx, cap auth.Capability) error {
			return o.Withdraw(ctx, tx, pool, accounts, 10, 10, cap)
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			l := newHost(t)
			before := balances(t, l)

			rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
				return op(ctx, tx, auth.Issue(user))
			})
			assert.ErrorIs(t, err, auth.ErrUnauthorized)
			assert.Empty(t, rec.transfers)

			rec, err = run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
				return op(ctx, tx, auth.Capability{})
			})
			assert.ErrorIs(t, err, auth.ErrMissingSigner)
			assert.Empty(t, rec.transfers)

			assert.Equal(t, before, balances(t, l))
		})
	}
}

func TestWithdraw(t *testing.T) {
	l := newHost(t)
	o := New(nil)

	rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		return o.Withdraw(ctx, tx, pool, accounts, 300, 200, auth.Issue(authority))
	})
	require.NoError(t, err)
	assert.Equal(t, []transfer{{vaultA, userA, 300}, {vaultB, userB, 200}}, rec.transfers)
	assert.Equal(t, map[model.AccountID]uint64{vaultA: 700, vaultB: 800, userA: 800, userB: 700}, balances(t, l))
}

func TestWithdrawIsAtomicWhenSecondTransferFails(t *testing.T) {
	l := newHost(t)
	before := balances(t, l)
	o := New(nil)

	_, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		return o.Withdraw(ctx, tx, pool, accounts, 300, 1001, auth.Issue(authority))
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, before, balances(t, l))
}

func TestQuoteDoesNotMove(t *testing.T) {
	l := newHost(t)
	before := balances(t, l)

	var result SwapResult
	rec, err := run(t, l, 0, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		result, err = Quote(ctx, tx, pool, vaultA, 100, 0)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(88), result.AmountOut)
	assert.Equal(t, vaultB, result.Destination)
	assert.Empty(t, rec.transfers)
	assert.Equal(t, before, balances(t, l))
}
