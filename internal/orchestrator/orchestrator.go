// Package orchestrator sequences the asset transfers of deposit, swap and
// withdraw on a ledger transaction supplied by the host. It performs no rollback
// of its own: the host commits every transfer of an invocation or none.
package orchestrator

import (
	"context"

	"tokenswap/internal/auth"
	"tokenswap/internal/ledger"
	"tokenswap/internal/model"
	"tokenswap/internal/pricing"
)

// UserAccounts are a user's custodial accounts for the two pool assets.
type UserAccounts struct {
	TokenA model.AccountID
	TokenB model.AccountID
}

// SwapResult describes a priced swap.
type SwapResult struct {
	Direction   pricing.Direction
	Source      model.AccountID
	Destination model.AccountID
	AmountIn    uint64
	AmountOut   uint64
	ReserveIn   uint64
	ReserveOut  uint64
}

type Orchestrator struct {
	guard *auth.Guard
}

func New(guard *auth.Guard) *Orchestrator {
	if guard == nil {
		guard = auth.NewGuard(nil)
	}
	return &Orchestrator{guard: guard}
}

// Deposit moves amountA from user.TokenA to VaultA and amountB from user.TokenB
// to VaultB. The capability must belong to the owner of both user accounts.
func (o *Orchestrator) Deposit(ctx context.Context, tx ledger.Tx, pool model.Pool, user UserAccounts, amountA, amountB uint64, userCap auth.Capability) error {
	for _, id := range []model.AccountID{user.TokenA, user.TokenB} {
		owner, err := tx.Owner(ctx, id)
		if err != nil {
			return err
		}
		if err := o.guard.RequireRole(owner, userCap); err != nil {
			return err
		}
	}

	if err := tx.Transfer(ctx, user.TokenA, pool.VaultA, amountA, userCap); err != nil {
		return err
	}
	return tx.Transfer(ctx, user.TokenB, pool.VaultB, amountB, userCap)
}

// Swap prices amountIn against the live reserves and moves the output from
// source to destination under the pool authority.
func (o *Orchestrator) Swap(ctx context.Context, tx ledger.Tx, pool model.Pool, source, destination model.AccountID, amountIn, minAmountOut uint64, authorityCap auth.Capability) (SwapResult, error) {
	if err := o.guard.RequireRole(pool.Authority, authorityCap); err != nil {
		return SwapResult{}, err
	}

	result, err := Quote(ctx, tx, pool, source, amountIn, minAmountOut)
	if err != nil {
		return SwapResult{}, err
	}
	result.Destination = destination

	if err := tx.Transfer(ctx, source, destination, result.AmountOut, authorityCap); err != nil {
		return SwapResult{}, err
	}
	return result, nil
}

// Withdraw moves amountA from VaultA to user.TokenA and amountB from VaultB to
// user.TokenB under the pool authority.
func (o *Orchestrator) Withdraw(ctx context.Context, tx ledger.Tx, pool model.Pool, user UserAccounts, amountA, amountB uint64, authorityCap auth.Capability) error {
	if err := o.guard.RequireRole(pool.Authority, authorityCap); err != nil {
		return err
	}

	if err := tx.Transfer(ctx, pool.VaultA, user.TokenA, amountA, authorityCap); err != nil {
		return err
	}
	return tx.Transfer(ctx, pool.VaultB, user.TokenB, amountB, authorityCap)
}

// Quote prices a swap from source without moving anything.
func Quote(ctx context.Context, reader ledger.Reader, pool model.Pool, source model.AccountID, amountIn, minAmountOut uint64) (SwapResult, error) {
	direction, err := pricing.ResolveDirection(pool, source)
	if err != nil {
		return SwapResult{}, err
	}

	reserveA, err := reader.Balance(ctx, pool.VaultA)
	if err != nil {
		return SwapResult{}, err
	}
	reserveB, err := reader.Balance(ctx, pool.VaultB)
	if err != nil {
		return SwapResult{}, err
	}
	reserveIn, reserveOut := direction.Reserves(reserveA, reserveB)

	amountOut, err := pricing.QuoteSwap(reserveIn, reserveOut, amountIn, pool.FeeBps, minAmountOut)
	if err != nil {
		return SwapResult{}, err
	}

	_, out := direction.Vaults(pool)
	return SwapResult{
		Direction:   direction,
		Source:      source,
		Destination: out,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		ReserveIn:   reserveIn,
		ReserveOut:  reserveOut,
	}, nil
}
