// Package ledger describes the asset ledger the pool program runs against: the
// AssetTransfer capability and the host invocation that makes a sequence of
// transfers all-or-nothing.
package ledger

import (
	"context"
	"errors"

	"tokenswap/internal/auth"
	"tokenswap/internal/model"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotDeclared = errors.New("account was not declared for this invocation")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrOwnerMismatch      = errors.New("owner does not match the signing capability")
	ErrBalanceOverflow    = errors.New("balance overflow")
)

// Account is a custodial balance owned by an identity.
type Account struct {
	ID      model.AccountID `json:"id"`
	Owner   model.AccountID `json:"owner"`
	Balance uint64          `json:"balance"`
}

// Reader exposes live account state inside an invocation.
type Reader interface {
	Balance(ctx context.Context, id model.AccountID) (uint64, error)
	Owner(ctx context.Context, id model.AccountID) (model.AccountID, error)
}

// Tx is a single host invocation's view of the ledger.
type Tx interface {
	Reader

	// Transfer moves amount from one account to another. It either fully
	// succeeds or fails without effect; authority must be the owner of from.
	Transfer(ctx context.Context, from, to model.AccountID, amount uint64, authority auth.Capability) error
}

// Ledger hosts invocations. Atomically locks the declared accounts for the
// duration of fn and commits every transfer fn issued, or none if fn (or ctx)
// fails. Invocations over disjoint account sets may run concurrently.
type Ledger interface {
	Atomically(ctx context.Context, accounts []model.AccountID, fn func(ctx context.Context, tx Tx) error) error
}

// Accounts is the administrative surface used by operator tooling and tests.
type Accounts interface {
	OpenAccount(ctx context.Context, id, owner model.AccountID) error
	Mint(ctx context.Context, id model.AccountID, amount uint64) error
	Account(ctx context.Context, id model.AccountID) (Account, error)
}

// Bank is a ledger with its administrative surface.
type Bank interface {
	Ledger
	Accounts
}

// ApplyTransfer validates a transfer between two loaded accounts and updates
// their balances in place. On error neither account is modified.
func ApplyTransfer(from, to *Account, amount uint64, authority auth.Capability) error {
	if authority.IsEmpty() || authority.Identity() != from.Owner {
		return ErrOwnerMismatch
	}
	if from.Balance < amount {
		return ErrInsufficientFunds
	}
	if from.ID == to.ID {
		return nil
	}
	if to.Balance > ^uint64(0)-amount {
		return ErrBalanceOverflow
	}
	from.Balance -= amount
	to.Balance += amount
	return nil
}

// Credit adds amount to an account balance.
func Credit(account *Account, amount uint64) error {
	if account.Balance > ^uint64(0)-amount {
		return ErrBalanceOverflow
	}
	account.Balance += amount
	return nil
}

// Declared normalises an account list: zero IDs and duplicates are dropped.
func Declared(accounts []model.AccountID) map[model.AccountID]struct{} {
	out := make(map[model.AccountID]struct{}, len(accounts))
	for _, id := range accounts {
		if id.IsZero() {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}
