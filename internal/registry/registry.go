// Package registry owns pool records: creation with its validation and
// authorisation rules, and read access by address.
package registry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tokenswap/internal/auth"
	"tokenswap/internal/model"
	"tokenswap/internal/pricing"
)

var (
	ErrNotFound        = errors.New("pool not found")
	ErrAlreadyExists   = errors.New("pool already exists")
	ErrIdenticalVaults = errors.New("vault a and vault b are identical")
	ErrInvalidAddress  = errors.New("pool address is empty")

	// ErrInvalidFee is the pricing error so callers can match either name.
	ErrInvalidFee = pricing.ErrInvalidFee
)

// Store persists pool records.
type Store interface {
	// InsertPool stores a new record. Returns ErrAlreadyExists if the address is taken.
	InsertPool(ctx context.Context, pool model.Pool) error

	// GetPool loads a record. Returns ErrNotFound if absent.
	GetPool(ctx context.Context, address model.AccountID) (model.Pool, error)
}

// CreateParams are the inputs of pool creation.
type CreateParams struct {
	Address   model.AccountID
	VaultA    model.AccountID
	VaultB    model.AccountID
	Authority model.AccountID
	FeeBps    uint64
}

// Registry creates and reads pools.
type Registry struct {
	store  Store
	guard  *auth.Guard
	logger *zap.Logger
}

func New(store Store, guard *auth.Guard, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = auth.NewGuard(logger)
	}
	return &Registry{store: store, guard: guard, logger: logger}
}

// Create allocates a pool record. The authority capability must match
// params.Authority and a payer capability must be present.
func (r *Registry) Create(ctx context.Context, params CreateParams, authority, payer auth.Capability) (model.Pool, error) {
	if r.store == nil {
		return model.Pool{}, fmt.Errorf("pool store is nil")
	}
	if err := r.guard.RequireRole(params.Authority, authority); err != nil {
		return model.Pool{}, err
	}
	if err := r.guard.RequireSigner(payer); err != nil {
		return model.Pool{}, err
	}
	if err := pricing.ValidateFee(params.FeeBps); err != nil {
		return model.Pool{}, err
	}
	if params.Address.IsZero() {
		return model.Pool{}, ErrInvalidAddress
	}
	if params.VaultA == params.VaultB {
		return model.Pool{}, ErrIdenticalVaults
	}

	pool := model.Pool{
		Address:   params.Address,
		VaultA:    params.VaultA,
		VaultB:    params.VaultB,
		Authority: params.Authority,
		FeeBps:    params.FeeBps,
	}
	if err := r.store.InsertPool(ctx, pool); err != nil {
		return model.Pool{}, err
	}

	r.logger.Info("pool created",
		zap.Stringer("pool", pool.Address),
		zap.Stringer("vault_a", pool.VaultA),
		zap.Stringer("vault_b", pool.VaultB),
		zap.Stringer("authority", pool.Authority),
		zap.Uint64("fee_bps", pool.FeeBps),
		zap.Stringer("payer", payer),
	)
	return pool, nil
}

// Get returns the pool at address.
func (r *Registry) Get(ctx context.Context, address model.AccountID) (model.Pool, error) {
	if r.store == nil {
		return model.Pool{}, fmt.Errorf("pool store is nil")
	}
	return r.store.GetPool(ctx, address)
}
