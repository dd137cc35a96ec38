package postgres

import (
	"context"
	"fmt"

	"tokenswap/internal/model"
	"tokenswap/internal/registry"
)

var _ registry.Store = (*Store)(nil)

// InsertPool stores a new pool record.
func (s *Store) InsertPool(ctx context.Context, pool model.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (address, vault_a, vault_b, authority, fee_bps)
		VALUES ($1, $2, $3, $4, $5)
	`,
		pool.Address.String(),
		pool.VaultA.String(),
		pool.VaultB.String(),
		pool.Authority.String(),
		int64(pool.FeeBps),
	)
	if err != nil {
		if isPgError(err, pgErrUniqueViolation) {
			return registry.ErrAlreadyExists
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// GetPool loads a pool record by address.
func (s *Store) GetPool(ctx context.Context, address model.AccountID) (model.Pool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, vault_a, vault_b, authority, fee_bps
		FROM pools WHERE address = $1
	`, address.String())
	pool, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return model.Pool{}, registry.ErrNotFound
		}
		return model.Pool{}, fmt.Errorf("get pool: %w", err)
	}
	return pool, nil
}

// Pools lists every pool ordered by address.
func (s *Store) Pools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, vault_a, vault_b, authority, fee_bps
		FROM pools ORDER BY address
	`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return pools, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPool(row rowScanner) (model.Pool, error) {
	var (
		address, vaultA, vaultB, authority string
		fee                                int64
	)
	if err := row.Scan(&address, &vaultA, &vaultB, &authority, &fee); err != nil {
		return model.Pool{}, err
	}
	ids, err := model.ParseAccountIDs([]string{address, vaultA, vaultB, authority})
	if err != nil {
		return model.Pool{}, err
	}
	if len(ids) != 4 {
		return model.Pool{}, fmt.Errorf("pool %q has empty identifiers", address)
	}
	return model.Pool{
		Address:   ids[0],
		VaultA:    ids[1],
		VaultB:    ids[2],
		Authority: ids[3],
		FeeBps:    uint64(fee),
	}, nil
}
