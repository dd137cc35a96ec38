package pricing

import "tokenswap/internal/model"

// Direction is the side of the pool a swap takes its input from.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionAToB
	DirectionBToA
)

// ResolveDirection maps the caller's source vault onto a swap direction. A source
// that is neither vault is rejected with ErrInvalidVault.
func ResolveDirection(pool model.Pool, sourceVault model.AccountID) (Direction, error) {
	switch sourceVault {
	case pool.VaultA:
		return DirectionAToB, nil
	case pool.VaultB:
		return DirectionBToA, nil
	default:
		return DirectionUnknown, ErrInvalidVault
	}
}

// Reserves orders the pool reserves as (reserveIn, reserveOut).
func (d Direction) Reserves(reserveA, reserveB uint64) (uint64, uint64) {
	if d == DirectionAToB {
		return reserveA, reserveB
	}
	return reserveB, reserveA
}

// Vaults orders the pool vaults as (input vault, output vault).
func (d Direction) Vaults(pool model.Pool) (model.AccountID, model.AccountID) {
	if d == DirectionAToB {
		return pool.VaultA, pool.VaultB
	}
	return pool.VaultB, pool.VaultA
}

func (d Direction) String() string {
	switch d {
	case DirectionAToB:
		return "a_to_b"
	case DirectionBToA:
		return "b_to_a"
	default:
		return "unknown"
	}
}
