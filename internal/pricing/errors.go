package pricing

import "errors"

var (
	// ErrSlippageExceeded is returned when the computed output is below the caller's floor.
	ErrSlippageExceeded = errors.New("the output amount is less than the minimum required due to slippage")

	ErrInvalidFee    = errors.New("fee must be below 1000 parts per thousand")
	ErrEmptyReserves = errors.New("pool reserves are empty")
	ErrInvalidVault  = errors.New("source vault does not belong to the pool")
)
