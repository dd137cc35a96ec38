package aggregate

import (
	"fmt"

	"github.com/holiman/uint256"

	"tokenswap/internal/model"
	"tokenswap/internal/pricing"
)

// Accumulator holds aggregate values for one pool window. Sums are 256-bit so
// a window of uint64 amounts cannot overflow.
type Accumulator struct {
	Pool          model.Pool
	WindowStart   int64
	WindowEnd     int64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	VolumeInA     *uint256.Int
	VolumeInB     *uint256.Int
	VolumeOutA    *uint256.Int
	VolumeOutB    *uint256.Int
	FeeA          *uint256.Int
	FeeB          *uint256.Int
	DepositedA    *uint256.Int
	DepositedB    *uint256.Int
	WithdrawnA    *uint256.Int
	WithdrawnB    *uint256.Int
	LastTS        string
}

func NewAccumulator(pool model.Pool, windowStart, windowEnd int64) *Accumulator {
	return &Accumulator{
		Pool:        pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeInA:   new(uint256.Int),
		VolumeInB:   new(uint256.Int),
		VolumeOutA:  new(uint256.Int),
		VolumeOutB:  new(uint256.Int),
		FeeA:        new(uint256.Int),
		FeeB:        new(uint256.Int),
		DepositedA:  new(uint256.Int),
		DepositedB:  new(uint256.Int),
		WithdrawnA:  new(uint256.Int),
		WithdrawnB:  new(uint256.Int),
	}
}

func (a *Accumulator) AddRecord(record model.OperationRecord) error {
	if record.Timestamp > a.LastTS {
		a.LastTS = record.Timestamp
	}

	switch record.Kind {
	case model.OperationSwap:
		return a.applySwap(record)
	case model.OperationDeposit:
		addUint(a.DepositedA, record.AmountA)
		addUint(a.DepositedB, record.AmountB)
		a.DepositCount++
	case model.OperationWithdraw:
		addUint(a.WithdrawnA, record.AmountA)
		addUint(a.WithdrawnB, record.AmountB)
		a.WithdrawCount++
	}
	return nil
}

func (a *Accumulator) applySwap(record model.OperationRecord) error {
	if record.Source == nil {
		return fmt.Errorf("swap record without source")
	}
	direction, err := pricing.ResolveDirection(a.Pool, *record.Source)
	if err != nil {
		return fmt.Errorf("swap source %s: %w", record.Source, err)
	}
	fee, err := pricing.FeeAmount(record.AmountIn, record.FeeBps)
	if err != nil {
		return err
	}

	if direction == pricing.DirectionAToB {
		addUint(a.VolumeInA, record.AmountIn)
		addUint(a.VolumeOutB, record.AmountOut)
		addUint(a.FeeA, fee)
	} else {
		addUint(a.VolumeInB, record.AmountIn)
		addUint(a.VolumeOutA, record.AmountOut)
		addUint(a.FeeB, fee)
	}
	a.SwapCount++
	return nil
}

func addUint(target *uint256.Int, value uint64) {
	target.Add(target, uint256.NewInt(value))
}
