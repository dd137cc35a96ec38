// Package aggregate folds journaled pool operations into fixed time windows.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"tokenswap/internal/model"
)

// WindowStats is the reported form of an Accumulator.
type WindowStats struct {
	Pool          model.AccountID `json:"pool"`
	WindowStart   string          `json:"window_start"`
	WindowEnd     string          `json:"window_end"`
	SwapCount     uint64          `json:"swap_count"`
	DepositCount  uint64          `json:"deposit_count"`
	WithdrawCount uint64          `json:"withdraw_count"`
	VolumeInA     string          `json:"volume_in_a"`
	VolumeInB     string          `json:"volume_in_b"`
	VolumeOutA    string          `json:"volume_out_a"`
	VolumeOutB    string          `json:"volume_out_b"`
	FeeA          string          `json:"fee_a"`
	FeeB          string          `json:"fee_b"`
	DepositedA    string          `json:"deposited_a"`
	DepositedB    string          `json:"deposited_b"`
	WithdrawnA    string          `json:"withdrawn_a"`
	WithdrawnB    string          `json:"withdrawn_b"`
}

type Aggregator struct {
	pool          model.Pool
	windowSeconds int64
	logger        *zap.Logger
}

func NewAggregator(pool model.Pool, window time.Duration, logger *zap.Logger) (*Aggregator, error) {
	seconds := int64(window / time.Second)
	if seconds <= 0 {
		return nil, fmt.Errorf("window must be at least 1s")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{pool: pool, windowSeconds: seconds, logger: logger}, nil
}

// Aggregate groups the pool's records by window, oldest window first. Records
// for other pools are ignored; records that cannot be attributed are skipped
// with a warning.
func (a *Aggregator) Aggregate(records []model.OperationRecord) []WindowStats {
	windows := make(map[int64]*Accumulator)
	for _, record := range records {
		if record.Pool != a.pool.Address {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			a.logger.Warn("skip record with bad timestamp", zap.String("timestamp", record.Timestamp), zap.Error(err))
			continue
		}
		start := windowStart(ts.Unix(), a.windowSeconds)
		acc, ok := windows[start]
		if !ok {
			acc = NewAccumulator(a.pool, start, start+a.windowSeconds)
			windows[start] = acc
		}
		if err := acc.AddRecord(record); err != nil {
			a.logger.Warn("skip record",
				zap.String("kind", string(record.Kind)),
				zap.String("timestamp", record.Timestamp),
				zap.Error(err),
			)
		}
	}

	starts := make([]int64, 0, len(windows))
	for start := range windows {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make([]WindowStats, 0, len(starts))
	for _, start := range starts {
		out = append(out, windows[start].Stats())
	}
	return out
}

// Stats renders the accumulator with decimal amounts.
func (a *Accumulator) Stats() WindowStats {
	return WindowStats{
		Pool:          a.Pool.Address,
		WindowStart:   time.Unix(a.WindowStart, 0).UTC().Format(time.RFC3339),
		WindowEnd:     time.Unix(a.WindowEnd, 0).UTC().Format(time.RFC3339),
		SwapCount:     a.SwapCount,
		DepositCount:  a.DepositCount,
		WithdrawCount: a.WithdrawCount,
		VolumeInA:     a.VolumeInA.Dec(),
		VolumeInB:     a.VolumeInB.Dec(),
		VolumeOutA:    a.VolumeOutA.Dec(),
		VolumeOutB:    a.VolumeOutB.Dec(),
		FeeA:          a.FeeA.Dec(),
		FeeB:          a.FeeB.Dec(),
		DepositedA:    a.DepositedA.Dec(),
		DepositedB:    a.DepositedB.Dec(),
		WithdrawnA:    a.WithdrawnA.Dec(),
		WithdrawnB:    a.WithdrawnB.Dec(),
	}
}

func windowStart(ts, windowSeconds int64) int64 {
	start := ts - ts%windowSeconds
	if ts < 0 && ts%windowSeconds != 0 {
		start -= windowSeconds
	}
	return start
}
