package pricing

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func drawReserves(t *rapid.T) (uint64, uint64) {
	reserveIn := rapid.Uint64Min(1).Draw(t, "reserveIn")
	reserveOut := rapid.Uint64Min(1).Draw(t, "reserveOut")
	return reserveIn, reserveOut
}

func TestQuoteSwapDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn, reserveOut := drawReserves(t)
		amountIn := rapid.Uint64().Draw(t, "amountIn")
		fee := rapid.Uint64Range(0, 999).Draw(t, "fee")

		first, err1 := QuoteSwap(reserveIn, reserveOut, amountIn, fee, 0)
		second, err2 := QuoteSwap(reserveIn, reserveOut, amountIn, fee, 0)
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected errors: %v, %v", err1, err2)
		}
		if first != second {
			t.Fatalf("quote not deterministic: %d != %d", first, second)
		}
	})
}

func TestAmountOutBelowReserve(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn, reserveOut := drawReserves(t)
		amountIn := rapid.Uint64().Draw(t, "amountIn")
		fee := rapid.Uint64Range(0, 999).Draw(t, "fee")

		out, err := AmountOut(reserveIn, reserveOut, amountIn, fee)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out >= reserveOut {
			t.Fatalf("output %d drains reserve %d", out, reserveOut)
		}
	})
}

func TestAmountOutMonotoneInInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn, reserveOut := drawReserves(t)
		fee := rapid.Uint64Range(0, 999).Draw(t, "fee")
		a := rapid.Uint64().Draw(t, "a")
		b := rapid.Uint64().Draw(t, "b")
		if a > b {
			a, b = b, a
		}

		outA, err := AmountOut(reserveIn, reserveOut, a, fee)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		outB, err := AmountOut(reserveIn, reserveOut, b, fee)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outA > outB {
			t.Fatalf("larger input %d produced smaller output: %d > %d", b, outA, outB)
		}
	})
}

func TestAmountOutMonotoneInFee(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn, reserveOut := drawReserves(t)
		amountIn := rapid.Uint64().Draw(t, "amountIn")
		low := rapid.Uint64Range(0, 999).Draw(t, "low")
		high := rapid.Uint64Range(low, 999).Draw(t, "high")

		outLow, err := AmountOut(reserveIn, reserveOut, amountIn, low)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		outHigh, err := AmountOut(reserveIn, reserveOut, amountIn, high)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outHigh > outLow {
			t.Fatalf("higher fee produced larger output: %d > %d", outHigh, outLow)
		}
	})
}

func TestQuoteSwapSlippageGate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn, reserveOut := drawReserves(t)
		amountIn := rapid.Uint64().Draw(t, "amountIn")
		fee := rapid.Uint64Range(0, 999).Draw(t, "fee")
		minOut := rapid.Uint64().Draw(t, "minOut")

		expected, err := AmountOut(reserveIn, reserveOut, amountIn, fee)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := QuoteSwap(reserveIn, reserveOut, amountIn, fee, minOut)
		if expected < minOut {
			if !errors.Is(err, ErrSlippageExceeded) {
				t.Fatalf("expected slippage error, got %v", err)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != expected {
			t.Fatalf("quote mismatch: %d != %d", got, expected)
		}
	})
}
