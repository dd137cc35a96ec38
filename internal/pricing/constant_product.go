package pricing

import (
	"github.com/holiman/uint256"

	"tokenswap/internal/model"
)

// QuoteSwap returns the constant-product output for amountIn after the input fee:
//
//	amountInWithFee = floor(amountIn * (1000 - feeBps) / 1000)
//	amountOut       = floor(amountInWithFee * reserveOut / (reserveIn + amountInWithFee))
//
// It fails with ErrSlippageExceeded when amountOut < minAmountOut.
func QuoteSwap(reserveIn, reserveOut, amountIn, feeBps, minAmountOut uint64) (uint64, error) {
	amountOut, err := AmountOut(reserveIn, reserveOut, amountIn, feeBps)
	if err != nil {
		return 0, err
	}
	if amountOut < minAmountOut {
		return 0, ErrSlippageExceeded
	}
	return amountOut, nil
}

// AmountOut is QuoteSwap without the slippage floor.
func AmountOut(reserveIn, reserveOut, amountIn, feeBps uint64) (uint64, error) {
	if feeBps >= model.FeeDenominator {
		return 0, ErrInvalidFee
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrEmptyReserves
	}

	withFee := amountInWithFee(amountIn, feeBps)
	if withFee.IsZero() {
		return 0, nil
	}

	numerator := new(uint256.Int).Mul(withFee, uint256.NewInt(reserveOut))
	denominator := new(uint256.Int).Add(uint256.NewInt(reserveIn), withFee)
	// numerator/denominator < reserveOut since reserveIn > 0, so the result fits in 64 bits.
	return numerator.Div(numerator, denominator).Uint64(), nil
}

// amountInWithFee rounds the fee-adjusted input down. feeBps must be below FeeDenominator.
func amountInWithFee(amountIn, feeBps uint64) *uint256.Int {
	scaled := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(model.FeeDenominator-feeBps))
	return scaled.Div(scaled, uint256.NewInt(model.FeeDenominator))
}

// ValidateFee rejects fees that would zero or invert the swap output.
func ValidateFee(feeBps uint64) error {
	if feeBps >= model.FeeDenominator {
		return ErrInvalidFee
	}
	return nil
}

// FeeAmount is the part of amountIn withheld as fee, amountIn - amountInWithFee.
func FeeAmount(amountIn, feeBps uint64) (uint64, error) {
	if err := ValidateFee(feeBps); err != nil {
		return 0, err
	}
	return amountIn - amountInWithFee(amountIn, feeBps).Uint64(), nil
}
