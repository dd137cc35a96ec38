package main

import (
	"context"

	"github.com/spf13/cobra"

	"tokenswap/internal/orchestrator"
	"tokenswap/internal/program"
)

type swapView struct {
	Direction   string `json:"direction"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	AmountIn    uint64 `json:"amount_in"`
	AmountOut   uint64 `json:"amount_out"`
	ReserveIn   uint64 `json:"reserve_in"`
	ReserveOut  uint64 `json:"reserve_out"`
}

func newSwapView(r orchestrator.SwapResult) swapView {
	return swapView{
		Direction:   r.Direction.String(),
		Source:      r.Source.String(),
		Destination: r.Destination.String(),
		AmountIn:    r.AmountIn,
		AmountOut:   r.AmountOut,
		ReserveIn:   r.ReserveIn,
		ReserveOut:  r.ReserveOut,
	}
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote and execute swaps",
	}

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap against the live reserves without executing it",
		RunE:  runSwapQuote,
	}
	execCmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute a swap (pool authority)",
		RunE:  runSwapExec,
	}
	for _, c := range []*cobra.Command{quoteCmd, execCmd} {
		c.Flags().String("pool", "", "pool address")
		c.Flags().String("source", "", "source vault")
		c.Flags().Uint64("amount-in", 0, "input amount")
		c.Flags().Uint64("min-out", 0, "minimum acceptable output")
	}
	execCmd.Flags().String("destination", "", "destination vault")
	execCmd.Flags().String("as", "", "pool authority signing the swap")

	cmd.AddCommand(quoteCmd, execCmd)
	return cmd
}

func runSwapQuote(cmd *cobra.Command, _ []string) error {
	pool, err := accountFlag(cmd, "pool")
	if err != nil {
		return err
	}
	source, err := accountFlag(cmd, "source")
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	minOut, _ := cmd.Flags().GetUint64("min-out")

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		result, err := e.program.Quote(ctx, pool, source, amountIn, minOut)
		if err != nil {
			return err
		}
		return printJSON(cmd, newSwapView(result))
	})
}

func runSwapExec(cmd *cobra.Command, _ []string) error {
	pool, err := accountFlag(cmd, "pool")
	if err != nil {
		return err
	}
	source, err := accountFlag(cmd, "source")
	if err != nil {
		return err
	}
	destination, err := accountFlag(cmd, "destination")
	if err != nil {
		return err
	}
	signer, err := capabilityFlag(cmd, "as")
	if err != nil {
		return err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	minOut, _ := cmd.Flags().GetUint64("min-out")

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		result, err := e.program.Swap(ctx, program.SwapRequest{
			Pool:         pool,
			Source:       source,
			Destination:  destination,
			AmountIn:     amountIn,
			MinAmountOut: minOut,
			AuthorityCap: signer,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, newSwapView(result))
	})
}
