package main

import (
	"context"

	"github.com/spf13/cobra"

	"tokenswap/internal/orchestrator"
	"tokenswap/internal/program"
)

func newLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Deposit into and withdraw from a pool",
	}

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Move liquidity from user accounts into the vaults",
		RunE:  runDeposit,
	}
	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Move liquidity from the vaults to user accounts (pool authority)",
		RunE:  runWithdraw,
	}
	for _, c := range []*cobra.Command{depositCmd, withdrawCmd} {
		c.Flags().String("pool", "", "pool address")
		c.Flags().String("user-a", "", "user account for asset A")
		c.Flags().String("user-b", "", "user account for asset B")
		c.Flags().Uint64("amount-a", 0, "amount of asset A")
		c.Flags().Uint64("amount-b", 0, "amount of asset B")
		c.Flags().String("as", "", "signing identity")
	}

	cmd.AddCommand(depositCmd, withdrawCmd)
	return cmd
}

// parseLiquidity reads the flags shared by deposit and withdraw; the --as
// capability lands in UserCap.
func parseLiquidity(cmd *cobra.Command) (program.DepositRequest, error) {
	pool, err := accountFlag(cmd, "pool")
	if err != nil {
		return program.DepositRequest{}, err
	}
	userA, err := accountFlag(cmd, "user-a")
	if err != nil {
		return program.DepositRequest{}, err
	}
	userB, err := accountFlag(cmd, "user-b")
	if err != nil {
		return program.DepositRequest{}, err
	}
	signer, err := capabilityFlag(cmd, "as")
	if err != nil {
		return program.DepositRequest{}, err
	}
	amountA, _ := cmd.Flags().GetUint64("amount-a")
	amountB, _ := cmd.Flags().GetUint64("amount-b")

	return program.DepositRequest{
		Pool:    pool,
		User:    orchestrator.UserAccounts{TokenA: userA, TokenB: userB},
		AmountA: amountA,
		AmountB: amountB,
		UserCap: signer,
	}, nil
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	req, err := parseLiquidity(cmd)
	if err != nil {
		return err
	}
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		return e.program.Deposit(ctx, req)
	})
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	req, err := parseLiquidity(cmd)
	if err != nil {
		return err
	}
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		return e.program.Withdraw(ctx, program.WithdrawRequest{
			Pool:         req.Pool,
			User:         req.User,
			AmountA:      req.AmountA,
			AmountB:      req.AmountB,
			AuthorityCap: req.UserCap,
		})
	})
}
