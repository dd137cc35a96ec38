package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tokenswap/internal/aggregate"
	"tokenswap/internal/model"
	"tokenswap/internal/program"
	"tokenswap/internal/registry"
)

type poolView struct {
	model.Pool
	ReserveA uint64 `json:"reserve_a"`
	ReserveB uint64 `json:"reserve_b"`
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Create and inspect pools",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pool for a vault pair",
		RunE:  runPoolCreate,
	}
	createCmd.Flags().String("vault-a", "", "vault holding asset A")
	createCmd.Flags().String("vault-b", "", "vault holding asset B")
	createCmd.Flags().String("authority", "", "pool authority (defaults to the derived program authority)")
	createCmd.Flags().String("address", "", "pool address (defaults to the derived address)")
	createCmd.Flags().Uint64("fee", 0, "swap fee in parts per thousand (0-999)")
	createCmd.Flags().String("as", "", "authority signing the creation")
	createCmd.Flags().String("payer", "", "payer for the record allocation")

	showCmd := &cobra.Command{
		Use:   "show <pool>",
		Short: "Show a pool and its live reserves",
		Args:  cobra.ExactArgs(1),
		RunE:  runPoolShow,
	}

	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the pool and authority addresses for a vault pair",
		RunE:  runPoolDerive,
	}
	deriveCmd.Flags().String("vault-a", "", "vault holding asset A")
	deriveCmd.Flags().String("vault-b", "", "vault holding asset B")

	historyCmd := &cobra.Command{
		Use:   "history <pool>",
		Short: "List journaled operations for a pool",
		Args:  cobra.ExactArgs(1),
		RunE:  runPoolHistory,
	}
	historyCmd.Flags().Int("limit", 100, "maximum records to return")

	statsCmd := &cobra.Command{
		Use:   "stats <pool>",
		Short: "Aggregate journaled operations into time windows",
		Args:  cobra.ExactArgs(1),
		RunE:  runPoolStats,
	}
	statsCmd.Flags().Duration("window", time.Hour, "aggregation window (e.g. 1m, 5m, 1h)")

	cmd.AddCommand(createCmd, showCmd, deriveCmd, historyCmd, statsCmd)
	return cmd
}

func runPoolCreate(cmd *cobra.Command, _ []string) error {
	vaultA, err := accountFlag(cmd, "vault-a")
	if err != nil {
		return err
	}
	vaultB, err := accountFlag(cmd, "vault-b")
	if err != nil {
		return err
	}
	fee, _ := cmd.Flags().GetUint64("fee")
	authorityCap, err := capabilityFlag(cmd, "as")
	if err != nil {
		return err
	}
	payerCap, err := capabilityFlag(cmd, "payer")
	if err != nil {
		return err
	}

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		authority, err := optionalAccountFlag(cmd, "authority", func() (model.AccountID, error) {
			return registry.AuthorityAddress(e.programID)
		})
		if err != nil {
			return err
		}
		address, err := optionalAccountFlag(cmd, "address", func() (model.AccountID, error) {
			return registry.PoolAddress(e.programID, vaultA, vaultB)
		})
		if err != nil {
			return err
		}

		pool, err := e.program.CreatePool(ctx, program.CreatePoolRequest{
			Address:      address,
			VaultA:       vaultA,
			VaultB:       vaultB,
			Authority:    authority,
			FeeBps:       fee,
			AuthorityCap: authorityCap,
			PayerCap:     payerCap,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, pool)
	})
}

func runPoolShow(cmd *cobra.Command, args []string) error {
	address, err := model.ParseAccountID(args[0])
	if err != nil {
		return err
	}
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		pool, err := e.program.Pool(ctx, address)
		if err != nil {
			return err
		}
		reserveA, reserveB, err := e.program.Reserves(ctx, address)
		if err != nil {
			return err
		}
		return printJSON(cmd, poolView{Pool: pool, ReserveA: reserveA, ReserveB: reserveB})
	})
}

func runPoolDerive(cmd *cobra.Command, _ []string) error {
	vaultA, err := accountFlag(cmd, "vault-a")
	if err != nil {
		return err
	}
	vaultB, err := accountFlag(cmd, "vault-b")
	if err != nil {
		return err
	}
	return withEnv(cmd, func(_ context.Context, e *env) error {
		pool, poolBump, err := registry.DeriveAddress(e.programID, []byte("pool"), vaultA[:], vaultB[:])
		if err != nil {
			return err
		}
		authority, authorityBump, err := registry.DeriveAddress(e.programID, []byte("authority"))
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]any{
			"program":        e.programID,
			"pool":           pool,
			"pool_bump":      poolBump,
			"authority":      authority,
			"authority_bump": authorityBump,
		})
	})
}

func runPoolHistory(cmd *cobra.Command, args []string) error {
	address, err := model.ParseAccountID(args[0])
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		records, err := e.history(ctx, address, limit)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		return printJSON(cmd, records)
	})
}

func runPoolStats(cmd *cobra.Command, args []string) error {
	address, err := model.ParseAccountID(args[0])
	if err != nil {
		return err
	}
	window, _ := cmd.Flags().GetDuration("window")
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		pool, err := e.program.Pool(ctx, address)
		if err != nil {
			return err
		}
		agg, err := aggregate.NewAggregator(pool, window, e.logger)
		if err != nil {
			return err
		}
		records, err := e.history(ctx, address, 0)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		return printJSON(cmd, agg.Aggregate(records))
	})
}

func optionalAccountFlag(cmd *cobra.Command, name string, fallback func() (model.AccountID, error)) (model.AccountID, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return fallback()
	}
	id, err := model.ParseAccountID(raw)
	if err != nil {
		return model.AccountID{}, fmt.Errorf("--%s: %w", name, err)
	}
	return id, nil
}
