package main

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tokenswap/internal/config"
	"tokenswap/internal/model"
	"tokenswap/internal/storage/postgres"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage ledger accounts (operator tooling)",
	}

	openCmd := &cobra.Command{
		Use:   "open [id]",
		Short: "Open an empty account; a random id is generated when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAccountOpen,
	}
	openCmd.Flags().String("owner", "", "owning identity")

	mintCmd := &cobra.Command{
		Use:   "mint <id>",
		Short: "Credit an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountMint,
	}
	mintCmd.Flags().Uint64("amount", 0, "amount to credit")

	balanceCmd := &cobra.Command{
		Use:   "balance <id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountBalance,
	}

	cmd.AddCommand(openCmd, mintCmd, balanceCmd)
	return cmd
}

func runAccountOpen(cmd *cobra.Command, args []string) error {
	owner, err := accountFlag(cmd, "owner")
	if err != nil {
		return err
	}
	var id model.AccountID
	if len(args) == 1 {
		if id, err = model.ParseAccountID(args[0]); err != nil {
			return err
		}
	} else if _, err := rand.Read(id[:]); err != nil {
		return fmt.Errorf("generate account id: %w", err)
	}

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		if err := e.accounts.OpenAccount(ctx, id, owner); err != nil {
			return err
		}
		account, err := e.accounts.Account(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, account)
	})
}

func runAccountMint(cmd *cobra.Command, args []string) error {
	id, err := model.ParseAccountID(args[0])
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	return withEnv(cmd, func(ctx context.Context, e *env) error {
		if err := e.accounts.Mint(ctx, id, amount); err != nil {
			return err
		}
		account, err := e.accounts.Account(ctx, id)
		if err != nil {
			return err
		}
		e.logger.Info("account minted", zap.Stringer("account", id), zap.Uint64("amount", amount))
		return printJSON(cmd, account)
	})
}

func runAccountBalance(cmd *cobra.Command, args []string) error {
	id, err := model.ParseAccountID(args[0])
	if err != nil {
		return err
	}
	return withEnv(cmd, func(ctx context.Context, e *env) error {
		account, err := e.accounts.Account(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, account)
	})
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Backend != config.BackendPostgres {
				return fmt.Errorf("migrate requires --backend postgres")
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.MaxRetries, cfg.RetryBackoff)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema applied", zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
			return nil
		},
	}
}
