package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tokenswap/internal/auth"
	"tokenswap/internal/ledger"
	"tokenswap/internal/model"
)

var _ ledger.Bank = (*Store)(nil)

// OpenAccount creates an empty account owned by owner.
func (s *Store) OpenAccount(ctx context.Context, id, owner model.AccountID) error {
	if id.IsZero() || owner.IsZero() {
		return ledger.ErrAccountNotFound
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, owner, balance) VALUES ($1, $2, 0)
	`, id.String(), owner.String())
	if err != nil {
		if isPgError(err, pgErrUniqueViolation) {
			return ledger.ErrAccountExists
		}
		return fmt.Errorf("open account: %w", err)
	}
	return nil
}

// Mint credits amount to an existing account.
func (s *Store) Mint(ctx context.Context, id model.AccountID, amount uint64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts SET balance = balance + $2::numeric, updated_at = now()
		WHERE id = $1
	`, id.String(), numeric(amount))
	if err != nil {
		if isPgError(err, pgErrCheckViolation) {
			return ledger.ErrBalanceOverflow
		}
		return fmt.Errorf("mint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}
	return nil
}

// Account loads one account.
func (s *Store) Account(ctx context.Context, id model.AccountID) (ledger.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner, balance::text FROM accounts WHERE id = $1
	`, id.String())
	account, err := scanAccount(row)
	if err != nil {
		if isNotFoundError(err) {
			return ledger.Account{}, ledger.ErrAccountNotFound
		}
		return ledger.Account{}, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// Atomically runs fn inside one database transaction. The declared rows are
// locked with SELECT ... FOR UPDATE in id order; balances are written back only
// when fn succeeds.
func (s *Store) Atomically(ctx context.Context, accounts []model.AccountID, fn func(ctx context.Context, tx ledger.Tx) error) error {
	declared := ledger.Declared(accounts)
	ids := make([]string, 0, len(declared))
	for id := range declared {
		ids = append(ids, id.String())
	}

	return pgx.BeginFunc(ctx, s.pool, func(dbTx pgx.Tx) error {
		rows, err := dbTx.Query(ctx, `
			SELECT id, owner, balance::text FROM accounts
			WHERE id = ANY($1) ORDER BY id FOR UPDATE
		`, ids)
		if err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}
		loaded := make(map[model.AccountID]*ledger.Account, len(ids))
		for rows.Next() {
			account, err := scanAccount(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("scan account: %w", err)
			}
			loaded[account.ID] = &account
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("lock accounts: %w", err)
		}

		t := &tx{declared: declared, loaded: loaded, dirty: make(map[model.AccountID]struct{})}
		if err := fn(ctx, t); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return t.flush(ctx, dbTx)
	})
}

type tx struct {
	declared map[model.AccountID]struct{}
	loaded   map[model.AccountID]*ledger.Account
	dirty    map[model.AccountID]struct{}
}

func (t *tx) Balance(_ context.Context, id model.AccountID) (uint64, error) {
	account, err := t.account(id)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (t *tx) Owner(_ context.Context, id model.AccountID) (model.AccountID, error) {
	account, err := t.account(id)
	if err != nil {
		return model.AccountID{}, err
	}
	return account.Owner, nil
}

func (t *tx) Transfer(_ context.Context, from, to model.AccountID, amount uint64, authority auth.Capability) error {
	src, err := t.account(from)
	if err != nil {
		return err
	}
	dst, err := t.account(to)
	if err != nil {
		return err
	}
	if err := ledger.ApplyTransfer(src, dst, amount, authority); err != nil {
		return err
	}
	t.dirty[from] = struct{}{}
	t.dirty[to] = struct{}{}
	return nil
}

func (t *tx) account(id model.AccountID) (*ledger.Account, error) {
	if _, ok := t.declared[id]; !ok {
		return nil, ledger.ErrAccountNotDeclared
	}
	account, ok := t.loaded[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (t *tx) flush(ctx context.Context, dbTx pgx.Tx) error {
	if len(t.dirty) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for id := range t.dirty {
		batch.Queue(`
			UPDATE accounts SET balance = $2::numeric, updated_at = now() WHERE id = $1
		`, id.String(), numeric(t.loaded[id].Balance))
	}

	br := dbTx.SendBatch(ctx, batch)
	for range t.dirty {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("update balance: %w", err)
		}
	}
	return br.Close()
}

func scanAccount(row rowScanner) (ledger.Account, error) {
	var id, owner, balance string
	if err := row.Scan(&id, &owner, &balance); err != nil {
		return ledger.Account{}, err
	}
	accountID, err := model.ParseAccountID(id)
	if err != nil {
		return ledger.Account{}, err
	}
	ownerID, err := model.ParseAccountID(owner)
	if err != nil {
		return ledger.Account{}, err
	}
	value, err := parseNumeric(balance)
	if err != nil {
		return ledger.Account{}, err
	}
	return ledger.Account{ID: accountID, Owner: ownerID, Balance: value}, nil
}
