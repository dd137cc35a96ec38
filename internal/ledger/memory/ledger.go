package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"tokenswap/internal/auth"
	"tokenswap/internal/ledger"
	"tokenswap/internal/model"
)

var _ ledger.Bank = (*Ledger)(nil)

// Ledger is an in-memory host. Each account has its own lock so invocations over
// disjoint accounts run in parallel; a failed invocation is undone from its
// undo log.
type Ledger struct {
	mu       sync.Mutex
	accounts map[model.AccountID]*entry
}

type entry struct {
	mu      sync.Mutex
	account ledger.Account
}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[model.AccountID]*entry)}
}

// OpenAccount creates an empty account owned by owner.
func (l *Ledger) OpenAccount(_ context.Context, id, owner model.AccountID) error {
	if id.IsZero() || owner.IsZero() {
		return ledger.ErrAccountNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[id]; exists {
		return ledger.ErrAccountExists
	}
	l.accounts[id] = &entry{account: ledger.Account{ID: id, Owner: owner}}
	return nil
}

// Mint credits amount to an existing account.
func (l *Ledger) Mint(_ context.Context, id model.AccountID, amount uint64) error {
	e, err := l.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return ledger.Credit(&e.account, amount)
}

// Account returns a copy of the account.
func (l *Ledger) Account(_ context.Context, id model.AccountID) (ledger.Account, error) {
	e, err := l.lookup(id)
	if err != nil {
		return ledger.Account{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account, nil
}

// Accounts returns copies of every account ordered by ID.
func (l *Ledger) Accounts() []ledger.Account {
	l.mu.Lock()
	entries := make([]*entry, 0, len(l.accounts))
	for _, e := range l.accounts {
		entries = append(entries, e)
	}
	l.mu.Unlock()

	out := make([]ledger.Account, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.account)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}

// Restore replaces the ledger contents, used when loading a state file.
func (l *Ledger) Restore(accounts []ledger.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts = make(map[model.AccountID]*entry, len(accounts))
	for _, account := range accounts {
		l.accounts[account.ID] = &entry{account: account}
	}
}

// Atomically runs fn with the declared accounts locked in ID order.
func (l *Ledger) Atomically(ctx context.Context, accounts []model.AccountID, fn func(ctx context.Context, tx ledger.Tx) error) error {
	declared := ledger.Declared(accounts)
	ids := make([]model.AccountID, 0, len(declared))
	for id := range declared {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	// Accounts that do not exist yet are not locked; touching them fails with
	// ErrAccountNotFound.
	locked := make(map[model.AccountID]*entry, len(ids))
	for _, id := range ids {
		e, err := l.lookup(id)
		if err != nil {
			continue
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		locked[id] = e
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &tx{declared: declared, locked: locked, undo: make(map[model.AccountID]uint64)}
	err := fn(ctx, tx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (l *Ledger) lookup(id model.AccountID) (*entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return e, nil
}

type tx struct {
	declared map[model.AccountID]struct{}
	locked   map[model.AccountID]*entry
	undo     map[model.AccountID]uint64
}

func (t *tx) Balance(_ context.Context, id model.AccountID) (uint64, error) {
	e, err := t.entry(id)
	if err != nil {
		return 0, err
	}
	return e.account.Balance, nil
}

func (t *tx) Owner(_ context.Context, id model.AccountID) (model.AccountID, error) {
	e, err := t.entry(id)
	if err != nil {
		return model.AccountID{}, err
	}
	return e.account.Owner, nil
}

func (t *tx) Transfer(_ context.Context, from, to model.AccountID, amount uint64, authority auth.Capability) error {
	src, err := t.entry(from)
	if err != nil {
		return err
	}
	dst, err := t.entry(to)
	if err != nil {
		return err
	}

	srcBalance, dstBalance := src.account.Balance, dst.account.Balance
	if err := ledger.ApplyTransfer(&src.account, &dst.account, amount, authority); err != nil {
		return err
	}
	t.remember(from, srcBalance)
	t.remember(to, dstBalance)
	return nil
}

func (t *tx) entry(id model.AccountID) (*entry, error) {
	if _, ok := t.declared[id]; !ok {
		return nil, ledger.ErrAccountNotDeclared
	}
	e, ok := t.locked[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return e, nil
}

// remember keeps the first balance seen for an account.
func (t *tx) remember(id model.AccountID, balance uint64) {
	if _, ok := t.undo[id]; ok {
		return
	}
	t.undo[id] = balance
}

func (t *tx) rollback() {
	for id, balance := range t.undo {
		t.locked[id].account.Balance = balance
	}
}
