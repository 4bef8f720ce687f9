package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
)

// Tx is the journal for one command. Reads see the command's own earlier
// writes; nothing reaches the backend until the host commits.
type Tx struct {
	cmd     Command
	now     int64
	rent    Rent
	backend Backend
	signers map[solana.PublicKey]bool

	dirty map[solana.PublicKey]*Account
	order []solana.PublicKey
}

func newTx(backend Backend, cmd Command, signers map[solana.PublicKey]bool, now int64, rent Rent) *Tx {
	return &Tx{
		cmd:     cmd,
		now:     now,
		rent:    rent,
		backend: backend,
		signers: signers,
		dirty:   make(map[solana.PublicKey]*Account),
	}
}

// Now is the host clock reading taken when the command was admitted.
func (tx *Tx) Now() int64 { return tx.now }

func (tx *Tx) Rent() Rent { return tx.rent }

func (tx *Tx) ProgramID() solana.PublicKey { return tx.cmd.ProgramID }

func (tx *Tx) Data() []byte { return tx.cmd.Data }

// Accounts returns the command's account list in submission order.
func (tx *Tx) Accounts() []solana.AccountMeta {
	out := make([]solana.AccountMeta, 0, len(tx.cmd.Accounts))
	for _, meta := range tx.cmd.Accounts {
		out = append(out, *meta)
	}
	return out
}

// IsSigner reports whether addr proved a signature over this command.
func (tx *Tx) IsSigner(addr solana.PublicKey) bool {
	return tx.signers[addr]
}

// Authorize checks a against the command's verified signers or its seeds.
func (tx *Tx) Authorize(a Authority) error {
	return a.verify(tx.signers)
}

// Get returns a copy of the account at addr.
func (tx *Tx) Get(ctx context.Context, addr solana.PublicKey) (Account, error) {
	acc, ok, err := tx.load(ctx, addr)
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc.Clone(), nil
}

// Exists reports whether addr holds an allocated account.
func (tx *Tx) Exists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	_, ok, err := tx.load(ctx, addr)
	return ok, err
}

// Create allocates space zeroed bytes at target, owned by owner, funded with
// exactly the rent minimum taken from payer. The target must prove it agrees
// to be created, either by signature or by derivation seeds.
func (tx *Tx) Create(ctx context.Context, payer, target Authority, space int, owner solana.PublicKey) error {
	if err := tx.Authorize(payer); err != nil {
		return fmt.Errorf("create %s: payer: %w", target.Key, err)
	}
	if err := tx.Authorize(target); err != nil {
		return fmt.Errorf("create %s: %w", target.Key, err)
	}
	if _, ok, err := tx.load(ctx, target.Key); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, target.Key)
	}
	if space > MaxAccountSize {
		return fmt.Errorf("%w: %s asks for %d bytes, limit %d", ErrSizeMismatch, target.Key, space, MaxAccountSize)
	}
	lamports, err := tx.rent.MinimumBalance(space)
	if err != nil {
		return fmt.Errorf("create %s: %w", target.Key, err)
	}
	if err := tx.debit(ctx, payer.Key, lamports); err != nil {
		return fmt.Errorf("create %s: %w", target.Key, err)
	}
	tx.put(&Account{
		Address:  target.Key,
		Owner:    owner,
		Lamports: lamports,
		Data:     make([]byte, space),
	})
	return nil
}

// Transfer moves lamports from an authorised account to any address. A
// missing destination becomes a data-less system account.
func (tx *Tx) Transfer(ctx context.Context, from Authority, to solana.PublicKey, lamports uint64) error {
	if err := tx.Authorize(from); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if lamports == 0 {
		return nil
	}
	if err := tx.debit(ctx, from.Key, lamports); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return tx.credit(ctx, to, lamports)
}

// Write replaces the data of an account owned by owner. The length must
// match the original allocation.
func (tx *Tx) Write(ctx context.Context, owner, addr solana.PublicKey, data []byte) error {
	acc, ok, err := tx.load(ctx, addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if !acc.Owner.Equals(owner) {
		return fmt.Errorf("%w: %s owned by %s", ErrOwnerMismatch, addr, acc.Owner)
	}
	if len(data) != len(acc.Data) {
		return fmt.Errorf("%w: %s has %d bytes, write of %d", ErrSizeMismatch, addr, len(acc.Data), len(data))
	}
	next := acc.Clone()
	copy(next.Data, data)
	tx.put(&next)
	return nil
}

func (tx *Tx) debit(ctx context.Context, addr solana.PublicKey, lamports uint64) error {
	acc, ok, err := tx.load(ctx, addr)
	if err != nil {
		return err
	}
	if !ok || acc.Lamports < lamports {
		have := uint64(0)
		if ok {
			have = acc.Lamports
		}
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, addr, have, lamports)
	}
	next := acc.Clone()
	next.Lamports -= lamports
	tx.put(&next)
	return nil
}

func (tx *Tx) credit(ctx context.Context, addr solana.PublicKey, lamports uint64) error {
	acc, ok, err := tx.load(ctx, addr)
	if err != nil {
		return err
	}
	if !ok {
		acc = Account{Address: addr, Owner: solana.SystemProgramID}
	}
	if acc.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("%w: %s", ErrOverflow, addr)
	}
	next := acc.Clone()
	next.Lamports += lamports
	tx.put(&next)
	return nil
}

func (tx *Tx) load(ctx context.Context, addr solana.PublicKey) (Account, bool, error) {
	if acc, ok := tx.dirty[addr]; ok {
		return *acc, true, nil
	}
	acc, ok, err := tx.backend.Get(ctx, addr)
	if err != nil {
		return Account{}, false, fmt.Errorf("ledger: load %s: %w", addr, err)
	}
	return acc, ok, nil
}

func (tx *Tx) put(acc *Account) {
	if _, seen := tx.dirty[acc.Address]; !seen {
		tx.order = append(tx.order, acc.Address)
	}
	tx.dirty[acc.Address] = acc
}

// changes lists every touched account in first-touch order.
func (tx *Tx) changes() []Account {
	out := make([]Account, 0, len(tx.order))
	for _, addr := range tx.order {
		out = append(out, tx.dirty[addr].Clone())
	}
	return out
}
