package fund

import (
	"context"
	"errors"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/state"
	"github.com/gagliardetto/solana-go"
)

// accountList is the ordered account list of one command.
type accountList struct {
	op    string
	metas []solana.AccountMeta
}

func (a accountList) need(n int) error {
	if len(a.metas) < n {
		return reject(a.op, KindInsufficientAccounts, "need %d accounts, have %d", n, len(a.metas))
	}
	return nil
}

func (a accountList) key(i int) solana.PublicKey {
	return a.metas[i].PublicKey
}

func (a accountList) keys(from, n int) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, a.metas[i].PublicKey)
	}
	return out
}

// role is a derived address together with the seeds that produced it.
type role struct {
	name    string
	derived address.Derived
	seeds   [][]byte
}

func (r role) Address() solana.PublicKey { return r.derived.Address }

func (r role) authority(programID solana.PublicKey) (ledger.Authority, error) {
	return ledger.Derived(programID, r.derived.SignerSeeds(r.seeds))
}

func deriveRole(op, name string, seeds [][]byte, programID solana.PublicKey) (role, error) {
	d, err := address.Derive(seeds, programID)
	if err != nil {
		return role{}, rejectWith(op, KindAddressMismatch, err, "derive %s", name)
	}
	return role{name: name, derived: d, seeds: seeds}, nil
}

// bind checks the supplied account for a role re-derives to the same address.
func bind(op string, r role, supplied solana.PublicKey) error {
	if !r.Address().Equals(supplied) {
		return reject(op, KindAddressMismatch, "%s: supplied %s, derived %s", r.name, supplied, r.Address())
	}
	return nil
}

func requireSigner(op string, tx *ledger.Tx, key solana.PublicKey) error {
	if !tx.IsSigner(key) {
		return reject(op, KindMissingSignature, "%s did not sign", key)
	}
	return nil
}

// sameRef checks a stored reference against the supplied account.
func sameRef(op, what string, stored, supplied solana.PublicKey) error {
	if !stored.Equals(supplied) {
		return reject(op, KindStateMismatch, "%s: stored %s, supplied %s", what, stored, supplied)
	}
	return nil
}

// load reads a program-owned record of r's kind from addr.
func (p *Processor) load(ctx context.Context, tx *ledger.Tx, op string, addr solana.PublicKey, r state.Record) error {
	acc, err := tx.Get(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return rejectWith(op, KindStateMismatch, err, "%s missing", r.Kind())
	}
	if err != nil {
		return collaborator(op, "load "+r.Kind().String(), err)
	}
	if !acc.Owner.Equals(p.cfg.ProgramID) {
		return reject(op, KindStateMismatch, "%s %s owned by %s", r.Kind(), addr, acc.Owner)
	}
	if err := state.Unmarshal(acc.Data, r); err != nil {
		return rejectWith(op, KindStateMismatch, err, "decode %s", r.Kind())
	}
	return nil
}

func (p *Processor) exists(ctx context.Context, tx *ledger.Tx, op string, addr solana.PublicKey) (bool, error) {
	ok, err := tx.Exists(ctx, addr)
	if err != nil {
		return false, collaborator(op, "lookup", err)
	}
	return ok, nil
}

// create allocates exactly r.Size() bytes at the role address, paid by
// payer, and writes r into it.
func (p *Processor) create(ctx context.Context, tx *ledger.Tx, op string, payer ledger.Authority, at role, r state.Record) error {
	target, err := at.authority(p.cfg.ProgramID)
	if err != nil {
		return collaborator(op, "sign as "+at.name, err)
	}
	if err := tx.Create(ctx, payer, target, r.Size(), p.cfg.ProgramID); err != nil {
		return collaborator(op, "create "+at.name, err)
	}
	return p.store(ctx, tx, op, at.Address(), r)
}

func (p *Processor) store(ctx context.Context, tx *ledger.Tx, op string, addr solana.PublicKey, r state.Record) error {
	data, err := state.Marshal(r)
	if err != nil {
		return collaborator(op, "encode "+r.Kind().String(), err)
	}
	if err := tx.Write(ctx, p.cfg.ProgramID, addr, data); err != nil {
		return collaborator(op, "write "+r.Kind().String(), err)
	}
	return nil
}

// loadFund loads an initialised fund and checks it lives at its own derived
// address.
func (p *Processor) loadFund(ctx context.Context, tx *ledger.Tx, op string, addr solana.PublicKey) (*state.Fund, role, error) {
	f := &state.Fund{}
	if err := p.load(ctx, tx, op, addr, f); err != nil {
		return nil, role{}, err
	}
	if !f.Initialized {
		return nil, role{}, rejectWith(op, KindStateMismatch, ErrFundUninitialized, "%s", addr)
	}
	fr, err := deriveRole(op, "fund", address.FundSeeds(f.Seed), p.cfg.ProgramID)
	if err != nil {
		return nil, role{}, err
	}
	if err := bind(op, fr, addr); err != nil {
		return nil, role{}, err
	}
	return f, fr, nil
}

// loadActiveMember loads the member record for (fund, user) and requires it
// to be active.
func (p *Processor) loadActiveMember(ctx context.Context, tx *ledger.Tx, op string, fund, user, supplied solana.PublicKey) (*state.Member, role, error) {
	mr, err := deriveRole(op, "member record", address.MemberSeeds(fund, user), p.cfg.ProgramID)
	if err != nil {
		return nil, role{}, err
	}
	if err := bind(op, mr, supplied); err != nil {
		return nil, role{}, err
	}
	m := &state.Member{}
	if err := p.load(ctx, tx, op, supplied, m); err != nil {
		return nil, role{}, err
	}
	if !m.Active || !m.User.Equals(user) {
		return nil, role{}, rejectWith(op, KindStateMismatch, ErrNotMember, "%s", user)
	}
	return m, mr, nil
}
