package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// Program is the code a host runs for one command.
type Program interface {
	Process(ctx context.Context, tx *Tx) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx context.Context, tx *Tx) error

func (f ProgramFunc) Process(ctx context.Context, tx *Tx) error { return f(ctx, tx) }

// Clock returns unix seconds.
type Clock interface {
	Now() int64
}

type systemClock struct{}

func (systemClock) Now() int64 { return time.Now().Unix() }

// ManualClock is a settable clock for tests and replays.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += int64(d / time.Second)
	c.mu.Unlock()
}

// Host admits commands one at a time and commits each one's writes as a unit.
type Host struct {
	mu      sync.Mutex
	backend Backend
	clock   Clock
	rent    Rent
}

type Option func(*Host)

func WithClock(c Clock) Option {
	return func(h *Host) { h.clock = c }
}

func WithRent(r Rent) Option {
	return func(h *Host) { h.rent = r }
}

func NewHost(backend Backend, opts ...Option) *Host {
	h := &Host{
		backend: backend,
		clock:   systemClock{},
		rent:    DefaultRent(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) Rent() Rent { return h.rent }

// Submit verifies signatures, runs program against a fresh journal and
// commits only if the program returns nil.
func (h *Host) Submit(ctx context.Context, program Program, cmd Command, sigs ...Signature) error {
	signers, err := verifySignatures(cmd, sigs)
	if err != nil {
		log.Warn().Err(err).Str("program", cmd.ProgramID.String()).Msg("ledger.Submit rejected signatures")
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tx := newTx(h.backend, cmd, signers, h.clock.Now(), h.rent)
	if err := program.Process(ctx, tx); err != nil {
		log.Debug().
			Err(err).
			Str("program", cmd.ProgramID.String()).
			Int("touched", len(tx.order)).
			Msg("ledger.Submit discarded")
		return err
	}
	changes := tx.changes()
	if err := h.backend.Apply(ctx, changes); err != nil {
		log.Error().Err(err).Int("accounts", len(changes)).Msg("ledger.Submit commit failed")
		return fmt.Errorf("ledger: commit: %w", err)
	}
	log.Debug().
		Str("program", cmd.ProgramID.String()).
		Int("accounts", len(changes)).
		Msg("ledger.Submit committed")
	return nil
}

// Account reads committed state outside any command.
func (h *Host) Account(ctx context.Context, addr solana.PublicKey) (Account, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	acc, ok, err := h.backend.Get(ctx, addr)
	if err != nil {
		return Account{}, err
	}
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc, nil
}

// Airdrop credits lamports to addr outside any command, creating a system
// account when needed. Used to fund wallets on a local ledger.
func (h *Host) Airdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	acc, ok, err := h.backend.Get(ctx, addr)
	if err != nil {
		return err
	}
	if !ok {
		acc = Account{Address: addr, Owner: solana.SystemProgramID}
	}
	if acc.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("%w: %s", ErrOverflow, addr)
	}
	acc.Lamports += lamports
	return h.backend.Apply(ctx, []Account{acc})
}
