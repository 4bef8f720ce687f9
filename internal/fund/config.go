package fund

import (
	"context"
	"fmt"

	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/gagliardetto/solana-go"
)

const (
	DefaultMintDecimals uint8  = 6
	DefaultQuorumBps    uint16 = 5000
	// MaxNameLen bounds the fund name stored in the fund record.
	MaxNameLen = 64
	maxBps     = 10_000
)

// Config holds the processor's program identity and governance policy.
type Config struct {
	ProgramID    solana.PublicKey
	MintDecimals uint8
	// QuorumBps is the share of total deposit, in basis points, that yes
	// votes must reach before a proposal can execute.
	QuorumBps uint16
}

func DefaultConfig(programID solana.PublicKey) Config {
	return Config{
		ProgramID:    programID,
		MintDecimals: DefaultMintDecimals,
		QuorumBps:    DefaultQuorumBps,
	}
}

func (c Config) Validate() error {
	if c.ProgramID.IsZero() {
		return fmt.Errorf("fund: config: program id is required")
	}
	if c.QuorumBps > maxBps {
		return fmt.Errorf("fund: config: quorum_bps %d exceeds %d", c.QuorumBps, maxBps)
	}
	return nil
}

// Tokens is the fungible-token collaborator.
type Tokens interface {
	ProgramID() solana.PublicKey
	InitializeMint(ctx context.Context, tx *ledger.Tx, mint, authority solana.PublicKey, decimals uint8) error
	HoldingAddress(owner, mint solana.PublicKey) (solana.PublicKey, error)
	CreateHolding(ctx context.Context, tx *ledger.Tx, payer ledger.Authority, owner, mint solana.PublicKey) (solana.PublicKey, error)
	MintTo(ctx context.Context, tx *ledger.Tx, mint, holding solana.PublicKey, authority ledger.Authority, amount uint64) error
	Balance(ctx context.Context, tx *ledger.Tx, holding solana.PublicKey) (uint64, error)
}

// Leg is one from-asset to to-asset reallocation.
type Leg struct {
	From       solana.PublicKey
	To         solana.PublicKey
	Amount     uint64
	RoutingTag uint8
}

// ExecutionRequest is handed to the Executor once a proposal passes.
type ExecutionRequest struct {
	Fund     solana.PublicKey
	Vault    solana.PublicKey
	Proposal solana.PublicKey
	Legs     []Leg
	Now      int64
}

// Executor performs the actual cross-asset reallocation. An error aborts the
// whole command.
type Executor interface {
	Reallocate(ctx context.Context, req ExecutionRequest) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req ExecutionRequest) error

func (f ExecutorFunc) Reallocate(ctx context.Context, req ExecutionRequest) error {
	return f(ctx, req)
}
