// Package token is the fungible-token collaborator: mint definitions, one
// holding per (owner, mint) and authority-checked minting, all staged in the
// caller's ledger transaction.
package token

import (
	"context"
	"fmt"
	"math"

	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// Service implements token operations over a ledger transaction.
type Service struct{}

func NewService() *Service { return &Service{} }

// ProgramID owns every mint and holding account.
func (s *Service) ProgramID() solana.PublicKey {
	return solana.TokenProgramID
}

// InitializeMint sets up a mint account the caller has already allocated with
// MintSize bytes and the token program as owner.
func (s *Service) InitializeMint(ctx context.Context, tx *ledger.Tx, mint, authority solana.PublicKey, decimals uint8) error {
	acc, err := tx.Get(ctx, mint)
	if err != nil {
		return err
	}
	if !acc.Owner.Equals(s.ProgramID()) {
		return fmt.Errorf("%w: mint %s", ledger.ErrOwnerMismatch, mint)
	}
	current, err := DecodeMint(acc.Data)
	if err != nil {
		return err
	}
	if current.Initialized {
		return fmt.Errorf("%w: mint %s", ErrAlreadyInitialized, mint)
	}
	auth := authority
	data, err := Mint{Authority: &auth, Decimals: decimals, Initialized: true}.marshal()
	if err != nil {
		return err
	}
	return tx.Write(ctx, s.ProgramID(), mint, data)
}

// HoldingAddress is the canonical holding of owner for mint.
func (s *Service) HoldingAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	return addr, err
}

// CreateHolding allocates and initialises owner's holding for mint, paid by
// payer, and returns its address.
func (s *Service) CreateHolding(ctx context.Context, tx *ledger.Tx, payer ledger.Authority, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	if _, err := s.mint(ctx, tx, mint); err != nil {
		return solana.PublicKey{}, err
	}
	addr, bump, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	target, err := ledger.Derived(solana.SPLAssociatedTokenAccountProgramID, [][]byte{
		owner[:], solana.TokenProgramID[:], mint[:], {bump},
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := tx.Create(ctx, payer, target, HoldingSize, s.ProgramID()); err != nil {
		return solana.PublicKey{}, err
	}
	data, err := Holding{Mint: mint, Owner: owner, State: 1}.marshal()
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := tx.Write(ctx, s.ProgramID(), addr, data); err != nil {
		return solana.PublicKey{}, err
	}
	log.Debug().Str("holding", addr.String()).Str("owner", owner.String()).Msg("token.CreateHolding")
	return addr, nil
}

// MintTo issues amount new units of mint into holding. authority must be
// the mint authority and prove itself to the transaction.
func (s *Service) MintTo(ctx context.Context, tx *ledger.Tx, mint, holding solana.PublicKey, authority ledger.Authority, amount uint64) error {
	if err := tx.Authorize(authority); err != nil {
		return err
	}
	m, err := s.mint(ctx, tx, mint)
	if err != nil {
		return err
	}
	if m.Authority == nil || !m.Authority.Equals(authority.Key) {
		return fmt.Errorf("%w: %s", ErrAuthorityMismatch, authority.Key)
	}
	h, err := s.holding(ctx, tx, holding)
	if err != nil {
		return err
	}
	if !h.Mint.Equals(mint) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, holding)
	}
	if m.Supply > math.MaxUint64-amount || h.Amount > math.MaxUint64-amount {
		return ErrSupplyOverflow
	}
	m.Supply += amount
	h.Amount += amount

	mintData, err := m.marshal()
	if err != nil {
		return err
	}
	holdingData, err := h.marshal()
	if err != nil {
		return err
	}
	if err := tx.Write(ctx, s.ProgramID(), mint, mintData); err != nil {
		return err
	}
	return tx.Write(ctx, s.ProgramID(), holding, holdingData)
}

// Balance is the amount held at holding.
func (s *Service) Balance(ctx context.Context, tx *ledger.Tx, holding solana.PublicKey) (uint64, error) {
	h, err := s.holding(ctx, tx, holding)
	if err != nil {
		return 0, err
	}
	return h.Amount, nil
}

// Holding decodes the holding at addr.
func (s *Service) Holding(ctx context.Context, tx *ledger.Tx, addr solana.PublicKey) (Holding, error) {
	return s.holding(ctx, tx, addr)
}

// Supply is the total issued amount of mint.
func (s *Service) Supply(ctx context.Context, tx *ledger.Tx, mint solana.PublicKey) (uint64, error) {
	m, err := s.mint(ctx, tx, mint)
	if err != nil {
		return 0, err
	}
	return m.Supply, nil
}

func (s *Service) mint(ctx context.Context, tx *ledger.Tx, addr solana.PublicKey) (Mint, error) {
	acc, err := tx.Get(ctx, addr)
	if err != nil {
		return Mint{}, err
	}
	if !acc.Owner.Equals(s.ProgramID()) {
		return Mint{}, fmt.Errorf("%w: mint %s", ledger.ErrOwnerMismatch, addr)
	}
	m, err := DecodeMint(acc.Data)
	if err != nil {
		return Mint{}, err
	}
	if !m.Initialized {
		return Mint{}, fmt.Errorf("%w: mint %s", ErrNotInitialized, addr)
	}
	return m, nil
}

func (s *Service) holding(ctx context.Context, tx *ledger.Tx, addr solana.PublicKey) (Holding, error) {
	acc, err := tx.Get(ctx, addr)
	if err != nil {
		return Holding{}, err
	}
	if !acc.Owner.Equals(s.ProgramID()) {
		return Holding{}, fmt.Errorf("%w: holding %s", ledger.ErrOwnerMismatch, addr)
	}
	h, err := DecodeHolding(acc.Data)
	if err != nil {
		return Holding{}, err
	}
	if h.State == 0 {
		return Holding{}, fmt.Errorf("%w: holding %s", ErrNotInitialized, addr)
	}
	return h, nil
}
