package fund

import (
	"context"
	"fmt"
	"math"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/danmuck/fundgov/internal/state"
	"github.com/danmuck/fundgov/internal/token"
	"github.com/gagliardetto/solana-go"
)

// Account positions for CreateFund.
const (
	cfMint = iota
	cfVault
	cfFund
	cfFunding
	cfMembers
)

// RentShare splits the creation cost evenly across members. The remainder
// stays with the funding account.
func RentShare(total uint64, members int) uint64 {
	if members <= 0 {
		return 0
	}
	return total / uint64(members)
}

// CreationCost is the rent for the fund record, vault and mint of a fund
// with the given member count and name.
func CreationCost(rent ledger.Rent, members int, name string) (uint64, error) {
	var total uint64
	for _, space := range []int{state.FundSize(members, len(name)), token.HoldingSize, token.MintSize} {
		lamports, err := rent.MinimumBalance(space)
		if err != nil {
			return 0, err
		}
		if total > math.MaxUint64-lamports {
			return 0, fmt.Errorf("%w: creation cost exceeds a lamport balance", ledger.ErrOverflow)
		}
		total += lamports
	}
	return total, nil
}

func (p *Processor) createFund(ctx context.Context, tx *ledger.Tx, accounts accountList, cmd protocol.CreateFund) error {
	const op = "create_fund"
	n := int(cmd.MemberCount)
	if n == 0 {
		return reject(op, KindInvalidInstruction, "member count is zero")
	}
	if len(cmd.Name) > MaxNameLen {
		return reject(op, KindInvalidInstruction, "name is %d bytes, limit %d", len(cmd.Name), MaxNameLen)
	}
	if err := accounts.need(cfMembers + n); err != nil {
		return err
	}
	members := accounts.keys(cfMembers, n)
	seen := make(map[solana.PublicKey]bool, n)
	for _, m := range members {
		if seen[m] {
			return reject(op, KindInvalidInstruction, "member %s listed twice", m)
		}
		seen[m] = true
		if err := requireSigner(op, tx, m); err != nil {
			return err
		}
	}

	if canonical := address.CanonicalFundSeed(members, cmd.Name); canonical != [32]byte(cmd.Seed) {
		return reject(op, KindAddressMismatch, "seed is not bound to the signing members and name")
	}
	fundRole, err := deriveRole(op, "fund", address.FundSeeds(cmd.Seed), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	fundAddr := fundRole.Address()
	vaultRole, err := deriveRole(op, "vault", address.VaultSeeds(fundAddr), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	mintRole, err := deriveRole(op, "mint", address.MintSeeds(fundAddr), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	fundingRole, err := deriveRole(op, "funding", address.FundingSeeds(), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	for _, b := range []struct {
		r   role
		pos int
	}{{fundRole, cfFund}, {vaultRole, cfVault}, {mintRole, cfMint}, {fundingRole, cfFunding}} {
		if err := bind(op, b.r, accounts.key(b.pos)); err != nil {
			return err
		}
	}
	for _, r := range []role{fundRole, vaultRole, mintRole} {
		ok, err := p.exists(ctx, tx, op, r.Address())
		if err != nil {
			return err
		}
		if ok {
			return rejectWith(op, KindStateMismatch, ErrAlreadyExists, "%s %s", r.name, r.Address())
		}
	}

	record := &state.Fund{
		Seed:        cmd.Seed,
		Name:        cmd.Name,
		Creator:     members[0],
		Members:     members,
		Mint:        mintRole.Address(),
		Vault:       vaultRole.Address(),
		Initialized: true,
		CreatedAt:   tx.Now(),
		Private:     cmd.Private,
		Bump:        fundRole.derived.Bump,
	}
	cost, err := CreationCost(tx.Rent(), n, cmd.Name)
	if err != nil {
		return collaborator(op, "price creation", err)
	}
	share := RentShare(cost, n)

	// Side effects start here.
	for _, m := range members {
		if err := tx.Transfer(ctx, ledger.Wallet(m), fundingRole.Address(), share); err != nil {
			return collaborator(op, "collect rent share", err)
		}
	}
	funding, err := fundingRole.authority(p.cfg.ProgramID)
	if err != nil {
		return collaborator(op, "sign as funding", err)
	}
	mintAuth, err := mintRole.authority(p.cfg.ProgramID)
	if err != nil {
		return collaborator(op, "sign as mint", err)
	}
	if err := tx.Create(ctx, funding, mintAuth, token.MintSize, p.tokens.ProgramID()); err != nil {
		return collaborator(op, "create mint", err)
	}
	vaultAuth, err := vaultRole.authority(p.cfg.ProgramID)
	if err != nil {
		return collaborator(op, "sign as vault", err)
	}
	if err := tx.Create(ctx, funding, vaultAuth, token.HoldingSize, p.cfg.ProgramID); err != nil {
		return collaborator(op, "create vault", err)
	}
	if err := p.create(ctx, tx, op, funding, fundRole, record); err != nil {
		return err
	}
	if err := p.tokens.InitializeMint(ctx, tx, mintRole.Address(), fundAddr, p.cfg.MintDecimals); err != nil {
		return collaborator(op, "initialize mint", err)
	}

	p.log.Info().
		Str("fund", fundAddr.String()).
		Int("members", n).
		Uint64("rent_share", share).
		Msg("fund.CreateFund")
	return nil
}
