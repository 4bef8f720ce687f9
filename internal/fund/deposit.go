package fund

import (
	"context"
	"math"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/observability"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/danmuck/fundgov/internal/state"
)

// Account positions for Deposit.
const (
	depMint = iota
	depVault
	depFund
	depHolding
	depMember
	depMemberRecord
	depAccounts
)

func (p *Processor) deposit(ctx context.Context, tx *ledger.Tx, accounts accountList, cmd protocol.Deposit) error {
	const op = "deposit"
	if cmd.Amount == 0 {
		return reject(op, KindInvalidInstruction, "amount is zero")
	}
	if err := accounts.need(depAccounts); err != nil {
		return err
	}
	user := accounts.key(depMember)
	if err := requireSigner(op, tx, user); err != nil {
		return err
	}

	fundRole, err := deriveRole(op, "fund", address.FundSeeds(cmd.Seed), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, fundRole, accounts.key(depFund)); err != nil {
		return err
	}
	f, _, err := p.loadFund(ctx, tx, op, fundRole.Address())
	if err != nil {
		return err
	}
	vaultRole, err := deriveRole(op, "vault", address.VaultSeeds(fundRole.Address()), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, vaultRole, accounts.key(depVault)); err != nil {
		return err
	}
	if err := sameRef(op, "vault", f.Vault, accounts.key(depVault)); err != nil {
		return err
	}
	if err := sameRef(op, "mint", f.Mint, accounts.key(depMint)); err != nil {
		return err
	}
	memberRole, err := deriveRole(op, "member record", address.MemberSeeds(fundRole.Address(), user), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, memberRole, accounts.key(depMemberRecord)); err != nil {
		return err
	}
	holding, err := p.tokens.HoldingAddress(user, f.Mint)
	if err != nil {
		return collaborator(op, "derive holding", err)
	}
	if !holding.Equals(accounts.key(depHolding)) {
		return reject(op, KindAddressMismatch, "holding: supplied %s, derived %s", accounts.key(depHolding), holding)
	}
	if f.Private && !f.IsMember(user) {
		return rejectWith(op, KindStateMismatch, ErrNotMember, "%s is not listed in private fund", user)
	}
	if f.TotalDeposit > math.MaxUint64-cmd.Amount {
		return reject(op, KindInvalidInstruction, "total deposit overflows")
	}

	member := &state.Member{User: user, Holding: holding}
	memberExists, err := p.exists(ctx, tx, op, memberRole.Address())
	if err != nil {
		return err
	}
	if memberExists {
		if err := p.load(ctx, tx, op, memberRole.Address(), member); err != nil {
			return err
		}
		if err := sameRef(op, "member", member.User, user); err != nil {
			return err
		}
		if err := sameRef(op, "holding", member.Holding, holding); err != nil {
			return err
		}
	}
	if member.Deposit > math.MaxUint64-cmd.Amount {
		return reject(op, KindInvalidInstruction, "member deposit overflows")
	}
	holdingExists, err := p.exists(ctx, tx, op, holding)
	if err != nil {
		return err
	}
	fundAuth, err := fundRole.authority(p.cfg.ProgramID)
	if err != nil {
		return collaborator(op, "sign as fund", err)
	}

	// Side effects start here.
	payer := ledger.Wallet(user)
	if !memberExists {
		if err := p.create(ctx, tx, op, payer, memberRole, member); err != nil {
			return err
		}
	}
	if !holdingExists {
		if _, err := p.tokens.CreateHolding(ctx, tx, payer, user, f.Mint); err != nil {
			return collaborator(op, "create holding", err)
		}
	}
	if err := tx.Transfer(ctx, payer, f.Vault, cmd.Amount); err != nil {
		return collaborator(op, "transfer to vault", err)
	}
	if err := p.tokens.MintTo(ctx, tx, f.Mint, holding, fundAuth, cmd.Amount); err != nil {
		return collaborator(op, "mint governance tokens", err)
	}
	balance, err := p.tokens.Balance(ctx, tx, holding)
	if err != nil {
		return collaborator(op, "read balance", err)
	}

	f.TotalDeposit += cmd.Amount
	member.Deposit += cmd.Amount
	member.TokenBalance = balance
	member.Active = true
	if err := p.store(ctx, tx, op, fundRole.Address(), f); err != nil {
		return err
	}
	if err := p.store(ctx, tx, op, memberRole.Address(), member); err != nil {
		return err
	}

	observability.RecordDeposit(cmd.Amount)
	p.log.Info().
		Str("fund", fundRole.Address().String()).
		Str("member", user.String()).
		Uint64("amount", cmd.Amount).
		Uint64("total_deposit", f.TotalDeposit).
		Bool("holding_created", !holdingExists).
		Msg("fund.Deposit")
	return nil
}
