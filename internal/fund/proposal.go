package fund

import (
	"context"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/danmuck/fundgov/internal/state"
)

// Account positions for CreateProposal; asset accounts follow.
const (
	cpProposer = iota
	cpProposal
	cpFund
	cpMemberRecord
	cpAssets
)

func (p *Processor) createProposal(ctx context.Context, tx *ledger.Tx, accounts accountList, cmd protocol.CreateProposal) error {
	const op = "create_proposal"
	legs := cmd.LegCount()
	if len(cmd.RoutingTags) != legs {
		return reject(op, KindLengthMismatch, "%d amounts, %d routing tags", legs, len(cmd.RoutingTags))
	}
	if legs == 0 {
		return reject(op, KindLengthMismatch, "proposal has no legs")
	}
	if err := accounts.need(cpAssets); err != nil {
		return err
	}
	proposer := accounts.key(cpProposer)
	if err := requireSigner(op, tx, proposer); err != nil {
		return err
	}

	fundRole, err := deriveRole(op, "fund", address.FundSeeds(cmd.Seed), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, fundRole, accounts.key(cpFund)); err != nil {
		return err
	}
	if _, _, err := p.loadFund(ctx, tx, op, fundRole.Address()); err != nil {
		return err
	}
	proposalRole, err := deriveRole(op, "proposal", address.ProposalSeeds(fundRole.Address(), proposer), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, proposalRole, accounts.key(cpProposal)); err != nil {
		return err
	}
	member, memberRole, err := p.loadActiveMember(ctx, tx, op, fundRole.Address(), proposer, accounts.key(cpMemberRecord))
	if err != nil {
		return err
	}
	if cmd.Deadline <= tx.Now() {
		return reject(op, KindDeadlinePassed, "deadline %d is not after %d", cmd.Deadline, tx.Now())
	}
	if err := accounts.need(cpAssets + 2*legs); err != nil {
		return err
	}
	exists, err := p.exists(ctx, tx, op, proposalRole.Address())
	if err != nil {
		return err
	}
	if exists {
		return rejectWith(op, KindStateMismatch, ErrAlreadyExists, "proposal %s", proposalRole.Address())
	}

	proposal := &state.Proposal{
		Proposer:    proposer,
		FromAssets:  accounts.keys(cpAssets, legs),
		ToAssets:    accounts.keys(cpAssets+legs, legs),
		Amounts:     append([]uint64(nil), cmd.Amounts...),
		RoutingTags: append([]uint8(nil), cmd.RoutingTags...),
		Deadline:    cmd.Deadline,
		CreatedAt:   tx.Now(),
	}
	member.ProposalCount++

	// Side effects start here.
	if err := p.create(ctx, tx, op, ledger.Wallet(proposer), proposalRole, proposal); err != nil {
		return err
	}
	if err := p.store(ctx, tx, op, memberRole.Address(), member); err != nil {
		return err
	}

	p.log.Info().
		Str("fund", fundRole.Address().String()).
		Str("proposal", proposalRole.Address().String()).
		Int("legs", legs).
		Int64("deadline", cmd.Deadline).
		Msg("fund.CreateProposal")
	return nil
}
