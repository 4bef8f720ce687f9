package fund

import (
	"context"
	"math"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/danmuck/fundgov/internal/state"
)

// Account positions for CastVote.
const (
	cvVoter = iota
	cvVote
	cvFund
	cvProposal
	cvMemberRecord
	cvMint
	cvHolding
	cvAccounts
)

func (p *Processor) castVote(ctx context.Context, tx *ledger.Tx, accounts accountList, cmd protocol.CastVote) error {
	const op = "cast_vote"
	if err := accounts.need(cvAccounts); err != nil {
		return err
	}
	voter := accounts.key(cvVoter)
	if err := requireSigner(op, tx, voter); err != nil {
		return err
	}

	fundRole, err := deriveRole(op, "fund", address.FundSeeds(cmd.Seed), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, fundRole, accounts.key(cvFund)); err != nil {
		return err
	}
	f, _, err := p.loadFund(ctx, tx, op, fundRole.Address())
	if err != nil {
		return err
	}
	proposalAddr := accounts.key(cvProposal)
	proposal := &state.Proposal{}
	if err := p.load(ctx, tx, op, proposalAddr, proposal); err != nil {
		return err
	}
	proposalRole, err := deriveRole(op, "proposal", address.ProposalSeeds(fundRole.Address(), proposal.Proposer), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, proposalRole, proposalAddr); err != nil {
		return err
	}
	member, _, err := p.loadActiveMember(ctx, tx, op, fundRole.Address(), voter, accounts.key(cvMemberRecord))
	if err != nil {
		return err
	}
	if err := sameRef(op, "mint", f.Mint, accounts.key(cvMint)); err != nil {
		return err
	}
	holding, err := p.tokens.HoldingAddress(voter, f.Mint)
	if err != nil {
		return collaborator(op, "derive holding", err)
	}
	if !holding.Equals(accounts.key(cvHolding)) {
		return reject(op, KindAddressMismatch, "holding: supplied %s, derived %s", accounts.key(cvHolding), holding)
	}
	if err := sameRef(op, "holding", member.Holding, holding); err != nil {
		return err
	}

	switch proposal.StatusAt(tx.Now()) {
	case state.StatusExecuted:
		return rejectWith(op, KindStateMismatch, ErrAlreadyExecuted, "proposal %s", proposalAddr)
	case state.StatusExpired:
		return reject(op, KindDeadlinePassed, "deadline %d passed at %d", proposal.Deadline, tx.Now())
	}
	voteRole, err := deriveRole(op, "vote", address.VoteSeeds(proposalAddr, voter), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, voteRole, accounts.key(cvVote)); err != nil {
		return err
	}
	voted, err := p.exists(ctx, tx, op, voteRole.Address())
	if err != nil {
		return err
	}
	if voted {
		return reject(op, KindAlreadyVoted, "%s already voted on %s", voter, proposalAddr)
	}
	power, err := p.tokens.Balance(ctx, tx, holding)
	if err != nil {
		return collaborator(op, "read voting power", err)
	}
	tally := &proposal.VotesNo
	if cmd.Approve {
		tally = &proposal.VotesYes
	}
	if *tally > math.MaxUint64-power {
		return reject(op, KindInvalidInstruction, "tally overflows")
	}
	*tally += power

	// Side effects start here.
	vote := &state.Vote{Voter: voter, Approve: cmd.Approve, VotingPower: power, CastAt: tx.Now()}
	if err := p.create(ctx, tx, op, ledger.Wallet(voter), voteRole, vote); err != nil {
		return err
	}
	if err := p.store(ctx, tx, op, proposalAddr, proposal); err != nil {
		return err
	}

	p.log.Info().
		Str("proposal", proposalAddr.String()).
		Str("voter", voter.String()).
		Bool("approve", cmd.Approve).
		Uint64("power", power).
		Msg("fund.CastVote")
	return nil
}
