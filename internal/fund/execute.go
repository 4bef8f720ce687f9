package fund

import (
	"context"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/danmuck/fundgov/internal/state"
	"github.com/shopspring/decimal"
)

// Account positions for Execute.
const (
	exCaller = iota
	exFund
	exProposal
	exMemberRecord
	exVault
	exAccounts
)

var (
	bpsScale = decimal.NewFromInt(maxBps)
	two      = decimal.NewFromInt(2)
)

// Approved applies the execution policy: yes must beat no and reach
// quorumBps of the total deposit. Before the deadline yes must also hold a
// strict majority of the total deposit, so the outcome can no longer flip.
func Approved(p *state.Proposal, totalDeposit uint64, quorumBps uint16, now int64) (bool, string) {
	yes := decimal.NewFromUint64(p.VotesYes)
	total := decimal.NewFromUint64(totalDeposit)
	if p.VotesYes <= p.VotesNo {
		return false, "yes votes do not exceed no votes"
	}
	if yes.Mul(bpsScale).LessThan(total.Mul(decimal.NewFromInt(int64(quorumBps)))) {
		return false, "quorum not reached"
	}
	if p.StatusAt(now) == state.StatusOpen && !yes.Mul(two).GreaterThan(total) {
		return false, "voting still open without a deposit majority"
	}
	return true, ""
}

func (p *Processor) execute(ctx context.Context, tx *ledger.Tx, accounts accountList, cmd protocol.Execute) error {
	const op = "execute"
	if err := accounts.need(exAccounts); err != nil {
		return err
	}
	caller := accounts.key(exCaller)
	if err := requireSigner(op, tx, caller); err != nil {
		return err
	}
	proposalAddr := accounts.key(exProposal)
	if !cmd.Target.Equals(proposalAddr) {
		return reject(op, KindAddressMismatch, "target %s, supplied proposal %s", cmd.Target, proposalAddr)
	}

	f, fundRole, err := p.loadFund(ctx, tx, op, accounts.key(exFund))
	if err != nil {
		return err
	}
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
	if _, _, err := p.loadActiveMember(ctx, tx, op, fundRole.Address(), caller, accounts.key(exMemberRecord)); err != nil {
		return err
	}
	vaultRole, err := deriveRole(op, "vault", address.VaultSeeds(fundRole.Address()), p.cfg.ProgramID)
	if err != nil {
		return err
	}
	if err := bind(op, vaultRole, accounts.key(exVault)); err != nil {
		return err
	}
	if err := sameRef(op, "vault", f.Vault, accounts.key(exVault)); err != nil {
		return err
	}
	if proposal.Executed {
		return rejectWith(op, KindStateMismatch, ErrAlreadyExecuted, "proposal %s", proposalAddr)
	}
	legs, ok := proposal.Legs()
	if !ok || legs == 0 {
		return reject(op, KindLengthMismatch, "stored proposal legs disagree")
	}
	if ok, reason := Approved(proposal, f.TotalDeposit, p.cfg.QuorumBps, tx.Now()); !ok {
		return rejectWith(op, KindStateMismatch, ErrQuorumNotReached, "%s", reason)
	}

	req := ExecutionRequest{
		Fund:     fundRole.Address(),
		Vault:    f.Vault,
		Proposal: proposalAddr,
		Legs:     make([]Leg, 0, legs),
		Now:      tx.Now(),
	}
	for i := 0; i < legs; i++ {
		req.Legs = append(req.Legs, Leg{
			From:       proposal.FromAssets[i],
			To:         proposal.ToAssets[i],
			Amount:     proposal.Amounts[i],
			RoutingTag: proposal.RoutingTags[i],
		})
	}

	// Side effects start here.
	if err := p.exec.Reallocate(ctx, req); err != nil {
		return collaborator(op, "reallocate", err)
	}
	proposal.Executed = true
	if err := p.store(ctx, tx, op, proposalAddr, proposal); err != nil {
		return err
	}

	p.log.Info().
		Str("fund", fundRole.Address().String()).
		Str("proposal", proposalAddr.String()).
		Uint64("yes", proposal.VotesYes).
		Uint64("no", proposal.VotesNo).
		Msg("fund.Execute")
	return nil
}
