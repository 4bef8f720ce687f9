package main

import (
	"fmt"
	"io"

	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/state"
	"github.com/danmuck/fundgov/internal/token"
	"github.com/gagliardetto/solana-go"
)

// summarize is a one-line label for an account listing.
func summarize(acc ledger.Account) string {
	kind, err := state.PeekKind(acc.Data)
	if err != nil {
		return fmt.Sprintf("raw bytes=%d lamports=%d", len(acc.Data), acc.Lamports)
	}
	return fmt.Sprintf("%s bytes=%d lamports=%d", kind, len(acc.Data), acc.Lamports)
}

func describe(out io.Writer, acc ledger.Account, programID solana.PublicKey) error {
	fmt.Fprintf(out, "address   %s\nowner     %s\nlamports  %d\nbytes     %d\n",
		acc.Address, acc.Owner, acc.Lamports, len(acc.Data))

	if acc.Owner.Equals(solana.TokenProgramID) {
		switch len(acc.Data) {
		case token.MintSize:
			m, err := token.DecodeMint(acc.Data)
			if err != nil {
				return err
			}
			authority := "none"
			if m.Authority != nil {
				authority = m.Authority.String()
			}
			fmt.Fprintf(out, "mint      supply=%d decimals=%d authority=%s\n", m.Supply, m.Decimals, authority)
		case token.HoldingSize:
			h, err := token.DecodeHolding(acc.Data)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "holding   mint=%s owner=%s amount=%d\n", h.Mint, h.Owner, h.Amount)
		}
		return nil
	}
	if !acc.Owner.Equals(programID) {
		return nil
	}
	kind, err := state.PeekKind(acc.Data)
	if err != nil {
		// program-owned accounts without a record are vaults
		fmt.Fprintln(out, "vault")
		return nil
	}
	switch kind {
	case state.KindFund:
		var f state.Fund
		if err := state.Unmarshal(acc.Data, &f); err != nil {
			return err
		}
		fmt.Fprintf(out, "fund      name=%q members=%d total_deposit=%d private=%t\n", f.Name, f.MemberCount(), f.TotalDeposit, f.Private)
		fmt.Fprintf(out, "          mint=%s vault=%s created_at=%d\n", f.Mint, f.Vault, f.CreatedAt)
		for _, m := range f.Members {
			fmt.Fprintf(out, "          member %s\n", m)
		}
	case state.KindMember:
		var m state.Member
		if err := state.Unmarshal(acc.Data, &m); err != nil {
			return err
		}
		fmt.Fprintf(out, "member    user=%s deposit=%d tokens=%d active=%t proposals=%d\n", m.User, m.Deposit, m.TokenBalance, m.Active, m.ProposalCount)
	case state.KindProposal:
		var p state.Proposal
		if err := state.Unmarshal(acc.Data, &p); err != nil {
			return err
		}
		fmt.Fprintf(out, "proposal  proposer=%s yes=%d no=%d deadline=%d executed=%t\n", p.Proposer, p.VotesYes, p.VotesNo, p.Deadline, p.Executed)
		legs, ok := p.Legs()
		if !ok {
			return fmt.Errorf("proposal legs disagree")
		}
		for i := 0; i < legs; i++ {
			fmt.Fprintf(out, "          leg %d %s -> %s amount=%d route=%d\n", i, p.FromAssets[i], p.ToAssets[i], p.Amounts[i], p.RoutingTags[i])
		}
	case state.KindVote:
		var v state.Vote
		if err := state.Unmarshal(acc.Data, &v); err != nil {
			return err
		}
		fmt.Fprintf(out, "vote      voter=%s approve=%t power=%d cast_at=%d\n", v.Voter, v.Approve, v.VotingPower, v.CastAt)
	}
	return nil
}
