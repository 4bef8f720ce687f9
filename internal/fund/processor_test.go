package fund

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/danmuck/fundgov/internal/state"
	"github.com/danmuck/fundgov/internal/testutil/testlog"
	"github.com/danmuck/fundgov/internal/token"
	"github.com/gagliardetto/solana-go"
)

func TestCreateFundSplitsRentAcrossMembers(t *testing.T) {
	h := newHarness(t)
	a, b, c := h.wallet(), h.wallet(), h.wallet()
	f := h.createFund("alpha", false, a, b, c)

	cost, err := CreationCost(h.host.Rent(), 3, "alpha")
	if err != nil {
		t.Fatalf("creation cost: %v", err)
	}
	share := RentShare(cost, 3)
	if cost-3*share > 2 {
		t.Fatalf("remainder too large: cost=%d share=%d", cost, share)
	}
	for _, m := range []solana.PrivateKey{a, b, c} {
		if got := h.account(m.PublicKey()).Lamports; got != walletFunds-share {
			t.Fatalf("member %s charged %d, want %d", m.PublicKey(), walletFunds-got, share)
		}
	}
	funding, _ := h.derive.Funding()
	if got, want := h.account(funding.Address).Lamports, fundingFloat+3*share-cost; got != want {
		t.Fatalf("funding balance %d want %d", got, want)
	}

	var rec state.Fund
	h.load(f.addr, &rec)
	if !rec.Initialized || rec.TotalDeposit != 0 || rec.MemberCount() != 3 {
		t.Fatalf("unexpected fund record: %+v", rec)
	}
	if !rec.Creator.Equals(a.PublicKey()) || !rec.Mint.Equals(f.mint) || !rec.Vault.Equals(f.vault) {
		t.Fatalf("fund references wrong: %+v", rec)
	}
	if rec.CreatedAt != testNow || rec.Name != "alpha" {
		t.Fatalf("fund metadata wrong: %+v", rec)
	}

	fundAcc := h.account(f.addr)
	if len(fundAcc.Data) != state.FundSize(3, len("alpha")) || !fundAcc.Owner.Equals(testProgram) {
		t.Fatalf("fund account allocation wrong: len=%d owner=%s", len(fundAcc.Data), fundAcc.Owner)
	}
	mintAcc := h.account(f.mint)
	m, err := token.DecodeMint(mintAcc.Data)
	if err != nil {
		t.Fatalf("decode mint: %v", err)
	}
	if !m.Initialized || m.Decimals != DefaultMintDecimals || m.Authority == nil || !m.Authority.Equals(f.addr) {
		t.Fatalf("mint not initialised for fund: %+v", m)
	}
	if vault := h.account(f.vault); len(vault.Data) != token.HoldingSize || !vault.Owner.Equals(testProgram) {
		t.Fatalf("vault allocation wrong: %+v", vault)
	}
}

func TestCreateFundRejectsUnboundSeed(t *testing.T) {
	h := newHarness(t)
	a, b := h.wallet(), h.wallet()
	f := h.fixture("alpha", a, b)
	f.seed[0] ^= 0xff
	derived, _ := h.derive.Fund(f.seed)
	f.addr = derived.Address
	vault, _ := h.derive.Vault(f.addr)
	mint, _ := h.derive.Mint(f.addr)
	f.vault, f.mint = vault.Address, mint.Address

	err := h.submit(protocol.CreateFund{MemberCount: 2, Seed: f.seed, Name: "alpha"}, h.createFundMetas(f), a, b)
	expectKind(t, err, KindAddressMismatch)
	if h.exists(f.addr) {
		t.Fatalf("fund created despite rejection")
	}
}

func TestCreateFundRequiresEverySignature(t *testing.T) {
	h := newHarness(t)
	a, b := h.wallet(), h.wallet()
	f := h.fixture("alpha", a, b)
	metas := h.createFundMetas(f)
	metas[len(metas)-1].IsSigner = false

	err := h.submit(protocol.CreateFund{MemberCount: 2, Seed: f.seed, Name: "alpha"}, metas, a)
	expectKind(t, err, KindMissingSignature)
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
	if h.account(a.PublicKey()).Lamports != walletFunds {
		t.Fatalf("signing member charged for a rejected command")
	}
}

func TestCreateFundRejectsForgedAccounts(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.fixture("alpha", a)
	ins := protocol.CreateFund{MemberCount: 1, Seed: f.seed, Name: "alpha"}

	for pos := 0; pos < 4; pos++ {
		metas := h.createFundMetas(f)
		metas[pos].PublicKey = solana.NewWallet().PublicKey()
		expectKind(t, h.submit(ins, metas, a), KindAddressMismatch)
	}
	expectKind(t, h.submit(ins, h.createFundMetas(f)[:4], a), KindInsufficientAccounts)
	expectKind(t, h.submit(protocol.CreateFund{Seed: f.seed}, h.createFundMetas(f), a), KindInvalidInstruction)
}

func TestCreateFundRejectsOverflowingRent(t *testing.T) {
	h := newHarness(t)
	rent := ledger.DefaultRent()
	rent.LamportsPerByteYear = math.MaxInt64
	h.host = ledger.NewHost(h.backend, ledger.WithClock(h.clock), ledger.WithRent(rent))
	a, b, c := h.wallet(), h.wallet(), h.wallet()
	f := h.fixture("alpha", a, b, c)
	before := h.backend.Len()

	if _, err := CreationCost(rent, 3, "alpha"); !errors.Is(err, ledger.ErrOverflow) {
		t.Fatalf("expected overflowing cost, got %v", err)
	}
	err := h.submit(protocol.CreateFund{MemberCount: 3, Seed: f.seed, Name: "alpha"}, h.createFundMetas(f), a, b, c)
	expectKind(t, err, KindCollaborator)
	if !errors.Is(err, ledger.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	for _, m := range []solana.PrivateKey{a, b, c} {
		if got := h.account(m.PublicKey()).Lamports; got != walletFunds {
			t.Fatalf("member charged %d for a rejected fund", walletFunds-got)
		}
	}
	if h.exists(f.addr) || h.backend.Len() != before {
		t.Fatalf("rejected fund left accounts behind")
	}
}

func TestCreateFundTwice(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	err := h.submit(protocol.CreateFund{MemberCount: 1, Seed: f.seed, Name: "alpha"}, h.createFundMetas(f), a)
	expectKind(t, err, KindStateMismatch)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestDepositTwiceCreatesHoldingOnce(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	holding := h.holding(f, a.PublicKey())
	if h.exists(holding) {
		t.Fatalf("holding exists before first deposit")
	}
	vaultBefore := h.account(f.vault).Lamports

	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if !h.exists(holding) {
		t.Fatalf("holding not created on first deposit")
	}
	afterFirst := h.account(a.PublicKey()).Lamports

	if err := h.deposit(f, a, 50); err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if got := afterFirst - h.account(a.PublicKey()).Lamports; got != 50 {
		t.Fatalf("second deposit charged %d, want exactly the amount", got)
	}
	if got := h.balance(holding); got != 150 {
		t.Fatalf("token balance %d want 150", got)
	}
	if got := h.account(f.vault).Lamports - vaultBefore; got != 150 {
		t.Fatalf("vault received %d want 150", got)
	}

	var rec state.Fund
	h.load(f.addr, &rec)
	if rec.TotalDeposit != 150 {
		t.Fatalf("total deposit %d want 150", rec.TotalDeposit)
	}
	var m state.Member
	h.load(h.memberRecord(f, a.PublicKey()), &m)
	if m.Deposit != 150 || m.TokenBalance != 150 || !m.Active || !m.Holding.Equals(holding) {
		t.Fatalf("unexpected member record: %+v", m)
	}
}

func TestDepositRejectsForgedReferences(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	other := h.createFund("beta", false, a)
	ins := protocol.Deposit{Amount: 10, Seed: f.seed}

	metas := h.depositMetas(f, a.PublicKey())
	metas[depMint].PublicKey = other.mint
	expectKind(t, h.submit(ins, metas, a), KindStateMismatch)

	metas = h.depositMetas(f, a.PublicKey())
	metas[depVault].PublicKey = other.vault
	expectKind(t, h.submit(ins, metas, a), KindAddressMismatch)

	metas = h.depositMetas(f, a.PublicKey())
	metas[depFund].PublicKey = other.addr
	expectKind(t, h.submit(ins, metas, a), KindAddressMismatch)

	metas = h.depositMetas(f, a.PublicKey())
	metas[depHolding].PublicKey = h.holding(other, a.PublicKey())
	expectKind(t, h.submit(ins, metas, a), KindAddressMismatch)

	metas = h.depositMetas(f, a.PublicKey())
	metas[depMember].IsSigner = false
	expectKind(t, h.submit(ins, metas), KindMissingSignature)

	expectKind(t, h.submit(protocol.Deposit{Amount: 0, Seed: f.seed}, h.depositMetas(f, a.PublicKey()), a), KindInvalidInstruction)

	var rec state.Fund
	h.load(f.addr, &rec)
	if rec.TotalDeposit != 0 {
		t.Fatalf("rejected deposits changed the fund: %+v", rec)
	}
}

func TestPrivateFundRejectsOutsiders(t *testing.T) {
	h := newHarness(t)
	a, outsider := h.wallet(), h.wallet()
	f := h.createFund("club", true, a)
	err := h.deposit(f, outsider, 10)
	expectKind(t, err, KindStateMismatch)
	if !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if err := h.deposit(f, a, 10); err != nil {
		t.Fatalf("member deposit: %v", err)
	}

	open := h.createFund("open", false, a)
	if err := h.deposit(open, outsider, 10); err != nil {
		t.Fatalf("public fund deposit: %v", err)
	}
}

func TestCreateProposalLengthMismatchCreatesNothing(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	before := h.backend.Len()
	ins := protocol.CreateProposal{Amounts: []uint64{1, 2}, RoutingTags: []uint8{1}, Deadline: testNow + 60, Seed: f.seed}
	err := h.submitTyped(ins, h.proposalMetas(f, a.PublicKey(), 4), a)
	expectKind(t, err, KindLengthMismatch)
	if h.backend.Len() != before || h.exists(h.proposalAddr(f, a.PublicKey())) {
		t.Fatalf("accounts created by rejected proposal")
	}

	_, err = h.propose(f, a, nil, testNow+60)
	expectKind(t, err, KindLengthMismatch)
}

func TestCreateProposalValidation(t *testing.T) {
	h := newHarness(t)
	a, b := h.wallet(), h.wallet()
	f := h.createFund("alpha", false, a, b)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := h.propose(f, b, []uint64{5}, testNow+60)
	expectKind(t, err, KindStateMismatch)

	_, err = h.propose(f, a, []uint64{5}, testNow)
	expectKind(t, err, KindDeadlinePassed)

	ins := protocol.CreateProposal{Amounts: []uint64{5, 6}, RoutingTags: []uint8{1, 2}, Deadline: testNow + 60, Seed: f.seed}
	err = h.submit(ins, h.proposalMetas(f, a.PublicKey(), 3), a)
	expectKind(t, err, KindInsufficientAccounts)

	addr, err := h.propose(f, a, []uint64{5, 6}, testNow+60)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	var p state.Proposal
	h.load(addr, &p)
	if legs, ok := p.Legs(); !ok || legs != 2 || p.VotesYes != 0 || p.VotesNo != 0 || p.Executed {
		t.Fatalf("unexpected proposal: %+v", p)
	}
	if len(h.account(addr).Data) != state.ProposalSize(2) {
		t.Fatalf("proposal not sized for its legs")
	}
	var m state.Member
	h.load(h.memberRecord(f, a.PublicKey()), &m)
	if m.ProposalCount != 1 {
		t.Fatalf("proposal count %d want 1", m.ProposalCount)
	}

	_, err = h.propose(f, a, []uint64{7}, testNow+60)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected second open proposal to be rejected, got %v", err)
	}
}

func TestCastVoteTwiceIsRejected(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+3600)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.vote(f, proposal, a, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	voteAddr := h.voteAddr(proposal, a.PublicKey())
	firstVote := h.account(voteAddr)
	firstProposal := h.account(proposal)

	err = h.vote(f, proposal, a, false)
	expectKind(t, err, KindAlreadyVoted)
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
	if string(h.account(voteAddr).Data) != string(firstVote.Data) || string(h.account(proposal).Data) != string(firstProposal.Data) {
		t.Fatalf("second vote changed stored state")
	}

	var p state.Proposal
	h.load(proposal, &p)
	if p.VotesYes != 100 || p.VotesNo != 0 {
		t.Fatalf("tallies yes=%d no=%d", p.VotesYes, p.VotesNo)
	}
	var v state.Vote
	h.load(voteAddr, &v)
	if !v.Approve || v.VotingPower != 100 || v.CastAt != testNow {
		t.Fatalf("unexpected vote record: %+v", v)
	}
}

func TestCastVoteAfterDeadline(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+60)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	h.clock.Set(testNow + 61)

	expectKind(t, h.vote(f, proposal, a, true), KindDeadlinePassed)
	if h.exists(h.voteAddr(proposal, a.PublicKey())) {
		t.Fatalf("vote record created after deadline")
	}
}

func TestDeadlineBoundary(t *testing.T) {
	h := newHarness(t)
	a, b := h.wallet(), h.wallet()
	f := h.createFund("alpha", false, a, b)
	for _, m := range []solana.PrivateKey{a, b} {
		if err := h.deposit(f, m, 100); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	_, err := h.propose(f, a, []uint64{10}, testNow)
	expectKind(t, err, KindDeadlinePassed)
	if h.exists(h.proposalAddr(f, a.PublicKey())) {
		t.Fatalf("proposal created with deadline equal to now")
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+1)
	if err != nil {
		t.Fatalf("propose one second ahead: %v", err)
	}

	h.clock.Set(testNow + 1)
	if err := h.vote(f, proposal, a, true); err != nil {
		t.Fatalf("vote at the deadline second: %v", err)
	}
	h.clock.Set(testNow + 2)
	expectKind(t, h.vote(f, proposal, b, false), KindDeadlinePassed)

	var p state.Proposal
	h.load(proposal, &p)
	if p.VotesYes != 100 || p.VotesNo != 0 {
		t.Fatalf("tallies yes=%d no=%d", p.VotesYes, p.VotesNo)
	}
}

func TestCastVoteSnapshotsPower(t *testing.T) {
	h := newHarness(t)
	a, b := h.wallet(), h.wallet()
	f := h.createFund("alpha", false, a, b)
	for _, m := range []solana.PrivateKey{a, b} {
		if err := h.deposit(f, m, 100); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+3600)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.vote(f, proposal, b, false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := h.deposit(f, b, 500); err != nil {
		t.Fatalf("deposit after vote: %v", err)
	}
	var v state.Vote
	h.load(h.voteAddr(proposal, b.PublicKey()), &v)
	if v.VotingPower != 100 || v.Approve {
		t.Fatalf("vote snapshot changed: %+v", v)
	}
	var p state.Proposal
	h.load(proposal, &p)
	if p.VotesNo != 100 {
		t.Fatalf("no tally %d want 100", p.VotesNo)
	}
}

func TestCastVoteRejectsForgedAccounts(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	other := h.createFund("beta", false, a)
	for _, fx := range []fundFixture{f, other} {
		if err := h.deposit(fx, a, 100); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+3600)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	otherProposal, err := h.propose(other, a, []uint64{10}, testNow+3600)
	if err != nil {
		t.Fatalf("propose other: %v", err)
	}
	ins := protocol.CastVote{Approve: true, Seed: f.seed}

	metas := h.voteMetas(f, proposal, a.PublicKey())
	metas[cvProposal].PublicKey = otherProposal
	expectKind(t, h.submit(ins, metas, a), KindAddressMismatch)

	metas = h.voteMetas(f, proposal, a.PublicKey())
	metas[cvMint].PublicKey = other.mint
	expectKind(t, h.submit(ins, metas, a), KindStateMismatch)

	metas = h.voteMetas(f, proposal, a.PublicKey())
	metas[cvHolding].PublicKey = h.holding(other, a.PublicKey())
	expectKind(t, h.submit(ins, metas, a), KindAddressMismatch)

	metas = h.voteMetas(f, proposal, a.PublicKey())
	metas[cvProposal].PublicKey = f.addr
	expectKind(t, h.submit(ins, metas, a), KindStateMismatch)

	metas = h.voteMetas(f, proposal, a.PublicKey())
	metas[cvVote].PublicKey = h.voteAddr(otherProposal, a.PublicKey())
	expectKind(t, h.submit(ins, metas, a), KindAddressMismatch)
}

func TestExecuteOnce(t *testing.T) {
	h := newHarness(t)
	a, b := h.wallet(), h.wallet()
	f := h.createFund("alpha", false, a, b)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit a: %v", err)
	}
	if err := h.deposit(f, b, 50); err != nil {
		t.Fatalf("deposit b: %v", err)
	}
	proposal, err := h.propose(f, a, []uint64{30, 40}, testNow+3600)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	err = h.execute(f, proposal, a)
	if !errors.Is(err, ErrQuorumNotReached) {
		t.Fatalf("expected policy rejection without votes, got %v", err)
	}
	if err := h.vote(f, proposal, a, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := h.execute(f, proposal, b); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(h.executed) != 1 {
		t.Fatalf("executor called %d times", len(h.executed))
	}
	req := h.executed[0]
	if !req.Proposal.Equals(proposal) || !req.Vault.Equals(f.vault) || len(req.Legs) != 2 || req.Legs[1].Amount != 40 || req.Legs[1].RoutingTag != 2 {
		t.Fatalf("unexpected execution request: %+v", req)
	}

	var p state.Proposal
	h.load(proposal, &p)
	if !p.Executed || p.StatusAt(testNow) != state.StatusExecuted {
		t.Fatalf("proposal not executed: %+v", p)
	}
	err = h.execute(f, proposal, a)
	expectKind(t, err, KindStateMismatch)
	if !errors.Is(err, ErrAlreadyExecuted) {
		t.Fatalf("expected ErrAlreadyExecuted, got %v", err)
	}
	if len(h.executed) != 1 {
		t.Fatalf("executor called again")
	}
	expectKind(t, h.vote(f, proposal, b, false), KindStateMismatch)
}

func TestExecuteAfterDeadlineUsesQuorum(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.QuorumBps = 3000 })
	a, b := h.wallet(), h.wallet()
	f := h.createFund("alpha", false, a, b)
	if err := h.deposit(f, a, 50); err != nil {
		t.Fatalf("deposit a: %v", err)
	}
	if err := h.deposit(f, b, 100); err != nil {
		t.Fatalf("deposit b: %v", err)
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+60)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.vote(f, proposal, a, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := h.execute(f, proposal, a); !errors.Is(err, ErrQuorumNotReached) {
		t.Fatalf("open proposal without majority should wait, got %v", err)
	}
	h.clock.Set(testNow + 61)
	if err := h.execute(f, proposal, a); err != nil {
		t.Fatalf("execute after deadline: %v", err)
	}
}

func TestExecuteRejectsWrongTargetAndNonMember(t *testing.T) {
	h := newHarness(t)
	a, outsider := h.wallet(), h.wallet()
	f := h.createFund("alpha", false, a)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+3600)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.vote(f, proposal, a, true); err != nil {
		t.Fatalf("vote: %v", err)
	}

	err = h.submit(protocol.Execute{Target: f.addr}, h.executeMetas(f, proposal, a.PublicKey()), a)
	expectKind(t, err, KindAddressMismatch)

	expectKind(t, h.execute(f, proposal, outsider), KindStateMismatch)

	metas := h.executeMetas(f, proposal, a.PublicKey())
	metas[exVault].PublicKey = f.mint
	expectKind(t, h.submit(protocol.Execute{Target: proposal}, metas, a), KindAddressMismatch)
	if len(h.executed) != 0 {
		t.Fatalf("executor reached by rejected commands")
	}
}

func TestExecutorFailureLeavesProposalOpen(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	proposal, err := h.propose(f, a, []uint64{10}, testNow+3600)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := h.vote(f, proposal, a, true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	routeErr := errors.New("no route")
	h.execErr = routeErr
	err = h.execute(f, proposal, a)
	if !errors.Is(err, routeErr) || KindOf(err) != KindCollaborator {
		t.Fatalf("expected executor failure, got %v", err)
	}
	var p state.Proposal
	h.load(proposal, &p)
	if p.Executed {
		t.Fatalf("proposal flipped despite failed reallocation")
	}
	h.execErr = nil
	if err := h.execute(f, proposal, a); err != nil {
		t.Fatalf("retry execute: %v", err)
	}
}

func TestFailedCommandLeavesStoreUnchanged(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	f := h.createFund("alpha", false, a)
	if err := h.deposit(f, a, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	broke := h.wallet()
	before := h.account(a.PublicKey()).Lamports
	count := h.backend.Len()

	// Member record and holding creation succeed inside the journal; the
	// transfer then fails for lack of funds and everything is discarded.
	err := h.deposit(f, broke, walletFunds)
	expectKind(t, err, KindCollaborator)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if h.exists(h.memberRecord(f, broke.PublicKey())) || h.exists(h.holding(f, broke.PublicKey())) {
		t.Fatalf("partial deposit leaked")
	}
	if h.backend.Len() != count || h.account(broke.PublicKey()).Lamports != walletFunds {
		t.Fatalf("store changed by failed command")
	}
	if h.account(a.PublicKey()).Lamports != before {
		t.Fatalf("unrelated account changed")
	}
}

func TestProcessRejectsUndecodableAndForeignCommands(t *testing.T) {
	h := newHarness(t)
	a := h.wallet()
	metas := []*solana.AccountMeta{solana.Meta(a.PublicKey()).SIGNER()}

	err := h.submitRaw([]byte{99}, metas, a)
	expectKind(t, err, KindDecode)
	if !errors.Is(err, protocol.ErrDecode) || !errors.Is(err, protocol.ErrUnknownOpcode) {
		t.Fatalf("expected decode error chain, got %v", err)
	}
	expectKind(t, h.submitRaw([]byte{byte(protocol.OpDeposit), 1}, metas, a), KindDecode)

	cmd := ledger.Command{ProgramID: solana.SystemProgramID, Accounts: metas, Data: []byte{4}}
	sigs, _ := ledger.Sign(cmd, a)
	expectKind(t, h.host.Submit(context.Background(), h.proc, cmd, sigs...), KindInvalidInstruction)
}

func TestRentShareAndKinds(t *testing.T) {
	testlog.Start(t)
	if got := RentShare(10, 3); got != 3 {
		t.Fatalf("share %d want 3", got)
	}
	if got := RentShare(10, 0); got != 0 {
		t.Fatalf("share with no members %d", got)
	}
	if KindOf(nil) != "" {
		t.Fatalf("nil error has a kind")
	}
	if KindOf(ErrAlreadyExecuted) != KindStateMismatch {
		t.Fatalf("derived sentinel misclassified")
	}
	if KindOf(errors.New("x")) != KindCollaborator {
		t.Fatalf("foreign error misclassified")
	}
	err := reject("deposit", KindAlreadyVoted, "again")
	if !errors.Is(err, ErrAlreadyVoted) || err.Error() != "fund: deposit: already_voted: again" {
		t.Fatalf("unexpected error shape: %v", err)
	}
}
