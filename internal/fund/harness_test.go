package fund

import (
	"context"
	"testing"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/danmuck/fundgov/internal/protocol"
	"github.com/danmuck/fundgov/internal/state"
	"github.com/danmuck/fundgov/internal/testutil/testlog"
	"github.com/danmuck/fundgov/internal/token"
	"github.com/gagliardetto/solana-go"
)

var testProgram = solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

const (
	testNow      int64  = 1_700_000_000
	walletFunds  uint64 = 10_000_000_000
	fundingFloat uint64 = 1_000_000
)

type harness struct {
	t       *testing.T
	ctx     context.Context
	backend *ledger.MemoryBackend
	clock   *ledger.ManualClock
	host    *ledger.Host
	tokens  *token.Service
	proc    *Processor
	derive  address.Deriver

	executed []ExecutionRequest
	execErr  error
}

type fundFixture struct {
	name    string
	seed    protocol.Seed
	addr    solana.PublicKey
	vault   solana.PublicKey
	mint    solana.PublicKey
	members []solana.PrivateKey
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	testlog.Start(t)
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		backend: ledger.NewMemoryBackend(),
		clock:   ledger.NewManualClock(testNow),
		tokens:  token.NewService(),
		derive:  address.New(testProgram),
	}
	h.host = ledger.NewHost(h.backend, ledger.WithClock(h.clock))
	cfg := DefaultConfig(testProgram)
	for _, m := range mutate {
		m(&cfg)
	}
	proc, err := NewProcessor(cfg, h.tokens, ExecutorFunc(func(_ context.Context, req ExecutionRequest) error {
		if h.execErr != nil {
			return h.execErr
		}
		h.executed = append(h.executed, req)
		return nil
	}))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	h.proc = proc

	funding, err := h.derive.Funding()
	if err != nil {
		t.Fatalf("derive funding: %v", err)
	}
	if err := h.host.Airdrop(h.ctx, funding.Address, fundingFloat); err != nil {
		t.Fatalf("airdrop funding: %v", err)
	}
	return h
}

func (h *harness) wallet() solana.PrivateKey {
	h.t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		h.t.Fatalf("new key: %v", err)
	}
	if err := h.host.Airdrop(h.ctx, key.PublicKey(), walletFunds); err != nil {
		h.t.Fatalf("airdrop: %v", err)
	}
	return key
}

func (h *harness) submit(ins protocol.Instruction, metas []*solana.AccountMeta, signers ...solana.PrivateKey) error {
	h.t.Helper()
	data, err := protocol.Encode(ins)
	if err != nil {
		h.t.Fatalf("encode %s: %v", ins.Opcode(), err)
	}
	return h.submitRaw(data, metas, signers...)
}

func (h *harness) submitRaw(data []byte, metas []*solana.AccountMeta, signers ...solana.PrivateKey) error {
	h.t.Helper()
	cmd := ledger.Command{ProgramID: testProgram, Accounts: metas, Data: data}
	sigs, err := ledger.Sign(cmd, signers...)
	if err != nil {
		h.t.Fatalf("sign: %v", err)
	}
	return h.host.Submit(h.ctx, h.proc, cmd, sigs...)
}

// submitTyped bypasses the codec to reach the processor with commands the
// encoder refuses to build.
func (h *harness) submitTyped(ins protocol.Instruction, metas []*solana.AccountMeta, signers ...solana.PrivateKey) error {
	h.t.Helper()
	cmd := ledger.Command{ProgramID: testProgram, Accounts: metas}
	sigs, err := ledger.Sign(cmd, signers...)
	if err != nil {
		h.t.Fatalf("sign: %v", err)
	}
	return h.host.Submit(h.ctx, ledger.ProgramFunc(func(ctx context.Context, tx *ledger.Tx) error {
		return h.proc.Execute(ctx, tx, ins)
	}), cmd, sigs...)
}

func pubkeys(keys []solana.PrivateKey) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.PublicKey())
	}
	return out
}

func (h *harness) fixture(name string, members ...solana.PrivateKey) fundFixture {
	h.t.Helper()
	seed := protocol.Seed(address.CanonicalFundSeed(pubkeys(members), name))
	f, err := h.derive.Fund(seed)
	if err != nil {
		h.t.Fatalf("derive fund: %v", err)
	}
	vault, _ := h.derive.Vault(f.Address)
	mint, _ := h.derive.Mint(f.Address)
	return fundFixture{name: name, seed: seed, addr: f.Address, vault: vault.Address, mint: mint.Address, members: members}
}

func (h *harness) createFundMetas(f fundFixture) []*solana.AccountMeta {
	funding, _ := h.derive.Funding()
	metas := []*solana.AccountMeta{
		solana.Meta(f.mint).WRITE(),
		solana.Meta(f.vault).WRITE(),
		solana.Meta(f.addr).WRITE(),
		solana.Meta(funding.Address).WRITE(),
	}
	for _, m := range f.members {
		metas = append(metas, solana.Meta(m.PublicKey()).SIGNER().WRITE())
	}
	return metas
}

func (h *harness) createFund(name string, private bool, members ...solana.PrivateKey) fundFixture {
	h.t.Helper()
	f := h.fixture(name, members...)
	ins := protocol.CreateFund{MemberCount: uint8(len(members)), Private: private, Seed: f.seed, Name: name}
	if err := h.submit(ins, h.createFundMetas(f), members...); err != nil {
		h.t.Fatalf("create fund: %v", err)
	}
	return f
}

func (h *harness) holding(f fundFixture, user solana.PublicKey) solana.PublicKey {
	h.t.Helper()
	addr, err := h.tokens.HoldingAddress(user, f.mint)
	if err != nil {
		h.t.Fatalf("holding address: %v", err)
	}
	return addr
}

func (h *harness) memberRecord(f fundFixture, user solana.PublicKey) solana.PublicKey {
	d, _ := h.derive.Member(f.addr, user)
	return d.Address
}

func (h *harness) depositMetas(f fundFixture, member solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.Meta(f.mint).WRITE(),
		solana.Meta(f.vault).WRITE(),
		solana.Meta(f.addr).WRITE(),
		solana.Meta(h.holding(f, member)).WRITE(),
		solana.Meta(member).SIGNER().WRITE(),
		solana.Meta(h.memberRecord(f, member)).WRITE(),
	}
}

func (h *harness) deposit(f fundFixture, member solana.PrivateKey, amount uint64) error {
	h.t.Helper()
	return h.submit(protocol.Deposit{Amount: amount, Seed: f.seed}, h.depositMetas(f, member.PublicKey()), member)
}

func (h *harness) proposalAddr(f fundFixture, proposer solana.PublicKey) solana.PublicKey {
	d, _ := h.derive.Proposal(f.addr, proposer)
	return d.Address
}

func (h *harness) proposalMetas(f fundFixture, proposer solana.PublicKey, assets int) []*solana.AccountMeta {
	metas := []*solana.AccountMeta{
		solana.Meta(proposer).SIGNER().WRITE(),
		solana.Meta(h.proposalAddr(f, proposer)).WRITE(),
		solana.Meta(f.addr).WRITE(),
		solana.Meta(h.memberRecord(f, proposer)).WRITE(),
	}
	for i := 0; i < assets; i++ {
		metas = append(metas, solana.Meta(solana.NewWallet().PublicKey()))
	}
	return metas
}

func (h *harness) propose(f fundFixture, proposer solana.PrivateKey, amounts []uint64, deadline int64) (solana.PublicKey, error) {
	h.t.Helper()
	tags := make([]uint8, len(amounts))
	for i := range tags {
		tags[i] = uint8(i + 1)
	}
	ins := protocol.CreateProposal{Amounts: amounts, RoutingTags: tags, Deadline: deadline, Seed: f.seed}
	metas := h.proposalMetas(f, proposer.PublicKey(), 2*len(amounts))
	return h.proposalAddr(f, proposer.PublicKey()), h.submit(ins, metas, proposer)
}

func (h *harness) voteAddr(proposal, voter solana.PublicKey) solana.PublicKey {
	d, _ := h.derive.Vote(proposal, voter)
	return d.Address
}

func (h *harness) voteMetas(f fundFixture, proposal, voter solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.Meta(voter).SIGNER().WRITE(),
		solana.Meta(h.voteAddr(proposal, voter)).WRITE(),
		solana.Meta(f.addr),
		solana.Meta(proposal).WRITE(),
		solana.Meta(h.memberRecord(f, voter)),
		solana.Meta(f.mint),
		solana.Meta(h.holding(f, voter)),
	}
}

func (h *harness) vote(f fundFixture, proposal solana.PublicKey, voter solana.PrivateKey, approve bool) error {
	h.t.Helper()
	return h.submit(protocol.CastVote{Approve: approve, Seed: f.seed}, h.voteMetas(f, proposal, voter.PublicKey()), voter)
}

func (h *harness) executeMetas(f fundFixture, proposal, caller solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.Meta(caller).SIGNER().WRITE(),
		solana.Meta(f.addr),
		solana.Meta(proposal).WRITE(),
		solana.Meta(h.memberRecord(f, caller)),
		solana.Meta(f.vault).WRITE(),
	}
}

func (h *harness) execute(f fundFixture, proposal solana.PublicKey, caller solana.PrivateKey) error {
	h.t.Helper()
	return h.submit(protocol.Execute{Target: proposal}, h.executeMetas(f, proposal, caller.PublicKey()), caller)
}

func (h *harness) account(addr solana.PublicKey) ledger.Account {
	h.t.Helper()
	acc, err := h.host.Account(h.ctx, addr)
	if err != nil {
		h.t.Fatalf("account %s: %v", addr, err)
	}
	return acc
}

func (h *harness) exists(addr solana.PublicKey) bool {
	_, err := h.host.Account(h.ctx, addr)
	return err == nil
}

func (h *harness) load(addr solana.PublicKey, r state.Record) {
	h.t.Helper()
	if err := state.Unmarshal(h.account(addr).Data, r); err != nil {
		h.t.Fatalf("decode %s at %s: %v", r.Kind(), addr, err)
	}
}

func (h *harness) balance(holding solana.PublicKey) uint64 {
	h.t.Helper()
	hd, err := token.DecodeHolding(h.account(holding).Data)
	if err != nil {
		h.t.Fatalf("decode holding: %v", err)
	}
	return hd.Amount
}

func expectKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s, got %s (%v)", want, got, err)
	}
}
