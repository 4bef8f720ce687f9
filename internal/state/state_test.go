package state

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/fundgov/internal/testutil/testlog"
	"github.com/gagliardetto/solana-go"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b + byte(i)
	}
	return k
}

func sampleProposal(legs int) *Proposal {
	p := &Proposal{Proposer: key(1), VotesYes: 7, VotesNo: 3, Deadline: 1_800_000_000, CreatedAt: 1_700_000_000}
	for i := 0; i < legs; i++ {
		p.FromAssets = append(p.FromAssets, key(byte(10+i)))
		p.ToAssets = append(p.ToAssets, key(byte(100+i)))
		p.Amounts = append(p.Amounts, uint64(i+1)*5)
		p.RoutingTags = append(p.RoutingTags, uint8(i))
	}
	return p
}

func TestEncodedSizeMatchesComputedSize(t *testing.T) {
	testlog.Start(t)
	records := []Record{
		&Fund{Name: "", Members: []solana.PublicKey{key(1)}},
		&Fund{Name: "Atlas ✓", Creator: key(1), Members: []solana.PublicKey{key(1), key(2), key(3)}, Initialized: true},
		&Member{User: key(4), Deposit: 1, TokenBalance: 1, Active: true},
		sampleProposal(0),
		sampleProposal(1),
		sampleProposal(12),
		&Vote{Voter: key(5), Approve: true, VotingPower: 99, CastAt: 12},
	}
	for _, r := range records {
		raw, err := Marshal(r)
		if err != nil {
			t.Fatalf("%s: marshal: %v", r.Kind(), err)
		}
		if len(raw) != r.Size() {
			t.Fatalf("%s: encoded %d bytes, Size() = %d", r.Kind(), len(raw), r.Size())
		}
	}
}

func TestSizeFormulas(t *testing.T) {
	testlog.Start(t)
	if got := FundSize(3, 0); got != 156+96 {
		t.Fatalf("fund size for 3 members: %d", got)
	}
	if got := ProposalSize(2); got != 82+2*73 {
		t.Fatalf("proposal size for 2 legs: %d", got)
	}
	if MemberSize != 90 || VoteSize != 50 {
		t.Fatalf("unexpected fixed sizes member=%d vote=%d", MemberSize, VoteSize)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	testlog.Start(t)
	fund := &Fund{
		Seed:         [32]byte{1, 2, 3},
		Name:         "alpha",
		Creator:      key(1),
		Members:      []solana.PublicKey{key(1), key(2)},
		TotalDeposit: 150,
		Mint:         key(7),
		Vault:        key(8),
		Initialized:  true,
		CreatedAt:    1_700_000_000,
		Private:      true,
		Bump:         254,
	}
	member := &Member{User: key(2), Deposit: 150, TokenBalance: 150, Active: true, ProposalCount: 2, Holding: key(9)}
	proposal := sampleProposal(3)
	vote := &Vote{Voter: key(2), Approve: true, VotingPower: 150, CastAt: 1_700_000_100}

	cases := []struct {
		in  Record
		out Record
	}{
		{fund, &Fund{}},
		{member, &Member{}},
		{proposal, &Proposal{}},
		{vote, &Vote{}},
	}
	for _, tc := range cases {
		raw, err := Marshal(tc.in)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tc.in.Kind(), err)
		}
		if err := Unmarshal(raw, tc.out); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.in.Kind(), err)
		}
		if !reflect.DeepEqual(tc.in, tc.out) {
			t.Fatalf("%s: round-trip mismatch\n got %+v\nwant %+v", tc.in.Kind(), tc.out, tc.in)
		}
	}
}

func TestUnmarshalRejectsWrongKind(t *testing.T) {
	testlog.Start(t)
	raw, err := Marshal(&Vote{Voter: key(1)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m Member
	if err := Unmarshal(raw, &m); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

func TestUnmarshalRejectsUninitialized(t *testing.T) {
	testlog.Start(t)
	var f Fund
	if err := Unmarshal(make([]byte, FundSize(1, 0)), &f); !errors.Is(err, ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}
	if err := Unmarshal(nil, &f); !errors.Is(err, ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized for empty data, got %v", err)
	}
}

func TestUnmarshalRejectsTruncatedAndTrailing(t *testing.T) {
	testlog.Start(t)
	raw, err := Marshal(sampleProposal(2))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var p Proposal
	if err := Unmarshal(raw[:len(raw)-1], &p); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if err := Unmarshal(append(append([]byte{}, raw...), 0), &p); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestUnmarshalRejectsOversizedLengthPrefix(t *testing.T) {
	testlog.Start(t)
	raw, err := Marshal(sampleProposal(1))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// from_assets length prefix sits right after kind + proposer.
	raw[1+32] = 0xff
	raw[1+32+1] = 0xff
	var p Proposal
	if err := Unmarshal(raw, &p); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestMarshalRejectsRaggedProposal(t *testing.T) {
	testlog.Start(t)
	p := sampleProposal(2)
	p.ToAssets = p.ToAssets[:1]
	if _, ok := p.Legs(); ok {
		t.Fatalf("ragged proposal reported consistent legs")
	}
	if _, err := Marshal(p); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestProposalStatusAt(t *testing.T) {
	testlog.Start(t)
	p := &Proposal{Deadline: 100}
	if s := p.StatusAt(100); s != StatusOpen {
		t.Fatalf("at deadline: %s", s)
	}
	if s := p.StatusAt(101); s != StatusExpired {
		t.Fatalf("after deadline: %s", s)
	}
	p.Executed = true
	if s := p.StatusAt(50); s != StatusExecuted {
		t.Fatalf("executed: %s", s)
	}
}

func TestFundIsMember(t *testing.T) {
	testlog.Start(t)
	f := &Fund{Members: []solana.PublicKey{key(1), key(2)}}
	if !f.IsMember(key(2)) || f.IsMember(key(3)) {
		t.Fatalf("unexpected membership result")
	}
	if f.MemberCount() != 2 {
		t.Fatalf("unexpected member count %d", f.MemberCount())
	}
}
