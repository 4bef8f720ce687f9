package state

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Status is the derived lifecycle state of a proposal.
type Status string

const (
	StatusOpen     Status = "open"
	StatusExpired  Status = "expired"
	StatusExecuted Status = "executed"
)

// ProposalSize is the record size for a proposal with legs reallocation legs.
func ProposalSize(legs int) int {
	return kindSize +
		keySize +
		lenPrefix + keySize*legs +
		lenPrefix + keySize*legs +
		lenPrefix + u64Size*legs +
		lenPrefix + legs +
		u64Size +
		u64Size +
		u64Size +
		boolSize +
		u64Size
}

// Proposal is a deadline-bound set of reallocation legs. FromAssets, ToAssets,
// Amounts and RoutingTags are parallel.
type Proposal struct {
	Proposer    solana.PublicKey
	FromAssets  []solana.PublicKey
	ToAssets    []solana.PublicKey
	Amounts     []uint64
	RoutingTags []uint8
	VotesYes    uint64
	VotesNo     uint64
	Deadline    int64
	Executed    bool
	CreatedAt   int64
}

func (p *Proposal) Kind() Kind { return KindProposal }

func (p *Proposal) Size() int { return ProposalSize(len(p.Amounts)) }

// Legs returns the common length of the parallel sequences, or false when
// they disagree.
func (p *Proposal) Legs() (int, bool) {
	n := len(p.Amounts)
	return n, len(p.FromAssets) == n && len(p.ToAssets) == n && len(p.RoutingTags) == n
}

// StatusAt reports the lifecycle state at host time now. Voting is allowed up
// to and including the deadline second.
func (p *Proposal) StatusAt(now int64) Status {
	switch {
	case p.Executed:
		return StatusExecuted
	case now > p.Deadline:
		return StatusExpired
	default:
		return StatusOpen
	}
}

func (p *Proposal) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := writeKind(enc, KindProposal); err != nil {
		return err
	}
	if err := writeKey(enc, p.Proposer); err != nil {
		return err
	}
	if err := writeKeys(enc, p.FromAssets); err != nil {
		return err
	}
	if err := writeKeys(enc, p.ToAssets); err != nil {
		return err
	}
	if err := writeU64s(enc, p.Amounts); err != nil {
		return err
	}
	if err := enc.WriteBytes(p.RoutingTags, true); err != nil {
		return err
	}
	if err := enc.WriteUint64(p.VotesYes, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(p.VotesNo, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteInt64(p.Deadline, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBool(p.Executed); err != nil {
		return err
	}
	return enc.WriteInt64(p.CreatedAt, bin.LE)
}

func (p *Proposal) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if err = readKind(dec, KindProposal); err != nil {
		return err
	}
	if p.Proposer, err = readKey(dec); err != nil {
		return err
	}
	if p.FromAssets, err = readKeys(dec); err != nil {
		return err
	}
	if p.ToAssets, err = readKeys(dec); err != nil {
		return err
	}
	if p.Amounts, err = readU64s(dec); err != nil {
		return err
	}
	if p.RoutingTags, err = readBytes(dec); err != nil {
		return err
	}
	if p.VotesYes, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.VotesNo, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.Deadline, err = dec.ReadInt64(bin.LE); err != nil {
		return err
	}
	if p.Executed, err = dec.ReadBool(); err != nil {
		return err
	}
	p.CreatedAt, err = dec.ReadInt64(bin.LE)
	return err
}
