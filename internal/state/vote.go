package state

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// VoteSize is the fixed size of a vote record.
const VoteSize = kindSize + keySize + boolSize + u64Size + u64Size

// Vote is an immutable snapshot of one voter's choice and weight.
type Vote struct {
	Voter       solana.PublicKey
	Approve     bool
	VotingPower uint64
	CastAt      int64
}

func (v *Vote) Kind() Kind { return KindVote }

func (v *Vote) Size() int { return VoteSize }

func (v *Vote) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := writeKind(enc, KindVote); err != nil {
		return err
	}
	if err := writeKey(enc, v.Voter); err != nil {
		return err
	}
	if err := enc.WriteBool(v.Approve); err != nil {
		return err
	}
	if err := enc.WriteUint64(v.VotingPower, bin.LE); err != nil {
		return err
	}
	return enc.WriteInt64(v.CastAt, bin.LE)
}

func (v *Vote) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if err = readKind(dec, KindVote); err != nil {
		return err
	}
	if v.Voter, err = readKey(dec); err != nil {
		return err
	}
	if v.Approve, err = dec.ReadBool(); err != nil {
		return err
	}
	if v.VotingPower, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	v.CastAt, err = dec.ReadInt64(bin.LE)
	return err
}
