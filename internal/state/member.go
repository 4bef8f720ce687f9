package state

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// MemberSize is the fixed size of a member record.
const MemberSize = kindSize + keySize + u64Size + u64Size + boolSize + u64Size + keySize

// Member is the per-fund, per-user position. TokenBalance mirrors the
// holding account and is only refreshed by deposits.
type Member struct {
	User          solana.PublicKey
	Deposit       uint64
	TokenBalance  uint64
	Active        bool
	ProposalCount uint64
	Holding       solana.PublicKey
}

func (m *Member) Kind() Kind { return KindMember }

func (m *Member) Size() int { return MemberSize }

func (m *Member) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := writeKind(enc, KindMember); err != nil {
		return err
	}
	if err := writeKey(enc, m.User); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.Deposit, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.TokenBalance, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBool(m.Active); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.ProposalCount, bin.LE); err != nil {
		return err
	}
	return writeKey(enc, m.Holding)
}

func (m *Member) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if err = readKind(dec, KindMember); err != nil {
		return err
	}
	if m.User, err = readKey(dec); err != nil {
		return err
	}
	if m.Deposit, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if m.TokenBalance, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if m.Active, err = dec.ReadBool(); err != nil {
		return err
	}
	if m.ProposalCount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	m.Holding, err = readKey(dec)
	return err
}
