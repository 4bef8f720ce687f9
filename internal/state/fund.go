package state

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Fund is the root record of a collective fund.
type Fund struct {
	Seed         [32]byte
	Name         string
	Creator      solana.PublicKey
	Members      []solana.PublicKey
	TotalDeposit uint64
	Mint         solana.PublicKey
	Vault        solana.PublicKey
	Initialized  bool
	CreatedAt    int64
	Private      bool
	Bump         uint8
}

// FundSize is the record size for a fund with the given member count and
// name length.
func FundSize(members, nameLen int) int {
	return kindSize +
		keySize +
		lenPrefix + nameLen +
		keySize +
		lenPrefix + keySize*members +
		u64Size +
		keySize +
		keySize +
		boolSize +
		u64Size +
		boolSize +
		1
}

func (f *Fund) Kind() Kind { return KindFund }

func (f *Fund) Size() int { return FundSize(len(f.Members), len(f.Name)) }

// MemberCount is the number of founding members.
func (f *Fund) MemberCount() int { return len(f.Members) }

// IsMember reports whether key is one of the founding members.
func (f *Fund) IsMember(key solana.PublicKey) bool {
	for _, m := range f.Members {
		if m.Equals(key) {
			return true
		}
	}
	return false
}

func (f *Fund) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := writeKind(enc, KindFund); err != nil {
		return err
	}
	if err := enc.WriteBytes(f.Seed[:], false); err != nil {
		return err
	}
	if err := enc.WriteString(f.Name); err != nil {
		return err
	}
	if err := writeKey(enc, f.Creator); err != nil {
		return err
	}
	if err := writeKeys(enc, f.Members); err != nil {
		return err
	}
	if err := enc.WriteUint64(f.TotalDeposit, bin.LE); err != nil {
		return err
	}
	if err := writeKey(enc, f.Mint); err != nil {
		return err
	}
	if err := writeKey(enc, f.Vault); err != nil {
		return err
	}
	if err := enc.WriteBool(f.Initialized); err != nil {
		return err
	}
	if err := enc.WriteInt64(f.CreatedAt, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBool(f.Private); err != nil {
		return err
	}
	return enc.WriteUint8(f.Bump)
}

func (f *Fund) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if err = readKind(dec, KindFund); err != nil {
		return err
	}
	seed, err := dec.ReadNBytes(len(f.Seed))
	if err != nil {
		return err
	}
	copy(f.Seed[:], seed)
	name, err := readBytes(dec)
	if err != nil {
		return err
	}
	f.Name = string(name)
	if f.Creator, err = readKey(dec); err != nil {
		return err
	}
	if f.Members, err = readKeys(dec); err != nil {
		return err
	}
	if f.TotalDeposit, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if f.Mint, err = readKey(dec); err != nil {
		return err
	}
	if f.Vault, err = readKey(dec); err != nil {
		return err
	}
	if f.Initialized, err = dec.ReadBool(); err != nil {
		return err
	}
	if f.CreatedAt, err = dec.ReadInt64(bin.LE); err != nil {
		return err
	}
	if f.Private, err = dec.ReadBool(); err != nil {
		return err
	}
	f.Bump, err = dec.ReadUint8()
	return err
}
