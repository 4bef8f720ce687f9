package token

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Account sizes of the fungible-token program.
const (
	MintSize    = 82
	HoldingSize = 165
)

var (
	ErrNotInitialized     = errors.New("token: account not initialized")
	ErrAlreadyInitialized = errors.New("token: account already initialized")
	ErrMintMismatch       = errors.New("token: holding belongs to another mint")
	ErrAuthorityMismatch  = errors.New("token: wrong mint authority")
	ErrSupplyOverflow     = errors.New("token: supply overflow")
	ErrLayout             = errors.New("token: bad account layout")
)

// Mint is the fungible-token definition account.
type Mint struct {
	Authority   *solana.PublicKey
	Supply      uint64
	Decimals    uint8
	Initialized bool
	Freeze      *solana.PublicKey
}

// Holding is one owner's balance of one mint.
type Holding struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
	// State is 0 when uninitialized and 1 once usable.
	State uint8
}

func (m Mint) marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	if err := writeOptionKey(enc, m.Authority); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(m.Supply, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(m.Decimals); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(m.Initialized); err != nil {
		return nil, err
	}
	if err := writeOptionKey(enc, m.Freeze); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMint parses a MintSize account body.
func DecodeMint(data []byte) (Mint, error) {
	if len(data) != MintSize {
		return Mint{}, fmt.Errorf("%w: mint has %d bytes", ErrLayout, len(data))
	}
	dec := bin.NewBinDecoder(data)
	var m Mint
	var err error
	if m.Authority, err = readOptionKey(dec); err != nil {
		return Mint{}, err
	}
	if m.Supply, err = dec.ReadUint64(bin.LE); err != nil {
		return Mint{}, err
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return Mint{}, err
	}
	if m.Initialized, err = dec.ReadBool(); err != nil {
		return Mint{}, err
	}
	if m.Freeze, err = readOptionKey(dec); err != nil {
		return Mint{}, err
	}
	return m, nil
}

func (h Holding) marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	if err := enc.WriteBytes(h.Mint[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(h.Owner[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(h.Amount, bin.LE); err != nil {
		return nil, err
	}
	if err := writeOptionKey(enc, nil); err != nil { // delegate
		return nil, err
	}
	if err := enc.WriteUint8(h.State); err != nil {
		return nil, err
	}
	// is_native option, delegated amount, close authority option
	if err := enc.WriteBytes(make([]byte, 12+8), false); err != nil {
		return nil, err
	}
	if err := writeOptionKey(enc, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeHolding parses a HoldingSize account body.
func DecodeHolding(data []byte) (Holding, error) {
	if len(data) != HoldingSize {
		return Holding{}, fmt.Errorf("%w: holding has %d bytes", ErrLayout, len(data))
	}
	var h Holding
	copy(h.Mint[:], data[0:32])
	copy(h.Owner[:], data[32:64])
	dec := bin.NewBinDecoder(data[64:])
	var err error
	if h.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return Holding{}, err
	}
	if _, err = readOptionKey(dec); err != nil {
		return Holding{}, err
	}
	if h.State, err = dec.ReadUint8(); err != nil {
		return Holding{}, err
	}
	return h, nil
}

func writeOptionKey(enc *bin.Encoder, key *solana.PublicKey) error {
	if key == nil {
		return enc.WriteBytes(make([]byte, 4+32), false)
	}
	if err := enc.WriteUint32(1, bin.LE); err != nil {
		return err
	}
	return enc.WriteBytes(key[:], false)
}

func readOptionKey(dec *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		key := solana.PublicKeyFromBytes(raw)
		return &key, nil
	default:
		return nil, fmt.Errorf("%w: option tag %d", ErrLayout, tag)
	}
}
