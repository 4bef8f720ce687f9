package state

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Kind tags the record type stored in an account.
type Kind uint8

const (
	KindUninitialized Kind = iota
	KindFund
	KindMember
	KindProposal
	KindVote
)

func (k Kind) String() string {
	switch k {
	case KindUninitialized:
		return "uninitialized"
	case KindFund:
		return "fund"
	case KindMember:
		return "member"
	case KindProposal:
		return "proposal"
	case KindVote:
		return "vote"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

const (
	keySize    = solana.PublicKeyLength
	lenPrefix  = 4
	kindSize   = 1
	u64Size    = 8
	boolSize   = 1
	maxEntries = 1 << 16
)

var (
	ErrUninitialized = errors.New("state: account not initialized")
	ErrKindMismatch  = errors.New("state: record kind mismatch")
	ErrTruncated     = errors.New("state: truncated record")
	ErrTrailingBytes = errors.New("state: trailing bytes after record")
	ErrSizeMismatch  = errors.New("state: encoded size disagrees with computed size")
)

// Record is a persistent account body.
type Record interface {
	Kind() Kind
	Size() int
	bin.BinaryMarshaler
	bin.BinaryUnmarshaler
}

// Marshal encodes r and checks the result is exactly r.Size() bytes.
func Marshal(r Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(r.Size())
	if err := r.MarshalWithEncoder(bin.NewBorshEncoder(&buf)); err != nil {
		return nil, fmt.Errorf("state: marshal %s: %w", r.Kind(), err)
	}
	if buf.Len() != r.Size() {
		return nil, fmt.Errorf("%w: %s encoded %d, size %d", ErrSizeMismatch, r.Kind(), buf.Len(), r.Size())
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into r. The data must hold exactly one record of r's
// kind.
func Unmarshal(data []byte, r Record) error {
	got, err := PeekKind(data)
	if err != nil {
		return err
	}
	if got != r.Kind() {
		return fmt.Errorf("%w: have %s want %s", ErrKindMismatch, got, r.Kind())
	}
	dec := bin.NewBorshDecoder(data)
	if err := r.UnmarshalWithDecoder(dec); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTruncated, r.Kind(), err)
	}
	if dec.Remaining() != 0 {
		return fmt.Errorf("%w: %s has %d extra", ErrTrailingBytes, r.Kind(), dec.Remaining())
	}
	return nil
}

// PeekKind reads the kind tag without decoding the body.
func PeekKind(data []byte) (Kind, error) {
	if len(data) == 0 || Kind(data[0]) == KindUninitialized {
		return KindUninitialized, ErrUninitialized
	}
	return Kind(data[0]), nil
}

func writeKind(enc *bin.Encoder, k Kind) error {
	return enc.WriteUint8(uint8(k))
}

func readKind(dec *bin.Decoder, want Kind) error {
	k, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if Kind(k) != want {
		return fmt.Errorf("%w: have %s want %s", ErrKindMismatch, Kind(k), want)
	}
	return nil
}

func writeKey(enc *bin.Encoder, k solana.PublicKey) error {
	return enc.WriteBytes(k[:], false)
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(keySize)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}

func writeKeys(enc *bin.Encoder, keys []solana.PublicKey) error {
	if err := enc.WriteLength(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeKey(enc, k); err != nil {
			return err
		}
	}
	return nil
}

func readKeys(dec *bin.Decoder) ([]solana.PublicKey, error) {
	n, err := readCount(dec, keySize)
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]solana.PublicKey, n)
	for i := range out {
		if out[i], err = readKey(dec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeU64s(enc *bin.Encoder, vals []uint64) error {
	if err := enc.WriteLength(len(vals)); err != nil {
		return err
	}
	for _, v := range vals {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	return nil
}

func readU64s(dec *bin.Decoder) ([]uint64, error) {
	n, err := readCount(dec, u64Size)
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		if out[i], err = dec.ReadUint64(bin.LE); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readBytes(dec *bin.Decoder) ([]byte, error) {
	n, err := readCount(dec, 1)
	if err != nil || n == 0 {
		return nil, err
	}
	raw, err := dec.ReadNBytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// readCount reads a u32 length prefix and rejects counts the remaining data
// cannot hold, before anything is allocated.
func readCount(dec *bin.Decoder, elemSize int) (int, error) {
	n, err := dec.ReadLength()
	if err != nil {
		return 0, err
	}
	if n > maxEntries || n*elemSize > dec.Remaining() {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, dec.Remaining())
	}
	return n, nil
}
