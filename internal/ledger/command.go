package ledger

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Command is one submission: opaque program data plus the ordered account
// list the program reads and writes.
type Command struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte
}

// Signature is one wallet's ed25519 signature over Command.Message.
type Signature struct {
	Signer solana.PublicKey
	Sig    solana.Signature
}

// Message is the byte string wallets sign: program id, each account with its
// signer and writable flags, then the length-prefixed data.
func (c Command) Message() ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	if err := enc.WriteBytes(c.ProgramID[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteLength(len(c.Accounts)); err != nil {
		return nil, err
	}
	for i, meta := range c.Accounts {
		if meta == nil {
			return nil, fmt.Errorf("ledger: account %d is nil", i)
		}
		if err := enc.WriteBytes(meta.PublicKey[:], false); err != nil {
			return nil, err
		}
		if err := enc.WriteBool(meta.IsSigner); err != nil {
			return nil, err
		}
		if err := enc.WriteBool(meta.IsWritable); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteBytes(c.Data, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Sign produces one signature per key over c.Message.
func Sign(c Command, keys ...solana.PrivateKey) ([]Signature, error) {
	msg, err := c.Message()
	if err != nil {
		return nil, err
	}
	out := make([]Signature, 0, len(keys))
	for _, key := range keys {
		sig, err := key.Sign(msg)
		if err != nil {
			return nil, fmt.Errorf("ledger: sign as %s: %w", key.PublicKey(), err)
		}
		out = append(out, Signature{Signer: key.PublicKey(), Sig: sig})
	}
	return out, nil
}

// verifySignatures returns the set of accounts whose signature checks out.
// Every account flagged as signer must be in that set.
func verifySignatures(c Command, sigs []Signature) (map[solana.PublicKey]bool, error) {
	msg, err := c.Message()
	if err != nil {
		return nil, err
	}
	signed := make(map[solana.PublicKey]bool, len(sigs))
	for _, s := range sigs {
		if !s.Signer.Verify(msg, s.Sig) {
			return nil, fmt.Errorf("%w: %s", ErrSignatureInvalid, s.Signer)
		}
		signed[s.Signer] = true
	}
	for _, meta := range c.Accounts {
		if meta.IsSigner && !signed[meta.PublicKey] {
			return nil, fmt.Errorf("%w: %s flagged signer without signature", ErrSignatureInvalid, meta.PublicKey)
		}
	}
	return signed, nil
}
