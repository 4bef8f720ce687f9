package ledger

import (
	"fmt"

	"github.com/danmuck/fundgov/internal/address"
	"github.com/gagliardetto/solana-go"
)

// Authority is the proof a debit, creation or mint is allowed. A wallet
// authority is proven by a verified command signature; a derived authority by
// seeds (bump included) that re-create Key under ProgramID.
type Authority struct {
	Key       solana.PublicKey
	ProgramID solana.PublicKey
	Seeds     [][]byte
}

// Wallet is an authority backed by a command signature.
func Wallet(key solana.PublicKey) Authority {
	return Authority{Key: key}
}

// Derived is an authority backed by program-derived seeds.
func Derived(programID solana.PublicKey, signerSeeds [][]byte) (Authority, error) {
	key, err := solana.CreateProgramAddress(signerSeeds, programID)
	if err != nil {
		return Authority{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return Authority{Key: key, ProgramID: programID, Seeds: signerSeeds}, nil
}

// IsDerived reports whether a carries program seeds instead of a signature.
func (a Authority) IsDerived() bool {
	return a.Seeds != nil
}

func (a Authority) verify(signers map[solana.PublicKey]bool) error {
	if a.IsDerived() {
		if !address.Verify(a.Seeds, a.ProgramID, a.Key) {
			return fmt.Errorf("%w: seeds do not derive %s", ErrUnauthorized, a.Key)
		}
		return nil
	}
	if !signers[a.Key] {
		return fmt.Errorf("%w: %s did not sign", ErrUnauthorized, a.Key)
	}
	return nil
}
