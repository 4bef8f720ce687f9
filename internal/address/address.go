// Package address computes program-derived addresses for every fund role.
//
// Every function here is pure: any verifier holding the program id and the
// public inputs recomputes the same address and bump, so a role binding can be
// checked without a registry.
package address

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// Namespace tags mixed into each role's seed list.
const (
	TagFund     = "fund"
	TagVault    = "vault"
	TagMint     = "mint"
	TagMember   = "member"
	TagProposal = "proposal"
	TagVote     = "vote"
	TagFunding  = "protocol_funding"
)

const fundSeedDomain = "fundgov/fund"

var ErrInvalidSeeds = errors.New("address: invalid seeds")

// Derived is a program-derived address and the bump that pushed it off curve.
type Derived struct {
	Address solana.PublicKey
	Bump    uint8
}

// SignerSeeds returns seeds with the bump appended: the list a program presents
// when it signs as the derived account.
func (d Derived) SignerSeeds(seeds [][]byte) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	out = append(out, seeds...)
	return append(out, []byte{d.Bump})
}

// Derive finds the canonical (highest-bump) off-curve address for seeds under
// programID.
func Derive(seeds [][]byte, programID solana.PublicKey) (Derived, error) {
	if len(seeds) == 0 {
		return Derived{}, fmt.Errorf("%w: empty seed list", ErrInvalidSeeds)
	}
	owned := make([][]byte, len(seeds), len(seeds)+1)
	copy(owned, seeds)
	addr, bump, err := solana.FindProgramAddress(owned, programID)
	if err != nil {
		return Derived{}, fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
	}
	return Derived{Address: addr, Bump: bump}, nil
}

// Verify re-creates an address from seeds that already carry the bump.
func Verify(signerSeeds [][]byte, programID, want solana.PublicKey) bool {
	got, err := solana.CreateProgramAddress(signerSeeds, programID)
	return err == nil && got.Equals(want)
}

// Deriver binds the role helpers to one program id.
type Deriver struct {
	ProgramID solana.PublicKey
}

func New(programID solana.PublicKey) Deriver {
	return Deriver{ProgramID: programID}
}

func (d Deriver) Fund(seed [32]byte) (Derived, error) {
	return Derive(FundSeeds(seed), d.ProgramID)
}

func (d Deriver) Vault(fund solana.PublicKey) (Derived, error) {
	return Derive(VaultSeeds(fund), d.ProgramID)
}

func (d Deriver) Mint(fund solana.PublicKey) (Derived, error) {
	return Derive(MintSeeds(fund), d.ProgramID)
}

func (d Deriver) Member(fund, member solana.PublicKey) (Derived, error) {
	return Derive(MemberSeeds(fund, member), d.ProgramID)
}

func (d Deriver) Proposal(fund, proposer solana.PublicKey) (Derived, error) {
	return Derive(ProposalSeeds(fund, proposer), d.ProgramID)
}

func (d Deriver) Vote(proposal, voter solana.PublicKey) (Derived, error) {
	return Derive(VoteSeeds(proposal, voter), d.ProgramID)
}

func (d Deriver) Funding() (Derived, error) {
	return Derive(FundingSeeds(), d.ProgramID)
}

// FundSeeds is the seed list of a fund address, bump excluded.
func FundSeeds(seed [32]byte) [][]byte {
	return [][]byte{seed[:], []byte(TagFund)}
}

func VaultSeeds(fund solana.PublicKey) [][]byte {
	return [][]byte{[]byte(TagVault), fund[:]}
}

func MintSeeds(fund solana.PublicKey) [][]byte {
	return [][]byte{[]byte(TagMint), fund[:]}
}

func MemberSeeds(fund, member solana.PublicKey) [][]byte {
	return [][]byte{[]byte(TagMember), fund[:], member[:]}
}

func ProposalSeeds(fund, proposer solana.PublicKey) [][]byte {
	return [][]byte{[]byte(TagProposal), fund[:], proposer[:]}
}

func VoteSeeds(proposal, voter solana.PublicKey) [][]byte {
	return [][]byte{[]byte(TagVote), proposal[:], voter[:]}
}

// FundingSeeds is the seed list of the protocol funding address, bump excluded.
func FundingSeeds() [][]byte {
	return [][]byte{[]byte(TagFunding)}
}

// CanonicalFundSeed binds a fund identity to its member set and name. Member
// order does not matter; duplicates are kept so a repeated key changes the seed.
func CanonicalFundSeed(members []solana.PublicKey, name string) [32]byte {
	sorted := make([]solana.PublicKey, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	h := sha256.New()
	h.Write([]byte(fundSeedDomain))
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(name)))
	h.Write(n[:])
	h.Write([]byte(name))
	for _, m := range sorted {
		h.Write(m[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
