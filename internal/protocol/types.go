package protocol

import (
	"fmt"

	"github.com/danmuck/fundgov/internal/protocol/schema"
	"github.com/gagliardetto/solana-go"
)

// Opcode is the one-byte command tag.
type Opcode uint8

const (
	OpCreateFund     = Opcode(schema.OpCreateFund)
	OpDeposit        = Opcode(schema.OpDeposit)
	OpCreateProposal = Opcode(schema.OpCreateProposal)
	OpCastVote       = Opcode(schema.OpCastVote)
	OpExecute        = Opcode(schema.OpExecute)
)

func (o Opcode) String() string {
	if l, ok := schema.Lookup(uint8(o)); ok {
		return l.Name
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// Seed is fixed-length seed material carried by fund-scoped commands.
type Seed [schema.KeySize]byte

// Instruction is the closed set of decodable commands.
type Instruction interface {
	Opcode() Opcode
	values() (Values, error)
}

// CreateFund registers a fund owned by MemberCount signing members.
type CreateFund struct {
	MemberCount uint8
	Private     bool
	Seed        Seed
	Name        string
}

// Deposit moves Amount into the fund vault and mints governance tokens 1:1.
type Deposit struct {
	Amount uint64
	Seed   Seed
}

// CreateProposal opens a reallocation proposal. Amounts and RoutingTags are
// parallel; the asset identities travel as accounts.
type CreateProposal struct {
	Amounts     []uint64
	RoutingTags []uint8
	Deadline    int64
	Seed        Seed
}

// LegCount is the number of reallocation legs declared by the command.
func (c CreateProposal) LegCount() int {
	return len(c.Amounts)
}

// CastVote records a yes (Approve) or no vote on a proposal.
type CastVote struct {
	Approve bool
	Seed    Seed
}

// Execute runs an approved proposal identified by Target.
type Execute struct {
	Target solana.PublicKey
}

func (CreateFund) Opcode() Opcode     { return OpCreateFund }
func (Deposit) Opcode() Opcode        { return OpDeposit }
func (CreateProposal) Opcode() Opcode { return OpCreateProposal }
func (CastVote) Opcode() Opcode       { return OpCastVote }
func (Execute) Opcode() Opcode        { return OpExecute }

func (c CreateFund) values() (Values, error) {
	return Values{
		schema.FieldMemberCount: {Kind: schema.KindU8, U8: c.MemberCount},
		schema.FieldPrivate:     {Kind: schema.KindBool, Bool: c.Private},
		schema.FieldSeed:        {Kind: schema.KindKey, Key: c.Seed},
		schema.FieldName:        {Kind: schema.KindText, Text: c.Name},
	}, nil
}

func (c Deposit) values() (Values, error) {
	return Values{
		schema.FieldAmount: {Kind: schema.KindU64, U64: c.Amount},
		schema.FieldSeed:   {Kind: schema.KindKey, Key: c.Seed},
	}, nil
}

func (c CreateProposal) values() (Values, error) {
	if len(c.Amounts) != len(c.RoutingTags) {
		return nil, fmt.Errorf("%w: %d amounts vs %d routing tags", ErrEncode, len(c.Amounts), len(c.RoutingTags))
	}
	if len(c.Amounts) > maxCount {
		return nil, fmt.Errorf("%w: %d legs exceeds %d", ErrEncode, len(c.Amounts), maxCount)
	}
	return Values{
		schema.FieldLegCount:    {Kind: schema.KindU8, U8: uint8(len(c.Amounts))},
		schema.FieldAmounts:     {Kind: schema.KindU64List, U64s: c.Amounts},
		schema.FieldRoutingTags: {Kind: schema.KindU8List, U8s: c.RoutingTags},
		schema.FieldDeadline:    {Kind: schema.KindI64, I64: c.Deadline},
		schema.FieldSeed:        {Kind: schema.KindKey, Key: c.Seed},
	}, nil
}

func (c CastVote) values() (Values, error) {
	choice := uint8(0)
	if c.Approve {
		choice = 1
	}
	return Values{
		schema.FieldChoice: {Kind: schema.KindU8, U8: choice},
		schema.FieldSeed:   {Kind: schema.KindKey, Key: c.Seed},
	}, nil
}

func (c Execute) values() (Values, error) {
	return Values{
		schema.FieldTarget: {Kind: schema.KindKey, Key: c.Target},
	}, nil
}

const maxCount = int(^uint8(0))
