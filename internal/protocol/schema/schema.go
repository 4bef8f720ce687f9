package schema

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Opcode tags from the instruction wire contract (byte 0 of every command).
const (
	OpCreateFund     uint8 = 0
	OpDeposit        uint8 = 1
	OpCreateProposal uint8 = 2
	OpCastVote       uint8 = 3
	OpExecute        uint8 = 4
)

// Field names shared by the layouts below.
const (
	FieldMemberCount = "member_count"
	FieldPrivate     = "private"
	FieldSeed        = "seed"
	FieldName        = "name"
	FieldAmount      = "amount"
	FieldLegCount    = "leg_count"
	FieldAmounts     = "amounts"
	FieldRoutingTags = "routing_tags"
	FieldDeadline    = "deadline"
	FieldChoice      = "choice"
	FieldTarget      = "target"
)

// KeySize is the width of identity and seed chunks.
const KeySize = 32

// Kind is the encoding of one positional field.
type Kind uint8

const (
	KindU8 Kind = iota + 1
	KindBool
	KindU64
	KindI64
	KindKey
	KindU64List
	KindU8List
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindBool:
		return "bool"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindKey:
		return "key32"
	case KindU64List:
		return "[]u64"
	case KindU8List:
		return "[]u8"
	case KindText:
		return "utf8"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ElemSize is the byte width of a scalar kind or of one list element.
// Text has no fixed width.
func (k Kind) ElemSize() int {
	switch k {
	case KindU8, KindBool, KindU8List:
		return 1
	case KindU64, KindI64, KindU64List:
		return 8
	case KindKey:
		return KeySize
	default:
		return 0
	}
}

// IsList reports whether the field length is counted by an earlier field.
func (k Kind) IsList() bool {
	return k == KindU64List || k == KindU8List
}

// Field declares one positional field and its length rule.
// CountFrom names the earlier u8 field that carries a list length.
type Field struct {
	Name      string
	Kind      Kind
	CountFrom string
}

// Layout is the ordered field schema for one opcode.
type Layout struct {
	Opcode uint8
	Name   string
	Fields []Field
}

type ValidationError struct {
	Opcode uint8
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: opcode=%d: %s", e.Opcode, e.Reason)
	}
	return fmt.Sprintf("schema: opcode=%d field=%s: %s", e.Opcode, e.Field, e.Reason)
}

var layouts = map[uint8]Layout{
	OpCreateFund: {
		Opcode: OpCreateFund,
		Name:   "create_fund",
		Fields: []Field{
			{Name: FieldMemberCount, Kind: KindU8},
			{Name: FieldPrivate, Kind: KindBool},
			{Name: FieldSeed, Kind: KindKey},
			{Name: FieldName, Kind: KindText},
		},
	},
	OpDeposit: {
		Opcode: OpDeposit,
		Name:   "deposit",
		Fields: []Field{
			{Name: FieldAmount, Kind: KindU64},
			{Name: FieldSeed, Kind: KindKey},
		},
	},
	OpCreateProposal: {
		Opcode: OpCreateProposal,
		Name:   "create_proposal",
		Fields: []Field{
			{Name: FieldLegCount, Kind: KindU8},
			{Name: FieldAmounts, Kind: KindU64List, CountFrom: FieldLegCount},
			{Name: FieldRoutingTags, Kind: KindU8List, CountFrom: FieldLegCount},
			{Name: FieldDeadline, Kind: KindI64},
			{Name: FieldSeed, Kind: KindKey},
		},
	},
	OpCastVote: {
		Opcode: OpCastVote,
		Name:   "cast_vote",
		Fields: []Field{
			{Name: FieldChoice, Kind: KindU8},
			{Name: FieldSeed, Kind: KindKey},
		},
	},
	OpExecute: {
		Opcode: OpExecute,
		Name:   "execute",
		Fields: []Field{
			{Name: FieldTarget, Kind: KindKey},
		},
	},
}

// Lookup returns the layout registered for opcode.
func Lookup(opcode uint8) (Layout, bool) {
	l, ok := layouts[opcode]
	return l, ok
}

// Opcodes returns every registered opcode in ascending order.
func Opcodes() []uint8 {
	return []uint8{OpCreateFund, OpDeposit, OpCreateProposal, OpCastVote, OpExecute}
}

// Validate checks that a layout is decodable: text only in last position and
// every list counted by an earlier u8 field.
func Validate(l Layout) error {
	seen := make(map[string]Kind, len(l.Fields))
	for i, f := range l.Fields {
		if f.Name == "" {
			return ValidationError{Opcode: l.Opcode, Reason: fmt.Sprintf("field %d has no name", i)}
		}
		if _, dup := seen[f.Name]; dup {
			return ValidationError{Opcode: l.Opcode, Field: f.Name, Reason: "duplicate field"}
		}
		switch {
		case f.Kind == KindText && i != len(l.Fields)-1:
			return ValidationError{Opcode: l.Opcode, Field: f.Name, Reason: "text field must be last"}
		case f.Kind.IsList():
			countKind, ok := seen[f.CountFrom]
			if !ok || countKind != KindU8 {
				log.Error().
					Uint8("opcode", l.Opcode).
					Str("field", f.Name).
					Str("count_from", f.CountFrom).
					Msg("schema.Validate list count is not an earlier u8")
				return ValidationError{Opcode: l.Opcode, Field: f.Name, Reason: "list count must reference an earlier u8 field"}
			}
		case f.Kind.ElemSize() == 0 && f.Kind != KindText:
			return ValidationError{Opcode: l.Opcode, Field: f.Name, Reason: "unknown kind"}
		}
		seen[f.Name] = f.Kind
	}
	return nil
}

// MinSize is the payload length (excluding the opcode byte) when every list
// is empty and text is absent.
func MinSize(l Layout) int {
	n := 0
	for _, f := range l.Fields {
		if f.Kind.IsList() || f.Kind == KindText {
			continue
		}
		n += f.Kind.ElemSize()
	}
	return n
}
