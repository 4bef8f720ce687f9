package protocol

import (
	"fmt"
	"unicode/utf8"

	"github.com/danmuck/fundgov/internal/protocol/schema"
	bin "github.com/gagliardetto/binary"
	"github.com/rs/zerolog/log"
)

// Decode parses one command from data. It returns a typed command or an error
// wrapping ErrDecode, never a partially filled command.
func Decode(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	op := Opcode(data[0])
	layout, ok := schema.Lookup(data[0])
	if !ok {
		log.Debug().Uint8("opcode", data[0]).Msg("protocol.Decode unknown opcode")
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, data[0])
	}
	vals, err := readFields(op, layout, data[1:])
	if err != nil {
		log.Debug().Err(err).Stringer("opcode", op).Msg("protocol.Decode rejected")
		return nil, err
	}
	return build(op, vals), nil
}

func readFields(op Opcode, layout schema.Layout, payload []byte) (Values, error) {
	dec := bin.NewBorshDecoder(payload)
	vals := make(Values, len(layout.Fields))
	for _, f := range layout.Fields {
		v, err := readField(dec, f, vals)
		if err != nil {
			return nil, &FieldError{Opcode: op, Field: f.Name, Err: err}
		}
		vals[f.Name] = v
	}
	if dec.Remaining() > 0 {
		return nil, &FieldError{Opcode: op, Field: "<end>", Err: ErrTrailingBytes}
	}
	return vals, nil
}

func readField(dec *bin.Decoder, f schema.Field, vals Values) (Value, error) {
	v := Value{Kind: f.Kind}
	count := 1
	if f.Kind.IsList() {
		count = int(vals.u8(f.CountFrom))
	}
	if f.Kind != schema.KindText && dec.Remaining() < count*f.Kind.ElemSize() {
		return Value{}, ErrTruncated
	}

	var err error
	switch f.Kind {
	case schema.KindU8:
		v.U8, err = dec.ReadUint8()
	case schema.KindBool:
		var b uint8
		b, err = dec.ReadUint8()
		if err == nil && b > 1 {
			return Value{}, ErrInvalidBool
		}
		v.Bool = b == 1
	case schema.KindU64:
		v.U64, err = dec.ReadUint64(bin.LE)
	case schema.KindI64:
		v.I64, err = dec.ReadInt64(bin.LE)
	case schema.KindKey:
		var raw []byte
		raw, err = dec.ReadNBytes(schema.KeySize)
		copy(v.Key[:], raw)
	case schema.KindU64List:
		if count > 0 {
			v.U64s = make([]uint64, count)
		}
		for i := 0; i < count && err == nil; i++ {
			v.U64s[i], err = dec.ReadUint64(bin.LE)
		}
	case schema.KindU8List:
		if count > 0 {
			var raw []byte
			raw, err = dec.ReadNBytes(count)
			v.U8s = cloneBytes(raw)
		}
	case schema.KindText:
		var raw []byte
		raw, err = dec.ReadNBytes(dec.Remaining())
		if err == nil && !utf8.Valid(raw) {
			return Value{}, ErrInvalidText
		}
		v.Text = string(raw)
	default:
		return Value{}, fmt.Errorf("%w: unsupported kind %s", ErrDecode, f.Kind)
	}
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return v, nil
}

func build(op Opcode, vals Values) Instruction {
	switch op {
	case OpCreateFund:
		return CreateFund{
			MemberCount: vals.u8(schema.FieldMemberCount),
			Private:     vals[schema.FieldPrivate].Bool,
			Seed:        vals.key(schema.FieldSeed),
			Name:        vals[schema.FieldName].Text,
		}
	case OpDeposit:
		return Deposit{
			Amount: vals[schema.FieldAmount].U64,
			Seed:   vals.key(schema.FieldSeed),
		}
	case OpCreateProposal:
		return CreateProposal{
			Amounts:     cloneU64s(vals[schema.FieldAmounts].U64s),
			RoutingTags: cloneBytes(vals[schema.FieldRoutingTags].U8s),
			Deadline:    vals[schema.FieldDeadline].I64,
			Seed:        vals.key(schema.FieldSeed),
		}
	case OpCastVote:
		return CastVote{
			Approve: vals.u8(schema.FieldChoice) == 1,
			Seed:    vals.key(schema.FieldSeed),
		}
	default:
		return Execute{Target: vals.key(schema.FieldTarget)}
	}
}
