package protocol

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/danmuck/fundgov/internal/protocol/schema"
	bin "github.com/gagliardetto/binary"
)

// Encode writes ins in the instruction wire format.
func Encode(ins Instruction) ([]byte, error) {
	if ins == nil {
		return nil, fmt.Errorf("%w: nil instruction", ErrEncode)
	}
	layout, ok := schema.Lookup(uint8(ins.Opcode()))
	if !ok {
		return nil, fmt.Errorf("%w: unregistered opcode %d", ErrEncode, uint8(ins.Opcode()))
	}
	vals, err := ins.values()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	if err := enc.WriteUint8(layout.Opcode); err != nil {
		return nil, err
	}
	for _, f := range layout.Fields {
		if err := writeField(enc, f, vals[f.Name]); err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrEncode, f.Name, err)
		}
	}
	return buf.Bytes(), nil
}

func writeField(enc *bin.Encoder, f schema.Field, v Value) error {
	switch f.Kind {
	case schema.KindU8:
		return enc.WriteUint8(v.U8)
	case schema.KindBool:
		return enc.WriteBool(v.Bool)
	case schema.KindU64:
		return enc.WriteUint64(v.U64, bin.LE)
	case schema.KindI64:
		return enc.WriteInt64(v.I64, bin.LE)
	case schema.KindKey:
		return enc.WriteBytes(v.Key[:], false)
	case schema.KindU64List:
		for _, n := range v.U64s {
			if err := enc.WriteUint64(n, bin.LE); err != nil {
				return err
			}
		}
		return nil
	case schema.KindU8List:
		return enc.WriteBytes(v.U8s, false)
	case schema.KindText:
		if !utf8.ValidString(v.Text) {
			return fmt.Errorf("text is not valid utf-8")
		}
		return enc.WriteBytes([]byte(v.Text), false)
	default:
		return fmt.Errorf("unsupported kind %s", f.Kind)
	}
}
