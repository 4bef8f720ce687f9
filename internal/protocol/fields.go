package protocol

import (
	"github.com/danmuck/fundgov/internal/protocol/schema"
)

// Value is one decoded positional field.
type Value struct {
	Kind schema.Kind
	U8   uint8
	Bool bool
	U64  uint64
	I64  int64
	Key  [schema.KeySize]byte
	U64s []uint64
	U8s  []byte
	Text string
}

// Values holds decoded fields by schema name.
type Values map[string]Value

func (v Values) u8(name string) uint8 {
	return v[name].U8
}

func (v Values) key(name string) [schema.KeySize]byte {
	return v[name].Key
}

func cloneU64s(in []uint64) []uint64 {
	if in == nil {
		return nil
	}
	out := make([]uint64, len(in))
	copy(out, in)
	return out
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
