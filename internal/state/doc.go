// Package state defines the fund program's persistent records.
//
// Each record starts with a one-byte kind tag followed by a borsh layout:
// little-endian integers, u32 length prefixes for sequences and text, 32-byte
// keys, one-byte bools. Size is computed from field values so the allocator
// can reserve exactly the bytes the record will occupy.
package state
