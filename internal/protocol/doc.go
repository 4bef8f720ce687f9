// Package protocol owns the instruction wire contract.
//
// Ownership boundary:
// - opcode tagged union of typed commands
// - schema-driven positional field codec
// - decode failures (never a partial command)
package protocol
