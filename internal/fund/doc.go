// Package fund is the governance processor: it turns a decoded command plus
// its ordered account list into validated state changes on a ledger
// transaction.
//
// Every flow runs the same pipeline:
// - decode the command bytes
// - re-derive each role address and bind it to the supplied account
// - check signers, stored references, deadlines and vote records
// - only then create accounts, move value, mint and write records
//
// A rejected command returns a *Error and the host discards the journal, so
// no partial effect is ever committed.
package fund
