// Package ledger is the host side of the fund program: an address-keyed
// account store, a per-command journal that commits all writes or none, and
// the authority checks for wallet signatures and program-derived signers.
//
// Ownership boundary:
// - account storage and apply-or-discard commit
// - signature verification at submission
// - rent schedule and host clock
//
// The store serialises commands; a program never observes another command's
// uncommitted writes.
package ledger
