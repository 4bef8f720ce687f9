package fund

import (
	"errors"
	"fmt"

	"github.com/danmuck/fundgov/internal/protocol"
)

// Kind classifies a rejected command so clients can pick a retry policy.
type Kind string

const (
	KindDecode               Kind = "decode_error"
	KindMissingSignature     Kind = "missing_signature"
	KindAddressMismatch      Kind = "address_mismatch"
	KindStateMismatch        Kind = "state_mismatch"
	KindDeadlinePassed       Kind = "deadline_passed"
	KindAlreadyVoted         Kind = "already_voted"
	KindLengthMismatch       Kind = "length_mismatch"
	KindInsufficientAccounts Kind = "insufficient_accounts"
	KindInvalidInstruction   Kind = "invalid_instruction"
	// KindCollaborator covers ledger and token failures (funding, overflow).
	KindCollaborator Kind = "collaborator"
)

var (
	ErrMissingSignature     = errors.New("fund: missing signature")
	ErrAddressMismatch      = errors.New("fund: address mismatch")
	ErrStateMismatch        = errors.New("fund: state mismatch")
	ErrDeadlinePassed       = errors.New("fund: deadline passed")
	ErrAlreadyVoted         = errors.New("fund: already voted")
	ErrLengthMismatch       = errors.New("fund: length mismatch")
	ErrInsufficientAccounts = errors.New("fund: insufficient accounts")
	ErrInvalidInstruction   = errors.New("fund: invalid instruction")

	ErrAlreadyExists     = fmt.Errorf("%w: account already exists", ErrStateMismatch)
	ErrAlreadyExecuted   = fmt.Errorf("%w: proposal already executed", ErrStateMismatch)
	ErrQuorumNotReached  = fmt.Errorf("%w: approval policy not met", ErrStateMismatch)
	ErrNotMember         = fmt.Errorf("%w: not an active member", ErrStateMismatch)
	ErrFundUninitialized = fmt.Errorf("%w: fund not initialized", ErrStateMismatch)
)

var kindSentinels = map[Kind]error{
	KindDecode:               protocol.ErrDecode,
	KindMissingSignature:     ErrMissingSignature,
	KindAddressMismatch:      ErrAddressMismatch,
	KindStateMismatch:        ErrStateMismatch,
	KindDeadlinePassed:       ErrDeadlinePassed,
	KindAlreadyVoted:         ErrAlreadyVoted,
	KindLengthMismatch:       ErrLengthMismatch,
	KindInsufficientAccounts: ErrInsufficientAccounts,
	KindInvalidInstruction:   ErrInvalidInstruction,
}

// Error is a rejected command. errors.Is matches the kind sentinel and any
// wrapped cause.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("fund: %s: %s", e.Op, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if s, ok := kindSentinels[e.Kind]; ok {
		out = append(out, s)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf classifies err. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, protocol.ErrDecode) {
		return KindDecode
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindCollaborator
}

func reject(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// rejectWith keeps cause reachable through errors.Is.
func rejectWith(op string, kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Reason: fmt.Sprintf(format, args...), Err: cause}
}

func collaborator(op, step string, err error) error {
	return &Error{Kind: KindCollaborator, Op: op, Reason: step, Err: err}
}
