package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound   = errors.New("ledger: account not found")
	ErrAccountExists     = errors.New("ledger: account already exists")
	ErrInsufficientFunds = errors.New("ledger: insufficient lamports")
	ErrUnauthorized      = errors.New("ledger: missing authority")
	ErrOwnerMismatch     = errors.New("ledger: account owner mismatch")
	ErrSizeMismatch      = errors.New("ledger: data size differs from allocation")
	ErrSignatureInvalid  = errors.New("ledger: invalid signature")
	ErrOverflow          = errors.New("ledger: lamport overflow")
)

// Account is one address-keyed ledger entry.
type Account struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// Clone returns a copy that shares no memory with a.
func (a Account) Clone() Account {
	out := a
	if a.Data != nil {
		out.Data = make([]byte, len(a.Data))
		copy(out.Data, a.Data)
	}
	return out
}

// Backend persists committed accounts. Apply must store every account or none.
type Backend interface {
	Get(ctx context.Context, addr solana.PublicKey) (Account, bool, error)
	Apply(ctx context.Context, accounts []Account) error
}

// MemoryBackend keeps committed accounts in a map.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[solana.PublicKey]Account
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[solana.PublicKey]Account)}
}

func (m *MemoryBackend) Get(_ context.Context, addr solana.PublicKey) (Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.items[addr]
	if !ok {
		return Account{}, false, nil
	}
	return acc.Clone(), true, nil
}

func (m *MemoryBackend) Apply(_ context.Context, accounts []Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range accounts {
		m.items[acc.Address] = acc.Clone()
	}
	return nil
}

// Len is the number of committed accounts.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
