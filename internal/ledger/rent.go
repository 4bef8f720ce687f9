package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MaxAccountSize is the largest data allocation a single account may hold.
const MaxAccountSize = 10 * 1024 * 1024

var maxLamports = decimal.NewFromUint64(math.MaxUint64)

// Rent is the storage-cost schedule: an account of n data bytes must hold
// (overhead + n) * lamports_per_byte_year * exemption_threshold lamports,
// rounded down.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  decimal.Decimal
	AccountOverhead     uint64
}

func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: 3480,
		ExemptionThreshold:  decimal.NewFromInt(2),
		AccountOverhead:     128,
	}
}

// MinimumBalance is the one-time funding required to allocate space bytes.
// A cost that does not fit in a lamport balance is ErrOverflow.
func (r Rent) MinimumBalance(space int) (uint64, error) {
	if space < 0 {
		space = 0
	}
	bytes := decimal.NewFromUint64(r.AccountOverhead).Add(decimal.NewFromInt(int64(space)))
	total := bytes.
		Mul(decimal.NewFromUint64(r.LamportsPerByteYear)).
		Mul(r.ExemptionThreshold).
		Floor()
	if total.Sign() <= 0 {
		return 0, nil
	}
	if total.GreaterThan(maxLamports) {
		return 0, fmt.Errorf("%w: rent for %d bytes is %s lamports", ErrOverflow, space, total)
	}
	return total.BigInt().Uint64(), nil
}

// Validate rejects schedules that are negative or whose cost for the largest
// allocation would not fit in a lamport balance.
func (r Rent) Validate() error {
	if r.ExemptionThreshold.IsNegative() {
		return fmt.Errorf("rent: exemption threshold must not be negative")
	}
	if _, err := r.MinimumBalance(MaxAccountSize); err != nil {
		return fmt.Errorf("rent: schedule too large: %w", err)
	}
	return nil
}
