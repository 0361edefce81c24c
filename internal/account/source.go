package account

import (
	"context"
	"math/rand"
)

// BalanceSource looks up an account balance held outside the process.
// ok is false when the source has nothing for the account.
type BalanceSource interface {
	FetchBalance(ctx context.Context, accountID string) (balance float64, ok bool, err error)
}

// BalanceSourceFunc adapts a function to BalanceSource
type BalanceSourceFunc func(ctx context.Context, accountID string) (float64, bool, error)

func (f BalanceSourceFunc) FetchBalance(ctx context.Context, accountID string) (float64, bool, error) {
	return f(ctx, accountID)
}

// RandomSource fails half of the requests and otherwise returns a whole number in [0, 100].
// Intn may be replaced in tests; nil means math/rand.
type RandomSource struct {
	Intn func(n int) int
}

func (s RandomSource) FetchBalance(ctx context.Context, _ string) (float64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	intn := s.Intn
	if intn == nil {
		intn = rand.Intn
	}
	if intn(2) == 0 {
		return 0, false, nil
	}
	return float64(intn(101)), true, nil
}
