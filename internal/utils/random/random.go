package random

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var ErrEmpty = errors.New("nothing to pick from")

// Intn returns a uniformly distributed integer in [0, n).
func Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return int(v.Int64()), nil
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmpty
	}
	i, err := Intn(len(items))
	if err != nil {
		return zero, err
	}
	return items[i], nil
}
