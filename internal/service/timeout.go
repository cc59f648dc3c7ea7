package service

import (
	"context"
	"time"

	"github.com/alexanderramin/journey/internal/repository"
)

// DefaultStoreTimeout bounds every Record Store call made by the services.
const DefaultStoreTimeout = 5 * time.Second

// withTimeout runs one store call under its own deadline. A deadline hit is
// reported as repository.ErrTimeout; there is no retry.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		d = DefaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	v, err := fn(ctx)
	if err != nil {
		return v, repository.Classify(err)
	}
	return v, nil
}
