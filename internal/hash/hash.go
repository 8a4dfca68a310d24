package hash

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// MaxSecretBytes is the longest secret bcrypt accepts, counted in bytes.
const MaxSecretBytes = 72

var (
	ErrEmptySecret   = errors.New("empty secret")
	ErrSecretTooLong = errors.New("secret longer than 72 bytes")
)

// Hasher runs bcrypt on at most workers goroutines at a time so that a burst
// of logins queues on the semaphore instead of saturating every CPU.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

func New(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

func (h *Hasher) HashPassword(ctx context.Context, password string) (string, error) {
	switch {
	case password == "":
		return "", ErrEmptySecret
	case len(password) > MaxSecretBytes:
		return "", ErrSecretTooLong
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("hash: wait for worker: %w", err)
	}
	defer h.sem.Release(1)

	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrSecretTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return string(hashbytes), nil
}

// CheckPassword returns false with a nil error on a plain mismatch. A malformed
// hash or a cancelled context is an error.
func (h *Hasher) CheckPassword(ctx context.Context, hash, password string) (bool, error) {
	if password == "" {
		return false, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("hash: wait for worker: %w", err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("hash: compare: %w", err)
	}
}
