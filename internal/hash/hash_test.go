package hash

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost, 2)
	ctx := context.Background()

	hashed, err := h.HashPassword(ctx, "s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hashed)

	ok, err := h.CheckPassword(ctx, hashed, "s3cret!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.CheckPassword(ctx, hashed, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_EmptySecret(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost, 1)
	_, err := h.HashPassword(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptySecret)

	ok, err := h.CheckPassword(context.Background(), "$2a$04$whatever", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_SecretTooLong(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost, 1)
	_, err := h.HashPassword(context.Background(), strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrSecretTooLong)

	_, err = h.HashPassword(context.Background(), strings.Repeat("é", 36))
	assert.NoError(t, err)
}

func TestHasher_MalformedHash(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost, 1)
	ok, err := h.CheckPassword(context.Background(), "not-a-bcrypt-hash", "secret")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestHasher_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost, 1)
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.HashPassword(ctx, "secret")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHasher_ConcurrentUse(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hashed, err := h.HashPassword(ctx, "pw")
			if err != nil {
				errs <- err
				return
			}
			if ok, err := h.CheckPassword(ctx, hashed, "pw"); err != nil || !ok {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}
