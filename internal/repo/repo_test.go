package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/venues/internal/models"
	"github.com/Skotchmaster/venues/internal/testutil"
)

func newUser(username, email string) *models.User {
	return &models.User{
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "hash",
		IsActive:     true,
	}
}

func TestGormRepo_FindUserByLogin(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()
	require.NoError(t, r.CreateUser(ctx, newUser("alice", "Alice@Example.com")))

	byName, err := r.FindUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byName.Email)

	byEmail, err := r.FindUserByLogin(ctx, "ALICE@example.com ")
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byEmail.ID)

	_, err = r.FindUserByLogin(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_CreateUser_Duplicate(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()
	require.NoError(t, r.CreateUser(ctx, newUser("alice", "alice@example.com")))

	err := r.CreateUser(ctx, newUser("alice", "other@example.com"))
	assert.ErrorIs(t, err, ErrConflict)

	err = r.CreateUser(ctx, newUser("alice2", "alice@example.com"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGormRepo_IdentifierTaken(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()
	require.NoError(t, r.CreateUser(ctx, newUser("Carol@Example.com", "mallory@example.com")))
	require.NoError(t, r.CreateCompany(ctx, &models.Company{
		Name: "Blue Note", Email: "hello@bluenote.example", PasswordHash: "hash", IsActive: true,
	}))

	tests := []struct {
		name string
		ids  []string
		want bool
	}{
		{"individual email", []string{"MALLORY@example.com"}, true},
		{"company email", []string{"hello@bluenote.example"}, true},
		{"email equal to a username", []string{"carol@example.com"}, true},
		{"username equal to an email", []string{"dave", "mallory@example.com"}, true},
		{"username equal to a company email", []string{"Hello@BlueNote.example"}, true},
		{"free", []string{"carol", "carol@elsewhere.example"}, false},
		{"blank", []string{" ", ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.IdentifierTaken(ctx, tt.ids...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGormRepo_FindUserByLogin_PrefersEmail(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()

	// Rows written past the registration checks, as an older deployment could have.
	squatter := newUser("carol@example.com", "mallory@example.com")
	carol := newUser("carol", "carol@example.com")
	require.NoError(t, r.CreateUser(ctx, squatter))
	require.NoError(t, r.CreateUser(ctx, carol))

	for i := 0; i < 5; i++ {
		got, err := r.FindUserByLogin(ctx, "carol@example.com")
		require.NoError(t, err)
		assert.Equal(t, carol.ID, got.ID)
	}

	got, err := r.FindUserByLogin(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, carol.ID, got.ID)
}

func TestGormRepo_RecordLoginFailure_LocksAtThreshold(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()
	u := newUser("alice", "alice@example.com")
	require.NoError(t, r.CreateUser(ctx, u))

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var got *models.User
	var err error
	for i := 1; i <= 5; i++ {
		got, err = r.RecordLoginFailure(ctx, u.ID, 5, 30*time.Minute, now)
		require.NoError(t, err)
		assert.Equal(t, i, got.AccessFailedCount)
	}
	require.NotNil(t, got.LockoutEnd)
	assert.True(t, got.LockoutEnd.Equal(now.Add(30*time.Minute)))

	stored, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLockedOut(now.Add(29*time.Minute)))
	assert.False(t, stored.IsLockedOut(now.Add(30*time.Minute)))

	// first failure after the lock ran out starts a new count
	later := now.Add(31 * time.Minute)
	got, err = r.RecordLoginFailure(ctx, u.ID, 5, 30*time.Minute, later)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AccessFailedCount)
	assert.Nil(t, got.LockoutEnd)
}

func TestGormRepo_RecordLoginSuccess_Resets(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()
	u := newUser("alice", "alice@example.com")
	require.NoError(t, r.CreateUser(ctx, u))

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := r.RecordLoginFailure(ctx, u.ID, 5, 30*time.Minute, now)
	require.NoError(t, err)

	require.NoError(t, r.RecordLoginSuccess(ctx, u.ID, "10.0.0.1", now))

	stored, err := r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.AccessFailedCount)
	assert.Nil(t, stored.LockoutEnd)
	require.NotNil(t, stored.LastLoginAt)
	assert.True(t, stored.LastLoginAt.Equal(now))
	assert.Equal(t, "10.0.0.1", stored.LastLoginIP)

	assert.ErrorIs(t, r.RecordLoginSuccess(ctx, uuid.New(), "", now), ErrNotFound)
}

func TestGormRepo_RevokeRefresh_OnlyOnce(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tok := &models.RefreshToken{
		Token:     "digest-1",
		JWTID:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, tok.SetOwner(models.UserOwner(uuid.New())))
	require.NoError(t, r.CreateRefresh(ctx, tok))

	ok, err := r.RevokeRefresh(ctx, tok.ID, "1.2.3.4", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.RevokeRefresh(ctx, tok.ID, "1.2.3.4", now)
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := r.FindRefresh(ctx, "digest-1")
	require.NoError(t, err)
	assert.True(t, stored.Revoked)
	assert.Equal(t, "1.2.3.4", stored.RevokedByIP)
	require.NotNil(t, stored.RevokedAt)

	require.NoError(t, r.SetReplacedBy(ctx, tok.ID, "digest-2"))
	stored, err = r.LockRefresh(ctx, "digest-1")
	require.NoError(t, err)
	assert.Equal(t, "digest-2", stored.ReplacedByToken)

	_, err = r.FindRefresh(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepo_WithTx_RollsBack(t *testing.T) {
	t.Parallel()

	r := New(testutil.InitTestDB(t))
	ctx := context.Background()

	err := r.WithTx(ctx, func(tx *GormRepo) error {
		if err := tx.CreateUser(ctx, newUser("alice", "alice@example.com")); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = r.FindUserByLogin(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}
