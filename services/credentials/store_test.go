package credentials

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db := testutils.SetupTestDB(t, Models()...)
	store := NewStore(db, nil)
	require.NoError(t, store.SeedRoles(context.Background(), []string{RoleAdmin, RoleUser, RoleManager}))
	return store
}

func newUser(email string) *User {
	return &User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		IsActive:     true,
	}
}

func TestStore_SeedRolesIsIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SeedRoles(ctx, []string{"admin", RoleUser, "Auditor"}))

	var count int64
	require.NoError(t, store.DB(ctx).Model(&Role{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)

	exists, err := store.RoleExists(ctx, "AUDITOR")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_CreateAndFindUser(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := newUser("  Ada@Example.COM ")
	require.NoError(t, store.CreateUser(ctx, user, []string{RoleUser, RoleManager, "user"}))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)

	found, err := store.FindUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.ElementsMatch(t, []string{RoleUser, RoleManager}, found.RoleNames())
	assert.True(t, found.IsActive)
	assert.False(t, found.EmailConfirmed)

	byID, err := store.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", byID.FullName())
}

func TestStore_CreateUser_UnknownRoleWritesNothing(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	err := store.CreateUser(ctx, newUser("ada@example.com"), []string{RoleUser, "Pirate"})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = store.FindUserByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newUser("ada@example.com"), []string{RoleUser}))
	assert.Error(t, store.CreateUser(ctx, newUser("ADA@example.com"), []string{RoleUser}))
}

func TestStore_FindUser_NotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.FindUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.FindUserByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_DeleteUser(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := newUser("ada@example.com")
	require.NoError(t, store.CreateUser(ctx, user, []string{RoleUser}))

	require.NoError(t, store.DeleteUser(ctx, user.ID))

	_, err := store.FindUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var links int64
	require.NoError(t, store.DB(ctx).Table("user_roles").Where("user_id = ?", user.ID).Count(&links).Error)
	assert.Zero(t, links)

	assert.ErrorIs(t, store.DeleteUser(ctx, user.ID), ErrUserNotFound)
}

func TestStore_UserMutations(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := newUser("ada@example.com")
	require.NoError(t, store.CreateUser(ctx, user, []string{RoleUser}))

	require.NoError(t, store.ConfirmEmail(ctx, user.ID))
	require.NoError(t, store.UpdatePasswordHash(ctx, user.ID, "new-hash"))
	require.NoError(t, store.SetActive(ctx, user.ID, false))
	require.NoError(t, store.AddPoints(ctx, user.ID, 5))
	require.NoError(t, store.AddPoints(ctx, user.ID, 3))

	found, err := store.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, found.EmailConfirmed)
	assert.Equal(t, "new-hash", found.PasswordHash)
	assert.False(t, found.IsActive)
	assert.Equal(t, 8, found.GivenPoint)
}

func TestStore_AddAndRemoveRoles(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := newUser("ada@example.com")
	require.NoError(t, store.CreateUser(ctx, user, []string{RoleUser}))

	require.NoError(t, store.AddRoles(ctx, user.ID, []string{RoleManager, RoleUser}))
	roles, err := store.UserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{RoleUser, RoleManager}, roles)

	require.NoError(t, store.RemoveRoles(ctx, user.ID, []string{RoleUser}))
	roles, err = store.UserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{RoleManager}, roles)

	assert.ErrorIs(t, store.AddRoles(ctx, user.ID, []string{"Pirate"}), ErrUnknownRole)
	assert.ErrorIs(t, store.AddRoles(ctx, uuid.New(), []string{RoleAdmin}), ErrUserNotFound)
}

func TestStore_UpsertTokenKeepsOneRowPerEmail(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Minute)

	require.NoError(t, store.UpsertToken(ctx, &EmailVerificationToken{Email: "ada@example.com", Code: "1111", ExpiresAt: &expires}))
	require.NoError(t, store.ConsumeToken(ctx, "ada@example.com", "1111", time.Now()))

	require.NoError(t, store.UpsertToken(ctx, &EmailVerificationToken{Email: "ADA@example.com", Code: "2222"}))

	var count int64
	require.NoError(t, store.DB(ctx).Model(&EmailVerificationToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	token, err := store.FindToken(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "2222", token.Code)
	assert.Nil(t, token.ExpiresAt, "replacement resets expiry")
	assert.False(t, token.Consumed(), "replacement resets consumption")
}

func TestStore_UpsertTokenConcurrent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			code := []string{"1000", "2000", "3000", "4000", "5000", "6000", "7000", "8000", "9000", "9999"}[n]
			assert.NoError(t, store.UpsertToken(ctx, &EmailVerificationToken{Email: "ada@example.com", Code: code}))
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, store.DB(ctx).Model(&EmailVerificationToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStore_ConsumeToken(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertToken(ctx, &EmailVerificationToken{Email: "ada@example.com", Code: "1234"}))

	assert.ErrorIs(t, store.ConsumeToken(ctx, "ada@example.com", "9999", time.Now()), ErrTokenNotFound, "stale code is not consumed")
	require.NoError(t, store.ConsumeToken(ctx, "ada@example.com", "1234", time.Now()))
	assert.ErrorIs(t, store.ConsumeToken(ctx, "ada@example.com", "1234", time.Now()), ErrTokenNotFound)

	token, err := store.FindToken(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, token.Consumed())

	require.NoError(t, store.DeleteToken(ctx, "ada@example.com"))
	_, err = store.FindToken(ctx, "ada@example.com")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStore_SeedAdmin(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created, err := store.SeedAdmin(ctx, &User{Email: "admin@example.com", PasswordHash: "hash", FirstName: "System"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.SeedAdmin(ctx, &User{Email: "admin@example.com", PasswordHash: "other"})
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := store.FindUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.EmailConfirmed)
	assert.Equal(t, "hash", admin.PasswordHash)
	assert.ElementsMatch(t, []string{RoleUser, RoleAdmin}, admin.RoleNames())
}

func TestEmailVerificationToken_State(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	assert.False(t, (&EmailVerificationToken{}).Expired(now))
	assert.True(t, (&EmailVerificationToken{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&EmailVerificationToken{ExpiresAt: &future}).Expired(now))
	assert.True(t, (&EmailVerificationToken{ConsumedAt: &now}).Consumed())
}
