package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roomshare/roomshare-api/internal/account/app"
	"github.com/roomshare/roomshare-api/internal/auth"
	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/domain/domaintest"
)

const otherUserID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

func newTestUserService(store app.UserStore, clock domain.Clock) *app.UserService {
	return app.NewUserService(app.UserServiceConfig{
		UserStore:    store,
		Clock:        clock,
		Logger:       discardLogger,
		PasswordCost: bcrypt.MinCost,
	})
}

func identityOf(t *testing.T, u app.UserRecord) auth.Identity {
	t.Helper()
	id, err := u.Identity()
	require.NoError(t, err)
	return id
}

func TestUserServiceAuthorization(t *testing.T) {
	owner := testUserRecord(t)
	stranger := auth.Identity{UserID: domain.MustUserID(otherUserID), Email: "eve@example.com", Role: domain.RoleUser}
	admin := auth.Identity{UserID: domain.MustUserID(otherUserID), Email: "root@example.com", Role: domain.RoleAdmin}

	tests := []struct {
		name    string
		caller  auth.Identity
		target  string
		wantErr error
	}{
		{"owner", identityOf(t, owner), owner.UserID, nil},
		{"admin", admin, owner.UserID, nil},
		{"stranger", stranger, owner.UserID, domain.ErrForbidden},
		{"malformed id", identityOf(t, owner), "not-a-uuid", domain.ErrInvalidID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestUserService(newMemUserStore(owner), domaintest.NewFakeClock(testStart))

			got, err := svc.Get(context.Background(), tt.caller, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, svc.Delete(context.Background(), tt.caller, tt.target), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, owner.Email, got.Email)
		})
	}
}

func TestUserServiceGetMissing(t *testing.T) {
	svc := newTestUserService(newMemUserStore(), domaintest.NewFakeClock(testStart))
	admin := auth.Identity{UserID: domain.MustUserID(otherUserID), Role: domain.RoleAdmin}

	_, err := svc.Get(context.Background(), admin, testUserRecord(t).UserID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserServiceUpdate(t *testing.T) {
	t.Run("applies non-empty fields", func(t *testing.T) {
		owner := testUserRecord(t)
		store := newMemUserStore(owner)
		clock := domaintest.NewFakeClock(testStart)
		svc := newTestUserService(store, clock)
		clock.Advance(time.Minute)

		got, err := svc.Update(context.Background(), identityOf(t, owner), owner.UserID, app.UpdateInput{
			Name:     "Alice B",
			Email:    "alice.b@example.com",
			Password: "new-password",
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice B", got.Name)
		assert.Equal(t, "alice.b@example.com", got.Email)
		assert.Equal(t, testStart.Add(time.Minute), got.UpdatedAt)
		assert.Equal(t, testStart, got.CreatedAt)

		stored, err := store.GetByID(context.Background(), owner.UserID)
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePassword(stored.PasswordHash, "new-password"))
	})

	t.Run("email taken by another account", func(t *testing.T) {
		owner := testUserRecord(t)
		other := owner
		other.UserID = otherUserID
		other.Email = "bob@example.com"
		svc := newTestUserService(newMemUserStore(owner, other), domaintest.NewFakeClock(testStart))

		_, err := svc.Update(context.Background(), identityOf(t, owner), owner.UserID, app.UpdateInput{Email: "BOB@example.com"})
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("same email is not a conflict", func(t *testing.T) {
		owner := testUserRecord(t)
		svc := newTestUserService(newMemUserStore(owner), domaintest.NewFakeClock(testStart))

		_, err := svc.Update(context.Background(), identityOf(t, owner), owner.UserID, app.UpdateInput{Email: owner.Email})
		assert.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		owner := testUserRecord(t)
		svc := newTestUserService(newMemUserStore(owner), domaintest.NewFakeClock(testStart))
		caller := identityOf(t, owner)

		_, err := svc.Update(context.Background(), caller, owner.UserID, app.UpdateInput{Phone: "abc"})
		assert.ErrorIs(t, err, domain.ErrInvalidPhoneNumber)
		_, err = svc.Update(context.Background(), caller, owner.UserID, app.UpdateInput{Password: "123"})
		assert.ErrorIs(t, err, domain.ErrWeakPassword)
		_, err = svc.Update(context.Background(), caller, owner.UserID, app.UpdateInput{Email: "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})
}

func TestUserServiceDelete(t *testing.T) {
	owner := testUserRecord(t)
	store := newMemUserStore(owner)
	svc := newTestUserService(store, domaintest.NewFakeClock(testStart))

	require.NoError(t, svc.Delete(context.Background(), identityOf(t, owner), owner.UserID))

	_, err := store.GetByID(context.Background(), owner.UserID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(context.Background(), identityOf(t, owner), owner.UserID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
