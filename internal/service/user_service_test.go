package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

func newUserService(f *fixture) UserService {
	return NewUserService(f.users, zap.NewNop())
}

func TestCreateUserHashesPassword(t *testing.T) {
	f := newFixture(t)
	svc := newUserService(f)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		CurrentUserID: f.adminID,
		FirstName:     "Nina",
		LastName:      "New",
		Email:         "Nina.New@Example.com",
		Password:      "s3cret-pass",
		Role:          domain.RoleUser,
	})
	require.NoError(t, err)
	require.Equal(t, "nina.new@example.com", created.Email)
	// The response never carries the hash.
	require.Nil(t, created.PasswordHash)

	// The stored hash verifies against the password.
	stored, err := f.users.GetUser(ctx, created.UserID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("s3cret-pass")))
}

func TestCreateUserGates(t *testing.T) {
	f := newFixture(t)
	svc := newUserService(f)
	ctx := context.Background()

	// Non-admins cannot create accounts.
	_, err := svc.CreateUser(ctx, CreateUserRequest{
		CurrentUserID: f.userID,
		FirstName:     "X",
		LastName:      "Y",
		Email:         "x@example.com",
		Password:      "longenough",
		Role:          domain.RoleUser,
	})
	require.Error(t, err)
	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)

	// Weak password and bad role are refused.
	_, err = svc.CreateUser(ctx, CreateUserRequest{
		CurrentUserID: f.adminID,
		FirstName:     "X",
		LastName:      "Y",
		Email:         "x@example.com",
		Password:      "short",
		Role:          domain.RoleUser,
	})
	require.Error(t, err)

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		CurrentUserID: f.adminID,
		FirstName:     "X",
		LastName:      "Y",
		Email:         "x@example.com",
		Password:      "longenough",
		Role:          domain.Role("superuser"),
	})
	require.Error(t, err)

	// Duplicate email is refused by the store.
	_, err = svc.CreateUser(ctx, CreateUserRequest{
		CurrentUserID: f.adminID,
		FirstName:     "Uma",
		LastName:      "Dup",
		Email:         "uma@example.com",
		Password:      "longenough",
		Role:          domain.RoleUser,
	})
	require.Error(t, err)
}

func TestGetUserVisibility(t *testing.T) {
	f := newFixture(t)
	svc := newUserService(f)
	ctx := context.Background()

	// Users read their own profile, not others'.
	own, err := svc.GetUser(ctx, GetUserRequest{CurrentUserID: f.userID, UserID: f.userID})
	require.NoError(t, err)
	require.Equal(t, f.userID, own.UserID)

	_, err = svc.GetUser(ctx, GetUserRequest{CurrentUserID: f.userID, UserID: f.otherUserID})
	require.Error(t, err)

	// Admins read anyone.
	_, err = svc.GetUser(ctx, GetUserRequest{CurrentUserID: f.adminID, UserID: f.otherUserID})
	require.NoError(t, err)
}

func TestUpdateUserRoleChangeIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	svc := newUserService(f)
	ctx := context.Background()

	// Self-update of profile fields is fine.
	updated, err := svc.UpdateUser(ctx, UpdateUserRequest{
		CurrentUserID: f.userID,
		UserID:        f.userID,
		FirstName:     "Uma",
		LastName:      "Renamed",
		Email:         "uma@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.LastName)

	// Self-promotion is not.
	_, err = svc.UpdateUser(ctx, UpdateUserRequest{
		CurrentUserID: f.userID,
		UserID:        f.userID,
		FirstName:     "Uma",
		LastName:      "Renamed",
		Email:         "uma@example.com",
		Role:          domain.RoleAdmin,
	})
	require.Error(t, err)

	// An admin can promote.
	promoted, err := svc.UpdateUser(ctx, UpdateUserRequest{
		CurrentUserID: f.adminID,
		UserID:        f.userID,
		FirstName:     "Uma",
		LastName:      "Renamed",
		Email:         "uma@example.com",
		Role:          domain.RoleResponsable,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleResponsable, promoted.Role)
}

func TestDeactivateUser(t *testing.T) {
	f := newFixture(t)
	svc := newUserService(f)
	ctx := context.Background()

	// Admins cannot deactivate themselves.
	err := svc.DeactivateUser(ctx, DeactivateUserRequest{
		CurrentUserID: f.adminID,
		UserID:        f.adminID,
	})
	require.Error(t, err)

	require.NoError(t, svc.DeactivateUser(ctx, DeactivateUserRequest{
		CurrentUserID: f.adminID,
		UserID:        f.userID,
	}))
	stored, err := f.users.GetUser(ctx, f.userID)
	require.NoError(t, err)
	require.False(t, stored.Active)

	// A deactivated account cannot act anymore.
	_, err = f.reservationSvc.ListReservations(ctx, ListReservationsRequest{CurrentUserID: f.userID})
	require.Error(t, err)
	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)
}
