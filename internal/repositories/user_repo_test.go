//go:build integration

package repositories_test

import (
	"context"
	"testing"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewUserRepository(testDB)

	name := uniqueName("alice")
	created, err := repo.Create(ctx, &models.User{
		UserName:     name,
		NickName:     "Alice",
		PasswordHash: pkgauth.Digest("s3cret"),
		Status:       models.UserStatusEnabled,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Empty(t, created.Phone)

	found, err := repo.FindByUserName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, pkgauth.Digest("s3cret"), found.PasswordHash)
	assert.Nil(t, found.LoginDate)
}

func TestUserRepository_FindByUserName_NotFound(t *testing.T) {
	repo := repositories.NewUserRepository(testDB)

	_, err := repo.FindByUserName(context.Background(), uniqueName("ghost"))

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_FindByPhone(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewUserRepository(testDB)

	phone := uniqueName("tel")[:20]
	created, err := repo.Create(ctx, &models.User{
		UserName:  uniqueName("dave"),
		Phone:     phone,
		OTPSecret: "JBSWY3DPEHPK3PXP",
	})
	require.NoError(t, err)

	found, err := repo.FindByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", found.OTPSecret)

	_, err = repo.FindByPhone(ctx, "no-such-phone")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewUserRepository(testDB)

	name := uniqueName("erin")
	_, err := repo.Create(ctx, &models.User{UserName: name})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{UserName: name})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserRepository_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewUserRepository(testDB)

	created, err := repo.Create(ctx, &models.User{UserName: uniqueName("frank")})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateLastLogin(ctx, "198.51.100.7", created.ID))

	found, err := repo.FindByUserName(ctx, created.UserName)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", found.LoginIP)
	assert.NotNil(t, found.LoginDate)

	assert.ErrorIs(t, repo.UpdateLastLogin(ctx, "198.51.100.7", -1), models.ErrNotFound)
}
