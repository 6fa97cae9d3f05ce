package key_value

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStorageEmailUser(t *testing.T) {
	ctx := context.Background()
	rdb, _ := newTestRedis(t)
	storage := NewUserStorage(rdb)
	name := "Ann"

	userID, err := storage.CreateUser(ctx, model.User{Name: &name, Email: "ann@example.com"})
	require.NoError(t, err)

	_, err = storage.CreateUser(ctx, model.User{Email: "ann@example.com"})
	assert.ErrorIs(t, err, model.ErrUserAlreadyExists)

	gotID, err := storage.GetUserIDForEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)

	user, err := storage.GetUserInfo(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, user.UserID)
	assert.Equal(t, "ann@example.com", user.Email)
	require.NotNil(t, user.Name)
	assert.Equal(t, "Ann", *user.Name)

	_, err = storage.GetUserIDForEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, model.ErrUserDoesNotExists)
	_, err = storage.GetUserInfo(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrUserDoesNotExists)
}

func TestUserStorageTelegramUser(t *testing.T) {
	ctx := context.Background()
	rdb, _ := newTestRedis(t)
	storage := NewUserStorage(rdb)

	_, err := storage.GetUserIDForTelegramUser(ctx, 42)
	assert.ErrorIs(t, err, model.ErrTelegramUserDoesNotExists)

	userID, err := storage.CreateUser(ctx, model.User{TelegramID: 42})
	require.NoError(t, err)

	gotID, err := storage.GetUserIDForTelegramUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
}

func TestUserStorageConflictLeavesNoPartialUser(t *testing.T) {
	ctx := context.Background()
	rdb, mr := newTestRedis(t)
	storage := NewUserStorage(rdb)

	telegramOwner, err := storage.CreateUser(ctx, model.User{TelegramID: 42})
	require.NoError(t, err)
	keysBefore := mr.Keys()

	_, err = storage.CreateUser(ctx, model.User{Email: "ann@example.com", TelegramID: 42})
	assert.ErrorIs(t, err, model.ErrUserAlreadyExists)

	_, err = storage.GetUserIDForEmail(ctx, "ann@example.com")
	assert.ErrorIs(t, err, model.ErrUserDoesNotExists)
	gotID, err := storage.GetUserIDForTelegramUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, telegramOwner, gotID)
	assert.Equal(t, keysBefore, mr.Keys())

	userID, err := storage.CreateUser(ctx, model.User{Email: "ann@example.com"})
	require.NoError(t, err)
	user, err := storage.GetUserInfo(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
}

func TestUserStorageSession(t *testing.T) {
	ctx := context.Background()
	rdb, _ := newTestRedis(t)
	storage := NewUserStorage(rdb)
	userID := uuid.New()

	_, err := storage.GetSession(ctx, "session")
	assert.ErrorIs(t, err, model.ErrSessionDoesNotExists)

	require.NoError(t, storage.SetSession(ctx, "session", userID))
	gotID, err := storage.GetSession(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)

	require.NoError(t, storage.DeleteSession(ctx, "session"))
	_, err = storage.GetSession(ctx, "session")
	assert.ErrorIs(t, err, model.ErrSessionDoesNotExists)
}
