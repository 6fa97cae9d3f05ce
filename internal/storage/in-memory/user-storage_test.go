package in_memory

import (
	"context"
	"testing"

	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewUserStorage()
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
	assert.Equal(t, "Ann", user.DisplayName())

	_, err = storage.GetUserIDForTelegramUser(ctx, 42)
	assert.ErrorIs(t, err, model.ErrTelegramUserDoesNotExists)

	_, err = storage.GetSession(ctx, "session")
	assert.ErrorIs(t, err, model.ErrSessionDoesNotExists)
	require.NoError(t, storage.SetSession(ctx, "session", userID))
	gotID, err = storage.GetSession(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	require.NoError(t, storage.DeleteSession(ctx, "session"))
	_, err = storage.GetSession(ctx, "session")
	assert.ErrorIs(t, err, model.ErrSessionDoesNotExists)
}
