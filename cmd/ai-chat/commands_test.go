package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/iamvkosarev/ai-chat-client/internal/app"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/iamvkosarev/ai-chat-client/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(
		context.Background(), &config.Config{
			Language: "en",
			Storage:  config.Storage{Backend: config.StorageBackendMemory, SessionName: "session"},
			Reply:    config.Reply{Provider: config.ReplyProviderEcho, Timeout: time.Second},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestResolveChatUser(t *testing.T) {
	ctx := context.Background()
	a := newMemoryApp(t)

	_, err := resolveChatUser(ctx, a, "", "")
	assert.ErrorIs(t, err, usecase.ErrNoSession)

	_, err = resolveChatUser(ctx, a, "ann@example.com", "")
	assert.ErrorIs(t, err, model.ErrUserDoesNotExists)

	created, err := resolveChatUser(ctx, a, "ann@example.com", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "Ann", created.DisplayName())

	again, err := resolveChatUser(ctx, a, "ann@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, again.UserID)

	fromSession, err := resolveChatUser(ctx, a, "", "")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, fromSession.UserID)
}

func TestSignupCommandMemoryBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", config.StorageBackendMemory)
	t.Setenv("REPLY_PROVIDER", config.ReplyProviderEcho)
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"signup", "--email", "ann@example.com", "--name", "Ann"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "Signed up as Ann <ann@example.com>\n", out.String())
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, name := range []string{"chat", "signup", "login", "logout", "whoami", "telegram"} {
		assert.Contains(t, names, name)
	}
	assert.NotNil(t, root.Flags().Lookup("email"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}
