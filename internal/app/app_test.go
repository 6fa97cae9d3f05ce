package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(backend string) *config.Config {
	return &config.Config{
		Language: "en",
		Storage: config.Storage{
			Backend:     backend,
			KeyPrefix:   "chatHistory_",
			SessionName: "session",
		},
		Reply: config.Reply{
			Provider: config.ReplyProviderEcho,
			Timeout:  time.Second,
		},
	}
}

func TestAppMemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(config.StorageBackendMemory))
	require.NoError(t, err)
	defer a.Close()

	user, err := a.Users().Signup(ctx, "ann@example.com", "Ann")
	require.NoError(t, err)

	session, err := a.NewSession(ctx, user.UserID)
	require.NoError(t, err)
	reply, err := session.SendMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "You said: hello", reply.Content)
	session.Dispose()

	restored, err := a.NewSession(ctx, user.UserID)
	require.NoError(t, err)
	defer restored.Dispose()
	assert.Len(t, restored.Messages(), 2)
}

func TestAppRedisBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := testConfig(config.StorageBackendRedis)
	cfg.Storage.Redis.Endpoint = mr.Addr()

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	user, err := a.Users().Signup(ctx, "ann@example.com", "Ann")
	require.NoError(t, err)
	session, err := a.NewSession(ctx, user.UserID)
	require.NoError(t, err)
	defer session.Dispose()

	_, err = session.SendMessage(ctx, "hello")
	require.NoError(t, err)
	assert.True(t, mr.Exists("chatHistory_"+user.UserID.String()))
}

func TestAppRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(config.StorageBackendRedis)
	cfg.Storage.Redis.Endpoint = mr.Addr()
	mr.Close()

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewGeneratorJoinsBaseURL(t *testing.T) {
	cfg := testConfig(config.StorageBackendMemory)
	cfg.Reply.Provider = config.ReplyProviderOpenAI
	cfg.OpenAI.OpenAIBaseURL = "http://%zz"

	_, err := newGenerator(cfg)
	assert.Error(t, err)

	cfg.OpenAI.OpenAIBaseURL = "http://localhost:8080"
	generator, err := newGenerator(cfg)
	require.NoError(t, err)
	assert.NotNil(t, generator)
}
