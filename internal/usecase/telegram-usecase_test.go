package usecase

import (
	"context"
	"testing"

	"github.com/iamvkosarev/ai-chat-client/config"
	in_memory "github.com/iamvkosarev/ai-chat-client/internal/storage/in-memory"
	"github.com/iamvkosarev/ai-chat-client/pkg/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelegram(cfg config.Telegram, gateway ReplyGateway) *TelegramUsecase {
	return newTelegramUsecase(
		cfg, local.Eng, TelegramUsecaseDeps{
			User:        newTestUserUsecase(),
			Transcripts: in_memory.NewTranscriptStorage(),
			Reply:       gateway,
		},
	)
}

func TestTelegramAnswerConversation(t *testing.T) {
	ctx := context.Background()
	gateway := &staticGateway{reply: "hi there"}
	bot := newTestTelegram(config.Telegram{}, gateway)
	defer bot.Close()

	assert.Equal(t, []string{"hi there"}, bot.answer(ctx, 7, "", "hello"))
	assert.Equal(t, []string{"hi there"}, bot.answer(ctx, 7, "", "again"))
	require.Len(t, gateway.calls, 2)
	assert.Equal(t, "User: hello\nAssistant: hi there", gateway.calls[1].historyText)

	assert.Nil(t, bot.answer(ctx, 7, "", "   "))
}

func TestTelegramAnswerCommands(t *testing.T) {
	ctx := context.Background()
	gateway := &staticGateway{reply: "hi there"}
	bot := newTestTelegram(config.Telegram{}, gateway)
	defer bot.Close()

	start := bot.answer(ctx, 7, CommandStart, "/start")
	require.Len(t, start, 1)
	assert.Contains(t, start[0], "Welcome, friend!")
	assert.Equal(t, []string{TextTelegramHelp.Default}, bot.answer(ctx, 7, CommandHelp, "/help"))
	assert.Equal(t, []string{TextCommandUnknown.Default}, bot.answer(ctx, 7, "chats", "/chats"))

	bot.answer(ctx, 7, "", "hello")
	assert.Equal(t, []string{TextConversationCleared.Default}, bot.answer(ctx, 7, CommandNew, "/new"))
	bot.answer(ctx, 7, "", "fresh")
	assert.Equal(t, "", gateway.calls[len(gateway.calls)-1].historyText)
}

func TestTelegramAnswerFailureNotice(t *testing.T) {
	bot := newTestTelegram(
		config.Telegram{},
		&staticGateway{err: &GenerationError{Reason: GenerationReasonNoResponse}},
	)
	defer bot.Close()

	assert.Equal(t, []string{"Failed to get AI response."}, bot.answer(context.Background(), 7, "", "hello"))
}

func TestTelegramAnswerAllowList(t *testing.T) {
	ctx := context.Background()
	gateway := &staticGateway{reply: "hi there"}
	bot := newTestTelegram(config.Telegram{AllowedTelegramID: []int64{1}}, gateway)
	defer bot.Close()

	assert.Equal(t, []string{TextUserNoAccess.Default}, bot.answer(ctx, 2, "", "hello"))
	assert.Empty(t, gateway.calls)
	assert.Equal(t, []string{"hi there"}, bot.answer(ctx, 1, "", "hello"))
}

func TestTelegramSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	gateway := &staticGateway{reply: "ok"}
	bot := newTestTelegram(config.Telegram{}, gateway)
	defer bot.Close()

	bot.answer(ctx, 1, "", "from one")
	bot.answer(ctx, 2, "", "from two")

	require.Len(t, gateway.calls, 2)
	assert.Equal(t, "", gateway.calls[1].historyText)
}
