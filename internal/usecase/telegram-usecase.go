package usecase

import (
	"context"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/iamvkosarev/ai-chat-client/internal/metrics"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/iamvkosarev/ai-chat-client/pkg/local"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandNew   = "new"
)

var (
	TextTelegramStart = local.NewSet(
		"Welcome, %s! Write something to start a conversation. Use /new to clear the conversation.",
		local.NewTrans(local.Rus, "Добро пожаловать, %s! Напишите что-нибудь, чтобы начать разговор. /new очищает переписку."),
	)
	TextTelegramHelp = local.NewSet(
		"Write something to start a conversation. Use /new to clear the conversation.",
		local.NewTrans(local.Rus, "Напишите что-нибудь, чтобы начать разговор. /new очищает переписку."),
	)
	TextConversationCleared = local.NewSet(
		"Conversation cleared.",
		local.NewTrans(local.Rus, "Переписка очищена."),
	)
	TextCommandUnknown = local.NewSet(
		"I don't know that command",
		local.NewTrans(local.Rus, "Я не знаю такой команды"),
	)
	TextUserNoAccess = local.NewSet(
		"You are not allowed to use this bot",
		local.NewTrans(local.Rus, "У вас нет доступа к этому боту"),
	)
	TextServerError = local.NewSet(
		"Something wrong with me. Try later",
		local.NewTrans(local.Rus, "Что-то пошло не так. Попробуйте позже"),
	)
)

type TelegramUsecaseDeps struct {
	User        *UserUsecase
	Bot         *api.BotAPI
	Transcripts TranscriptStorage
	Reply       ReplyGateway
	Metrics     *metrics.Metrics
}

// TelegramUsecase serves every Telegram chat through its own session
// controller, keyed by the user bound to the Telegram id.
type TelegramUsecase struct {
	TelegramUsecaseDeps
	language     local.Language
	allowedUsers map[int64]struct{}

	mu       sync.Mutex
	sessions map[uuid.UUID]*SessionUsecase
}

func NewTelegramUsecase(cfg config.Telegram, language local.Language, deps TelegramUsecaseDeps) (
	*TelegramUsecase, error,
) {
	_, err := deps.Bot.Request(
		api.NewSetMyCommands(
			[]api.BotCommand{
				{
					Command:     CommandHelp,
					Description: "Get help",
				},
				{
					Command:     CommandNew,
					Description: "Clear the conversation",
				},
			}...,
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set bot commands")
	}
	return newTelegramUsecase(cfg, language, deps), nil
}

func newTelegramUsecase(cfg config.Telegram, language local.Language, deps TelegramUsecaseDeps) *TelegramUsecase {
	allowedUsers := make(map[int64]struct{}, len(cfg.AllowedTelegramID))
	for _, id := range cfg.AllowedTelegramID {
		allowedUsers[id] = struct{}{}
	}
	return &TelegramUsecase{
		TelegramUsecaseDeps: deps,
		language:            language,
		allowedUsers:        allowedUsers,
		sessions:            make(map[uuid.UUID]*SessionUsecase),
	}
}

// Run polls updates until ctx is done, then waits for in-flight replies.
func (t *TelegramUsecase) Run(ctx context.Context) error {
	u := api.NewUpdate(0)
	u.Timeout = 60

	updates := t.Bot.GetUpdatesChan(u)
	wg := conc.NewWaitGroup()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			t.Bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			message := update.Message
			wg.Go(
				func() {
					t.handleMessage(ctx, message)
				},
			)
		}
	}
}

// Close disposes every session controller.
func (t *TelegramUsecase) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for userID, session := range t.sessions {
		session.Dispose()
		delete(t.sessions, userID)
	}
}

func (t *TelegramUsecase) handleMessage(ctx context.Context, message *api.Message) {
	chatID := message.Chat.ID
	command := ""
	if message.IsCommand() {
		command = message.Command()
	} else {
		if _, err := t.Bot.Request(api.NewChatAction(chatID, api.ChatTyping)); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send chat action")
		}
	}

	for _, text := range t.answer(ctx, chatID, command, message.Text) {
		if _, err := t.Bot.Send(api.NewMessage(chatID, text)); err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message to bot")
		}
	}
}

// answer computes the texts to send back for one incoming message. An
// empty command means text is a conversation turn.
func (t *TelegramUsecase) answer(ctx context.Context, telegramID int64, command, text string) []string {
	if len(t.allowedUsers) > 0 {
		if _, ok := t.allowedUsers[telegramID]; !ok {
			return []string{TextUserNoAccess.Text(t.language)}
		}
	}

	user, err := t.User.GetUserInfoForTelegramUser(ctx, telegramID)
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", telegramID).Msg("failed to get user for telegram id")
		return []string{TextServerError.Text(t.language)}
	}
	session, err := t.sessionFor(ctx, user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.UserID.String()).Msg("failed to start session")
		return []string{TextServerError.Text(t.language)}
	}

	switch command {
	case "":
	case CommandStart:
		return []string{TextTelegramStart.Format(t.language, telegramName(user))}
	case CommandHelp:
		return []string{TextTelegramHelp.Text(t.language)}
	case CommandNew:
		if err = session.ClearConversation(ctx); err != nil {
			return []string{NoticeText(err, t.language)}
		}
		return withStorageNotice([]string{TextConversationCleared.Text(t.language)}, session.State())
	default:
		return []string{TextCommandUnknown.Text(t.language)}
	}

	reply, err := session.SendMessage(ctx, text)
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return nil
	case err != nil:
		return []string{NoticeText(err, t.language)}
	}
	return withStorageNotice([]string{reply.Content}, session.State())
}

func (t *TelegramUsecase) sessionFor(ctx context.Context, user model.User) (*SessionUsecase, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if session, ok := t.sessions[user.UserID]; ok {
		return session, nil
	}
	session := NewSessionUsecase(
		SessionUsecaseDeps{
			Transcripts: t.Transcripts,
			Reply:       t.Reply,
			Metrics:     t.Metrics,
		}, t.language,
	)
	if err := session.Initialize(ctx, user.UserID); err != nil {
		return nil, err
	}
	t.sessions[user.UserID] = session
	return session, nil
}

func withStorageNotice(texts []string, state SessionState) []string {
	if state.Notice != nil && state.Notice.Kind == model.NoticeKindStorage {
		texts = append(texts, state.Notice.Text)
	}
	return texts
}

func telegramName(user model.User) string {
	if name := user.DisplayName(); name != "" {
		return name
	}
	return "friend"
}
