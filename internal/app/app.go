package app

import (
	"context"
	"net/url"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/iamvkosarev/ai-chat-client/internal/metrics"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	in_memory "github.com/iamvkosarev/ai-chat-client/internal/storage/in-memory"
	key_value "github.com/iamvkosarev/ai-chat-client/internal/storage/key-value"
	"github.com/iamvkosarev/ai-chat-client/internal/tui"
	"github.com/iamvkosarev/ai-chat-client/internal/usecase"
	"github.com/iamvkosarev/ai-chat-client/pkg/local"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// App holds the collaborators shared by every host.
type App struct {
	cfg      *config.Config
	language local.Language

	rdb         *redis.Client
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	transcripts usecase.TranscriptStorage
	users       *usecase.UserUsecase
	reply       *usecase.ReplyUsecase

	background *conc.WaitGroup
	cancel     context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		cfg:        cfg,
		language:   local.ParseLanguage(cfg.Language),
		registry:   prometheus.NewRegistry(),
		background: conc.NewWaitGroup(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(a.registry)

	var userStorage usecase.UserStorage
	switch cfg.Storage.Backend {
	case config.StorageBackendMemory:
		a.transcripts = in_memory.NewTranscriptStorage()
		userStorage = in_memory.NewUserStorage()
	default:
		a.rdb = redis.NewClient(
			&redis.Options{
				Addr:     cfg.Storage.Redis.Endpoint,
				Password: cfg.Storage.Redis.Password,
				DB:       cfg.Storage.Redis.DB,
			},
		)
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			_ = a.rdb.Close()
			return nil, errors.Wrapf(err, "failed to connect to redis %s", cfg.Storage.Redis.Endpoint)
		}
		a.transcripts = key_value.NewTranscriptStorage(a.rdb, cfg.Storage.KeyPrefix)
		userStorage = key_value.NewUserStorage(a.rdb)
	}
	a.users = usecase.NewUserUsecase(usecase.UserUsecaseDeps{UserStorage: userStorage}, cfg.Storage)

	generator, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	a.reply = usecase.NewReplyUsecase(
		usecase.ReplyUsecaseDeps{
			Generator: generator,
			Metrics:   a.metrics,
		}, cfg.Reply,
	)

	if cfg.Metrics.Addr != "" {
		serveCtx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		router := metrics.NewRouter(a.registry)
		a.background.Go(
			func() {
				if err := metrics.Serve(serveCtx, cfg.Metrics.Addr, router); err != nil {
					log.Error().Err(err).Msg("metrics server stopped")
				}
			},
		)
	}

	log.Info().
		Str("storage", cfg.Storage.Backend).
		Str("provider", cfg.Reply.Provider).
		Str("language", string(a.language)).
		Msg("app initialized")
	return a, nil
}

func newGenerator(cfg *config.Config) (usecase.ReplyGenerator, error) {
	switch cfg.Reply.Provider {
	case config.ReplyProviderEcho:
		return usecase.NewEchoUsecase(), nil
	default:
		openAICfg := cfg.OpenAI
		if openAICfg.OpenAIBaseURL != "" {
			baseURL, err := url.JoinPath(openAICfg.OpenAIBaseURL, "/v1")
			if err != nil {
				return nil, errors.Wrapf(err, "invalid openai base url %s", openAICfg.OpenAIBaseURL)
			}
			openAICfg.OpenAIBaseURL = baseURL
		}
		return usecase.NewOpenAIUsecase(openAICfg), nil
	}
}

func (a *App) Users() *usecase.UserUsecase {
	return a.users
}

func (a *App) Language() local.Language {
	return a.language
}

// NewSession returns an initialized session controller for userID. The
// caller disposes it.
func (a *App) NewSession(ctx context.Context, userID uuid.UUID) (*usecase.SessionUsecase, error) {
	session := usecase.NewSessionUsecase(
		usecase.SessionUsecaseDeps{
			Transcripts: a.transcripts,
			Reply:       a.reply,
			Metrics:     a.metrics,
		}, a.language,
	)
	if err := session.Initialize(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "failed to initialize session")
	}
	return session, nil
}

// RunTUI runs the terminal host for user until it quits.
func (a *App) RunTUI(ctx context.Context, user model.User) error {
	session, err := a.NewSession(ctx, user.UserID)
	if err != nil {
		return err
	}
	defer session.Dispose()

	presenter := usecase.NewPresenterUsecase(ctx, session)
	defer presenter.Close()

	return tui.Run(ctx, presenter, user, a.language)
}

// RunTelegram runs the Telegram host until ctx is done.
func (a *App) RunTelegram(ctx context.Context) error {
	bot, err := api.NewBotAPI(a.cfg.Telegram.TelegramAPIToken)
	if err != nil {
		return errors.Wrap(err, "failed to create new bot")
	}
	log.Info().Str("account", bot.Self.UserName).Msg("authorized on telegram")

	telegramUsecase, err := usecase.NewTelegramUsecase(
		a.cfg.Telegram, a.language, usecase.TelegramUsecaseDeps{
			User:        a.users,
			Bot:         bot,
			Transcripts: a.transcripts,
			Reply:       a.reply,
			Metrics:     a.metrics,
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to create telegram usecase")
	}
	defer telegramUsecase.Close()

	return telegramUsecase.Run(ctx)
}

func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.background.Wait()
	if a.rdb != nil {
		return a.rdb.Close()
	}
	return nil
}
