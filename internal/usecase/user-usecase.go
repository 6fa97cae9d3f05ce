package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrNameRequired  = errors.New("name is required")
	ErrNoSession     = errors.New("not logged in")
)

type UserStorage interface {
	CreateUser(ctx context.Context, user model.User) (uuid.UUID, error)
	GetUserInfo(ctx context.Context, userID uuid.UUID) (model.User, error)
	GetUserIDForEmail(ctx context.Context, email string) (uuid.UUID, error)
	GetUserIDForTelegramUser(ctx context.Context, userTelegramID int64) (uuid.UUID, error)
	SetSession(ctx context.Context, name string, userID uuid.UUID) error
	GetSession(ctx context.Context, name string) (uuid.UUID, error)
	DeleteSession(ctx context.Context, name string) error
}

type UserUsecaseDeps struct {
	UserStorage UserStorage
}

// UserUsecase hands out session identities. It never verifies credentials;
// an email is enough to log in.
type UserUsecase struct {
	UserUsecaseDeps
	sessionName string
}

func NewUserUsecase(deps UserUsecaseDeps, storageCfg config.Storage) *UserUsecase {
	return &UserUsecase{
		UserUsecaseDeps: deps,
		sessionName:     storageCfg.SessionName,
	}
}

func (u *UserUsecase) Signup(ctx context.Context, email, name string) (model.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return model.User{}, ErrEmailRequired
	}
	if name == "" {
		return model.User{}, ErrNameRequired
	}

	userID, err := u.UserStorage.CreateUser(ctx, model.User{Name: &name, Email: email})
	if err != nil {
		return model.User{}, errors.Wrap(err, "failed to create user")
	}
	if err = u.UserStorage.SetSession(ctx, u.sessionName, userID); err != nil {
		return model.User{}, err
	}
	log.Info().Str("user_id", userID.String()).Msg("user signed up")
	return u.UserStorage.GetUserInfo(ctx, userID)
}

func (u *UserUsecase) Login(ctx context.Context, email string) (model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.User{}, ErrEmailRequired
	}

	userID, err := u.UserStorage.GetUserIDForEmail(ctx, email)
	if err != nil {
		return model.User{}, errors.Wrapf(err, "failed to find user %s", email)
	}
	if err = u.UserStorage.SetSession(ctx, u.sessionName, userID); err != nil {
		return model.User{}, err
	}
	log.Info().Str("user_id", userID.String()).Msg("user logged in")
	return u.UserStorage.GetUserInfo(ctx, userID)
}

// GetSession returns the logged-in user or nil. A session pointing at a
// missing user counts as no session.
func (u *UserUsecase) GetSession(ctx context.Context) (*model.User, error) {
	userID, err := u.UserStorage.GetSession(ctx, u.sessionName)
	if err != nil {
		if errors.Is(err, model.ErrSessionDoesNotExists) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get session")
	}
	user, err := u.UserStorage.GetUserInfo(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrUserDoesNotExists) {
			log.Warn().Str("user_id", userID.String()).Msg("session refers to unknown user")
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get session user")
	}
	return &user, nil
}

// RequireSession is GetSession that fails with ErrNoSession instead of
// returning nil.
func (u *UserUsecase) RequireSession(ctx context.Context) (model.User, error) {
	user, err := u.GetSession(ctx)
	if err != nil {
		return model.User{}, err
	}
	if user == nil {
		return model.User{}, ErrNoSession
	}
	return *user, nil
}

func (u *UserUsecase) Logout(ctx context.Context) error {
	return u.UserStorage.DeleteSession(ctx, u.sessionName)
}

// GetUserInfoForTelegramUser returns the user bound to a Telegram id,
// creating it on first contact.
func (u *UserUsecase) GetUserInfoForTelegramUser(ctx context.Context, userTelegramID int64) (model.User, error) {
	userID, err := u.UserStorage.GetUserIDForTelegramUser(ctx, userTelegramID)
	if errors.Is(err, model.ErrTelegramUserDoesNotExists) {
		userID, err = u.UserStorage.CreateUser(ctx, model.User{TelegramID: userTelegramID})
		if errors.Is(err, model.ErrUserAlreadyExists) {
			userID, err = u.UserStorage.GetUserIDForTelegramUser(ctx, userTelegramID)
		}
	}
	if err != nil {
		return model.User{}, errors.Wrapf(err, "failed to get telegram user %d", userTelegramID)
	}
	return u.UserStorage.GetUserInfo(ctx, userID)
}

func (u *UserUsecase) GetUserInfo(ctx context.Context, userID uuid.UUID) (model.User, error) {
	return u.UserStorage.GetUserInfo(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
