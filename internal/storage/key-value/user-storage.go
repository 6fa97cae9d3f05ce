package key_value

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type userInternal struct {
	UserID     string  `json:"user_id"`
	Name       *string `json:"name"`
	Email      string  `json:"email"`
	TelegramID int64   `json:"telegram_id,omitempty"`
}

type UserStorage struct {
	rdb *redis.Client
}

func NewUserStorage(rdb *redis.Client) *UserStorage {
	return &UserStorage{
		rdb: rdb,
	}
}

// CreateUser claims the email and Telegram indexes in one MSETNX before the
// user record is written, so a lost race leaves no partial state behind.
func (u *UserStorage) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	userID := uuid.New()

	indexKeys := make([]string, 0, 2)
	if user.Email != "" {
		indexKeys = append(indexKeys, getUserEmailKey(user.Email))
	}
	if user.TelegramID != 0 {
		indexKeys = append(indexKeys, getUserTelegramIDKey(user.TelegramID))
	}
	if len(indexKeys) > 0 {
		pairs := make([]any, 0, 2*len(indexKeys))
		for _, key := range indexKeys {
			pairs = append(pairs, key, userID.String())
		}
		claimed, err := u.rdb.MSetNX(ctx, pairs...).Result()
		if err != nil {
			return uuid.Nil, errors.Wrap(err, "failed to save user indexes")
		}
		if !claimed {
			return uuid.Nil, model.ErrUserAlreadyExists
		}
	}

	userInt := userInternal{
		UserID:     userID.String(),
		Name:       user.Name,
		Email:      user.Email,
		TelegramID: user.TelegramID,
	}
	if err := u.setUser(ctx, userID, userInt); err != nil {
		if len(indexKeys) > 0 {
			if delErr := u.rdb.Del(ctx, indexKeys...).Err(); delErr != nil {
				log.Error().Err(delErr).Str("user_id", userID.String()).Msg("failed to release user indexes")
			}
		}
		return uuid.Nil, errors.Wrap(err, "failed to set user")
	}
	return userID, nil
}

func (u *UserStorage) GetUserInfo(ctx context.Context, userID uuid.UUID) (model.User, error) {
	userInt, err := u.getUser(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		UserID:     userID,
		Name:       userInt.Name,
		Email:      userInt.Email,
		TelegramID: userInt.TelegramID,
	}, nil
}

func (u *UserStorage) GetUserIDForEmail(ctx context.Context, email string) (uuid.UUID, error) {
	userID, err := u.getIndexedUserID(ctx, getUserEmailKey(email))
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, model.ErrUserDoesNotExists
	}
	return userID, err
}

func (u *UserStorage) GetUserIDForTelegramUser(ctx context.Context, userTelegramID int64) (uuid.UUID, error) {
	userID, err := u.getIndexedUserID(ctx, getUserTelegramIDKey(userTelegramID))
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, model.ErrTelegramUserDoesNotExists
	}
	return userID, err
}

func (u *UserStorage) SetSession(ctx context.Context, name string, userID uuid.UUID) error {
	if err := u.rdb.Set(ctx, getSessionKey(name), userID.String(), 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to save session %s", name)
	}
	return nil
}

func (u *UserStorage) GetSession(ctx context.Context, name string) (uuid.UUID, error) {
	userID, err := u.getIndexedUserID(ctx, getSessionKey(name))
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, model.ErrSessionDoesNotExists
	}
	return userID, err
}

func (u *UserStorage) DeleteSession(ctx context.Context, name string) error {
	if err := u.rdb.Del(ctx, getSessionKey(name)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete session %s", name)
	}
	return nil
}

func (u *UserStorage) getIndexedUserID(ctx context.Context, key string) (uuid.UUID, error) {
	userIDStr, err := u.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, err
		}
		return uuid.Nil, errors.Wrapf(err, "failed to get %s", key)
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "failed to parse userID %s", userIDStr)
	}
	return userID, nil
}

func (u *UserStorage) getUser(ctx context.Context, userID uuid.UUID) (userInternal, error) {
	userIDKey := getUserIDKey(userID)
	userRaw, err := u.rdb.Get(ctx, userIDKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return userInternal{}, model.ErrUserDoesNotExists
		}
		return userInternal{}, errors.Wrapf(err, "failed to get user %s", userID)
	}
	var user userInternal
	if err = json.Unmarshal([]byte(userRaw), &user); err != nil {
		return userInternal{}, errors.Wrapf(err, "failed to unmarshal user %s", userID)
	}
	return user, nil
}

func (u *UserStorage) setUser(ctx context.Context, userID uuid.UUID, userInt userInternal) error {
	userJSON, err := json.Marshal(userInt)
	if err != nil {
		return errors.Wrap(err, "failed to marshal internal user")
	}
	if err = u.rdb.Set(ctx, getUserIDKey(userID), userJSON, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to save user %s", userID)
	}
	return nil
}

func getUserTelegramIDKey(id int64) string {
	return fmt.Sprintf("telegram_%d", id)
}

func getUserEmailKey(email string) string {
	return fmt.Sprintf("user_email_%s", email)
}

func getUserIDKey(id uuid.UUID) string {
	return fmt.Sprintf("user_%s", id.String())
}

func getSessionKey(name string) string {
	return fmt.Sprintf("session_%s", name)
}
