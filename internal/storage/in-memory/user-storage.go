package in_memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
)

type UserStorage struct {
	mu               sync.RWMutex
	users            map[uuid.UUID]*model.User
	emailUsersIDs    map[string]uuid.UUID
	telegramUsersIDs map[int64]uuid.UUID
	sessions         map[string]uuid.UUID
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		users:            make(map[uuid.UUID]*model.User),
		emailUsersIDs:    make(map[string]uuid.UUID),
		telegramUsersIDs: make(map[int64]uuid.UUID),
		sessions:         make(map[string]uuid.UUID),
	}
}

func (u *UserStorage) CreateUser(_ context.Context, user model.User) (uuid.UUID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.emailUsersIDs[user.Email]; ok && user.Email != "" {
		return uuid.Nil, model.ErrUserAlreadyExists
	}
	if _, ok := u.telegramUsersIDs[user.TelegramID]; ok && user.TelegramID != 0 {
		return uuid.Nil, model.ErrUserAlreadyExists
	}

	userID := uuid.New()
	user.UserID = userID
	u.users[userID] = &user
	if user.Email != "" {
		u.emailUsersIDs[user.Email] = userID
	}
	if user.TelegramID != 0 {
		u.telegramUsersIDs[user.TelegramID] = userID
	}
	return userID, nil
}

func (u *UserStorage) GetUserInfo(_ context.Context, userID uuid.UUID) (model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.users[userID]
	if !ok {
		return model.User{}, model.ErrUserDoesNotExists
	}
	return *user, nil
}

func (u *UserStorage) GetUserIDForEmail(_ context.Context, email string) (uuid.UUID, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	userID, ok := u.emailUsersIDs[email]
	if !ok {
		return uuid.Nil, model.ErrUserDoesNotExists
	}
	return userID, nil
}

func (u *UserStorage) GetUserIDForTelegramUser(_ context.Context, userTelegramID int64) (uuid.UUID, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	userID, ok := u.telegramUsersIDs[userTelegramID]
	if !ok {
		return uuid.Nil, model.ErrTelegramUserDoesNotExists
	}
	return userID, nil
}

func (u *UserStorage) SetSession(_ context.Context, name string, userID uuid.UUID) error {
	u.mu.Lock()
	u.sessions[name] = userID
	u.mu.Unlock()
	return nil
}

func (u *UserStorage) GetSession(_ context.Context, name string) (uuid.UUID, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	userID, ok := u.sessions[name]
	if !ok {
		return uuid.Nil, model.ErrSessionDoesNotExists
	}
	return userID, nil
}

func (u *UserStorage) DeleteSession(_ context.Context, name string) error {
	u.mu.Lock()
	delete(u.sessions, name)
	u.mu.Unlock()
	return nil
}
