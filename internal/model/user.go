package model

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrTelegramUserDoesNotExists = errors.New("telegram user doesn't exists")
	ErrUserAlreadyExists         = errors.New("user already exists")
	ErrUserDoesNotExists         = errors.New("user doesn't exists")
	ErrSessionDoesNotExists      = errors.New("session doesn't exists")
)

// User is the session identity handed out by the auth side. It is only used
// to partition stored transcripts and for display.
type User struct {
	UserID     uuid.UUID
	Name       *string
	Email      string
	TelegramID int64
}

func (u User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
