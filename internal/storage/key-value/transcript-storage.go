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

var (
	ErrMalformedTranscript = errors.New("malformed transcript")
)

type messageInternal struct {
	ID      string            `json:"id"`
	Role    model.MessageRole `json:"role"`
	Content string            `json:"content"`
}

// TranscriptStorage keeps one JSON array of messages per user under
// "<prefix><userID>".
type TranscriptStorage struct {
	rdb       *redis.Client
	keyPrefix string
}

func NewTranscriptStorage(rdb *redis.Client, keyPrefix string) *TranscriptStorage {
	return &TranscriptStorage{
		rdb:       rdb,
		keyPrefix: keyPrefix,
	}
}

// Load returns the stored transcript of userID. Missing and malformed values
// both yield an empty transcript; only transport failures are returned.
func (t *TranscriptStorage) Load(ctx context.Context, userID uuid.UUID) ([]model.Message, error) {
	key := t.transcriptKey(userID)
	raw, err := t.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.Message{}, nil
		}
		return nil, &model.StorageError{Op: "load", UserID: userID, Err: err}
	}
	messages, err := decodeTranscript(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("ignoring malformed transcript")
		return []model.Message{}, nil
	}
	return messages, nil
}

func (t *TranscriptStorage) Save(ctx context.Context, userID uuid.UUID, messages []model.Message) error {
	payload, err := encodeTranscript(messages)
	if err != nil {
		return &model.StorageError{Op: "save", UserID: userID, Err: err}
	}
	if err = t.rdb.Set(ctx, t.transcriptKey(userID), payload, 0).Err(); err != nil {
		return &model.StorageError{Op: "save", UserID: userID, Err: err}
	}
	return nil
}

func (t *TranscriptStorage) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := t.rdb.Del(ctx, t.transcriptKey(userID)).Err(); err != nil {
		return &model.StorageError{Op: "clear", UserID: userID, Err: err}
	}
	return nil
}

func (t *TranscriptStorage) transcriptKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s", t.keyPrefix, userID.String())
}

func encodeTranscript(messages []model.Message) ([]byte, error) {
	messagesInt := make([]messageInternal, 0, len(messages))
	for _, msg := range messages {
		messagesInt = append(
			messagesInt, messageInternal{
				ID:      msg.ID.String(),
				Role:    msg.Role,
				Content: msg.Content,
			},
		)
	}
	payload, err := json.Marshal(messagesInt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transcript")
	}
	return payload, nil
}

func decodeTranscript(raw string) ([]model.Message, error) {
	var messagesInt []messageInternal
	if err := json.Unmarshal([]byte(raw), &messagesInt); err != nil {
		return nil, errors.Wrap(ErrMalformedTranscript, err.Error())
	}
	messages := make([]model.Message, 0, len(messagesInt))
	for i, msg := range messagesInt {
		id, err := uuid.Parse(msg.ID)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedTranscript, "message %d has id %q", i, msg.ID)
		}
		if !msg.Role.Valid() {
			return nil, errors.Wrapf(ErrMalformedTranscript, "message %d has role %q", i, msg.Role)
		}
		messages = append(
			messages, model.Message{
				ID:      id,
				Role:    msg.Role,
				Content: msg.Content,
			},
		)
	}
	return messages, nil
}
