package in_memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
)

// TranscriptStorage keeps transcripts for the lifetime of the process only.
type TranscriptStorage struct {
	mu          sync.RWMutex
	transcripts map[uuid.UUID][]model.Message
}

func NewTranscriptStorage() *TranscriptStorage {
	return &TranscriptStorage{
		transcripts: make(map[uuid.UUID][]model.Message),
	}
}

func (t *TranscriptStorage) Load(_ context.Context, userID uuid.UUID) ([]model.Message, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	messages := make([]model.Message, len(t.transcripts[userID]))
	copy(messages, t.transcripts[userID])
	return messages, nil
}

func (t *TranscriptStorage) Save(_ context.Context, userID uuid.UUID, messages []model.Message) error {
	copied := make([]model.Message, len(messages))
	copy(copied, messages)

	t.mu.Lock()
	t.transcripts[userID] = copied
	t.mu.Unlock()
	return nil
}

func (t *TranscriptStorage) Clear(_ context.Context, userID uuid.UUID) error {
	t.mu.Lock()
	delete(t.transcripts, userID)
	t.mu.Unlock()
	return nil
}
