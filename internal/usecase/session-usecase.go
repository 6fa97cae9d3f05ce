package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/iamvkosarev/ai-chat-client/internal/metrics"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/iamvkosarev/ai-chat-client/pkg/local"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrReplyPending   = errors.New("a reply is still pending")
	ErrNotInitialized = errors.New("session is not initialized")
	ErrDisposed       = errors.New("session is disposed")
)

type TranscriptStorage interface {
	Load(ctx context.Context, userID uuid.UUID) ([]model.Message, error)
	Save(ctx context.Context, userID uuid.UUID, messages []model.Message) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type ReplyGateway interface {
	RequestReply(ctx context.Context, historyText, newMessageText string) (string, error)
}

// SessionState is a copy of the controller state after a transition.
// Version grows with every transition; observers may be called
// concurrently and should use it to discard stale states.
type SessionState struct {
	Version  uint64
	UserID   uuid.UUID
	Messages []model.Message
	Awaiting bool
	Notice   *model.Notice
}

type SessionUsecaseDeps struct {
	Transcripts TranscriptStorage
	Reply       ReplyGateway
	Metrics     *metrics.Metrics
}

type observer struct {
	id int
	fn func(SessionState)
}

// SessionUsecase owns the transcript of one identity. It is Idle or
// Awaiting; at most one reply is outstanding, and clearing or switching
// identity is only allowed while Idle.
type SessionUsecase struct {
	SessionUsecaseDeps
	language local.Language

	mu          sync.Mutex
	initialized bool
	disposed    bool
	userID      uuid.UUID
	messages    []model.Message
	awaiting    bool
	notice      *model.Notice
	version     uint64

	observers      []observer
	nextObserverID int
}

func NewSessionUsecase(deps SessionUsecaseDeps, language local.Language) *SessionUsecase {
	return &SessionUsecase{
		SessionUsecaseDeps: deps,
		language:           language,
	}
}

// Initialize restores the transcript of userID and enters Idle.
func (s *SessionUsecase) Initialize(ctx context.Context, userID uuid.UUID) error {
	return s.SwitchIdentity(ctx, userID)
}

// SwitchIdentity discards the in-memory transcript and restores the one of
// userID. Calling it on a fresh session is the same as Initialize.
func (s *SessionUsecase) SwitchIdentity(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.awaiting {
		s.mu.Unlock()
		return ErrReplyPending
	}
	if !s.initialized {
		s.Metrics.SessionStarted()
	} else if s.userID != userID {
		log.Info().Str("from_user_id", s.userID.String()).Str("to_user_id", userID.String()).Msg("switching identity")
	}
	s.initialized = true
	s.userID = userID
	s.messages = s.restore(ctx, userID)
	s.notice = nil
	state := s.transitionLocked()
	s.mu.Unlock()

	s.publish(state)
	return nil
}

// pendingTurn is a send whose optimistic message is already in the
// transcript and whose reply is still outstanding.
type pendingTurn struct {
	userID      uuid.UUID
	userMsg     model.Message
	historyText string
}

// SendMessage appends text as an optimistic user message and asks the
// gateway for a reply using the history settled before that append. On
// success the assistant message is committed and returned; on failure the
// user message is rolled back and a *GenerationError is returned.
func (s *SessionUsecase) SendMessage(ctx context.Context, text string) (model.Message, error) {
	turn, err := s.beginSend(ctx, text)
	if err != nil {
		return model.Message{}, err
	}
	return s.completeSend(ctx, turn)
}

// beginSend runs the guarded part of a send: it either moves the session to
// Awaiting with the optimistic message appended or rejects text.
func (s *SessionUsecase) beginSend(ctx context.Context, text string) (pendingTurn, error) {
	if strings.TrimSpace(text) == "" {
		return pendingTurn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return pendingTurn{}, err
	}
	if s.awaiting {
		s.mu.Unlock()
		s.Metrics.RecordTurn(metrics.OutcomeIgnored)
		return pendingTurn{}, ErrReplyPending
	}
	turn := pendingTurn{
		userID:      s.userID,
		userMsg:     model.NewMessage(model.MessageRoleUser, text),
		historyText: FormatHistory(s.messages),
	}
	s.messages = append(s.messages, turn.userMsg)
	s.awaiting = true
	s.notice = nil
	s.persistLocked(ctx)
	state := s.transitionLocked()
	s.mu.Unlock()

	s.publish(state)
	return turn, nil
}

// completeSend waits for the reply of turn and commits or rolls back.
func (s *SessionUsecase) completeSend(ctx context.Context, turn pendingTurn) (model.Message, error) {
	reply, replyErr := s.Reply.RequestReply(ctx, turn.historyText, turn.userMsg.Content)

	// The caller's context may have expired together with the request; the
	// outcome still has to reach storage.
	persistCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	s.awaiting = false
	if s.disposed {
		s.mu.Unlock()
		return model.Message{}, ErrDisposed
	}
	if replyErr != nil {
		var genErr *GenerationError
		if !errors.As(replyErr, &genErr) {
			genErr = &GenerationError{Reason: GenerationReasonUnreachable, Err: replyErr}
		}
		s.rollbackLocked(turn.userMsg.ID)
		s.notice = generationNotice(genErr, s.language)
		s.persistLocked(persistCtx)
		state := s.transitionLocked()
		s.mu.Unlock()

		log.Warn().Err(genErr).Str("user_id", turn.userID.String()).Str("reason", string(genErr.Reason)).
			Msg("reply generation failed, message rolled back")
		s.Metrics.RecordTurn(string(genErr.Reason))
		s.publish(state)
		return model.Message{}, genErr
	}

	assistantMsg := model.NewMessage(model.MessageRoleAssistant, reply)
	s.messages = append(s.messages, assistantMsg)
	s.persistLocked(persistCtx)
	state := s.transitionLocked()
	s.mu.Unlock()

	s.Metrics.RecordTurn(metrics.OutcomeSuccess)
	s.publish(state)
	return assistantMsg, nil
}

// ClearConversation empties the transcript and removes its stored copy.
func (s *SessionUsecase) ClearConversation(ctx context.Context) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.awaiting {
		s.mu.Unlock()
		return ErrReplyPending
	}
	s.messages = []model.Message{}
	s.notice = nil
	if err := s.Transcripts.Clear(ctx, s.userID); err != nil {
		log.Error().Err(err).Str("user_id", s.userID.String()).Msg("failed to clear stored transcript")
		s.Metrics.RecordStorageError("clear")
		s.notice = storageNotice(s.language)
	}
	state := s.transitionLocked()
	s.mu.Unlock()

	s.publish(state)
	return nil
}

// Dispose detaches all observers. Any later call fails with ErrDisposed;
// a reply that arrives after Dispose is dropped.
func (s *SessionUsecase) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	if s.initialized {
		s.Metrics.SessionEnded()
	}
	s.disposed = true
	s.messages = nil
	s.observers = nil
}

// Subscribe registers fn to receive the state after every transition.
// fn must not block on other session operations.
func (s *SessionUsecase) Subscribe(fn func(SessionState)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObserverID
	s.nextObserverID++
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *SessionUsecase) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *SessionUsecase) Messages() []model.Message {
	return s.State().Messages
}

func (s *SessionUsecase) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

func (s *SessionUsecase) UserID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *SessionUsecase) readyLocked() error {
	if s.disposed {
		return ErrDisposed
	}
	if !s.initialized {
		return ErrNotInitialized
	}
	return nil
}

// restore loads the stored transcript. Storage failures start an empty
// transcript, and a trailing user message without a reply is dropped.
func (s *SessionUsecase) restore(ctx context.Context, userID uuid.UUID) []model.Message {
	messages, err := s.Transcripts.Load(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to load transcript, starting empty")
		s.Metrics.RecordStorageError("load")
		return []model.Message{}
	}
	for len(messages) > 0 && messages[len(messages)-1].Role == model.MessageRoleUser {
		log.Info().Str("user_id", userID.String()).Msg("dropping unanswered message from restored transcript")
		messages = messages[:len(messages)-1]
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages
}

// persistLocked saves the transcript. A failed save keeps the in-memory
// transcript and raises a storage notice unless another notice is set.
func (s *SessionUsecase) persistLocked(ctx context.Context) {
	if err := s.Transcripts.Save(ctx, s.userID, s.messages); err != nil {
		log.Error().Err(err).Str("user_id", s.userID.String()).Msg("failed to save transcript")
		s.Metrics.RecordStorageError("save")
		if s.notice == nil {
			s.notice = storageNotice(s.language)
		}
	}
}

func (s *SessionUsecase) rollbackLocked(id uuid.UUID) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			return
		}
	}
}

func (s *SessionUsecase) transitionLocked() SessionState {
	s.version++
	return s.stateLocked()
}

func (s *SessionUsecase) stateLocked() SessionState {
	messages := make([]model.Message, len(s.messages))
	copy(messages, s.messages)
	var notice *model.Notice
	if s.notice != nil {
		n := *s.notice
		notice = &n
	}
	return SessionState{
		Version:  s.version,
		UserID:   s.userID,
		Messages: messages,
		Awaiting: s.awaiting,
		Notice:   notice,
	}
}

func (s *SessionUsecase) publish(state SessionState) {
	s.mu.Lock()
	observers := make([]observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(state)
	}
}
