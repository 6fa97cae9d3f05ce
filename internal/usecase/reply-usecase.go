package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/iamvkosarev/ai-chat-client/internal/metrics"
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/pkg/errors"
)

const (
	historyPrefixUser      = "User: "
	historyPrefixAssistant = "Assistant: "
)

var (
	ErrEmptyCompletion = errors.New("generator returned no reply")
)

type GenerationReason string

const (
	GenerationReasonNoResponse  = GenerationReason("no_response")
	GenerationReasonUnreachable = GenerationReason("unreachable")
)

// GenerationError is returned by the reply gateway for every failed turn.
type GenerationError struct {
	Reason GenerationReason
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("reply generation failed: %s", e.Reason)
	}
	return fmt.Sprintf("reply generation failed: %s: %v", e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ReplyGenerator is the model side of a turn: settled history and the new
// message in, reply text out.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, historyText, currentMessage string) (string, error)
}

type ReplyUsecaseDeps struct {
	Generator ReplyGenerator
	Metrics   *metrics.Metrics
}

// ReplyUsecase makes exactly one generator call per turn and classifies the
// outcome. Retries are left to callers.
type ReplyUsecase struct {
	ReplyUsecaseDeps
	cfg config.Reply
}

func NewReplyUsecase(deps ReplyUsecaseDeps, cfg config.Reply) *ReplyUsecase {
	return &ReplyUsecase{
		ReplyUsecaseDeps: deps,
		cfg:              cfg,
	}
}

func (r *ReplyUsecase) RequestReply(ctx context.Context, historyText, newMessageText string) (reply string, err error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		r.Metrics.RecordReply(time.Since(start))
		if p := recover(); p != nil {
			reply = ""
			err = &GenerationError{
				Reason: GenerationReasonUnreachable,
				Err:    errors.Errorf("generator panicked: %v", p),
			}
		}
	}()

	reply, err = r.Generator.GenerateReply(ctx, historyText, newMessageText)
	if err != nil {
		if errors.Is(err, ErrEmptyCompletion) {
			return "", &GenerationError{Reason: GenerationReasonNoResponse, Err: err}
		}
		return "", &GenerationError{Reason: GenerationReasonUnreachable, Err: err}
	}
	if strings.TrimSpace(reply) == "" {
		return "", &GenerationError{Reason: GenerationReasonNoResponse, Err: ErrEmptyCompletion}
	}
	return reply, nil
}

// FormatHistory renders messages as newline-joined "User: ..." and
// "Assistant: ..." lines in transcript order.
func FormatHistory(messages []model.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.MessageRoleUser:
			lines = append(lines, historyPrefixUser+msg.Content)
		default:
			lines = append(lines, historyPrefixAssistant+msg.Content)
		}
	}
	return strings.Join(lines, "\n")
}
