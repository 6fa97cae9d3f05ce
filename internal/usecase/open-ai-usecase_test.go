package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIUsecase {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIUsecase(
		config.OpenAI{
			OpenAIAPIKey:     "sk-test",
			OpenAIModel:      "gpt-test",
			OpenAIBaseURL:    srv.URL + "/v1",
			ModelTemperature: 0.5,
		},
	)
}

func writeCompletion(t *testing.T, w http.ResponseWriter, contents ...string) {
	t.Helper()
	resp := openai.ChatCompletionResponse{
		ID:     "chatcmpl-test",
		Object: "chat.completion",
		Model:  "gpt-test",
	}
	for i, content := range contents {
		resp.Choices = append(
			resp.Choices, openai.ChatCompletionChoice{
				Index: i,
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: content,
				},
				FinishReason: openai.FinishReasonStop,
			},
		)
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestOpenAIGenerateReply(t *testing.T) {
	var got openai.ChatCompletionRequest
	generator := newTestOpenAI(
		t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeCompletion(t, w, "hi there")
		},
	)

	reply, err := generator.GenerateReply(context.Background(), "User: hi\nAssistant: hello", "how are you")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(
		t,
		"Message History:\nUser: hi\nAssistant: hello\n\nCurrent Message:\nhow are you",
		got.Messages[1].Content,
	)
}

func TestOpenAIGenerateReplyEmpty(t *testing.T) {
	for name, contents := range map[string][]string{"no choices": nil, "blank content": {" "}} {
		t.Run(name, func(t *testing.T) {
			generator := newTestOpenAI(
				t, func(w http.ResponseWriter, r *http.Request) {
					writeCompletion(t, w, contents...)
				},
			)

			_, err := generator.GenerateReply(context.Background(), "", "hello")
			assert.True(t, errors.Is(err, ErrEmptyCompletion))
		})
	}
}

func TestOpenAIGenerateReplyServerError(t *testing.T) {
	generator := newTestOpenAI(
		t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		},
	)

	_, err := generator.GenerateReply(context.Background(), "", "hello")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyCompletion))
}

func TestOpenAITrimHistory(t *testing.T) {
	generator := NewOpenAIUsecase(config.OpenAI{MaxHistoryTokens: 5})
	generator.countTokens = func(text string) (int, error) {
		return len(strings.Fields(text)), nil
	}

	history := "User: one two\nAssistant: three\nfour\nUser: five"
	assert.Equal(t, "Assistant: three\nfour\nUser: five", generator.trimHistory(history))

	generator.cfg.MaxHistoryTokens = 0
	assert.Equal(t, history, generator.trimHistory(history))

	generator.cfg.MaxHistoryTokens = 5
	generator.countTokens = func(string) (int, error) {
		return 0, errors.New("no encoding")
	}
	assert.Equal(t, history, generator.trimHistory(history))
}

func TestSplitHistoryTurns(t *testing.T) {
	turns := splitHistoryTurns("User: a\nb\nAssistant: c")
	assert.Equal(t, []string{"User: a\nb", "Assistant: c"}, turns)
}
