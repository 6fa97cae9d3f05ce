package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iamvkosarev/ai-chat-client/config"
	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const (
	openAISystemPrompt = "You are a helpful AI chatbot. " +
		"Respond to the user based on the current message and the conversation history."
	openAIPromptFormat   = "Message History:\n%s\n\nCurrent Message:\n%s"
	openAIFallbackTokens = "cl100k_base"
)

type OpenAIUsecase struct {
	cfg    config.OpenAI
	client *openai.Client

	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	countTokens  func(text string) (int, error)
}

func NewOpenAIUsecase(cfg config.OpenAI) *OpenAIUsecase {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	o := &OpenAIUsecase{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
	}
	o.countTokens = o.countTiktokenTokens
	return o
}

func (o *OpenAIUsecase) GenerateReply(ctx context.Context, historyText, currentMessage string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.cfg.OpenAIModel,
		Temperature: o.cfg.ModelTemperature,
		TopP:        1,
		N:           1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: o.systemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(openAIPromptFormat, o.trimHistory(historyText), currentMessage),
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "failed to create chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func (o *OpenAIUsecase) systemPrompt() string {
	if o.cfg.Persona == "" {
		return openAISystemPrompt
	}
	return openAISystemPrompt + "\n\n" + o.cfg.Persona
}

// trimHistory drops the oldest turns until the history fits
// MaxHistoryTokens. A turn starts at a "User: " or "Assistant: " line, so
// multi-line messages are dropped whole.
func (o *OpenAIUsecase) trimHistory(historyText string) string {
	if o.cfg.MaxHistoryTokens <= 0 || historyText == "" {
		return historyText
	}
	turns := splitHistoryTurns(historyText)
	dropped := 0
	for len(turns) > 0 {
		tokenCount, err := o.countTokens(strings.Join(turns, "\n"))
		if err != nil {
			log.Warn().Err(err).Msg("failed to count history tokens, sending history untrimmed")
			return historyText
		}
		if tokenCount <= o.cfg.MaxHistoryTokens {
			break
		}
		turns = turns[1:]
		dropped++
	}
	if dropped > 0 {
		log.Debug().Int("dropped_turns", dropped).Msg("history trimmed due to token limit")
	}
	return strings.Join(turns, "\n")
}

func (o *OpenAIUsecase) countTiktokenTokens(text string) (int, error) {
	o.encodingOnce.Do(
		func() {
			encoding, err := tiktoken.EncodingForModel(o.cfg.OpenAIModel)
			if err != nil {
				encoding, err = tiktoken.GetEncoding(openAIFallbackTokens)
			}
			if err != nil {
				log.Warn().Err(err).Str("model", o.cfg.OpenAIModel).Msg("token encoding unavailable")
				return
			}
			o.encoding = encoding
		},
	)
	if o.encoding == nil {
		return 0, errors.New("token encoding unavailable")
	}
	return len(o.encoding.Encode(text, nil, nil)), nil
}

func splitHistoryTurns(historyText string) []string {
	turns := make([]string, 0)
	for _, line := range strings.Split(historyText, "\n") {
		startsTurn := strings.HasPrefix(line, historyPrefixUser) || strings.HasPrefix(line, historyPrefixAssistant)
		if startsTurn || len(turns) == 0 {
			turns = append(turns, line)
			continue
		}
		turns[len(turns)-1] += "\n" + line
	}
	return turns
}
