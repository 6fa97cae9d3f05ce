package usecase

import (
	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/iamvkosarev/ai-chat-client/pkg/local"
	"github.com/pkg/errors"
)

var (
	TextNoResponse = local.NewSet(
		"Failed to get AI response.",
		local.NewTrans(local.Rus, "Не удалось получить ответ ИИ."),
	)
	TextUnreachable = local.NewSet(
		"Failed to reach the server. Please try again.",
		local.NewTrans(local.Rus, "Не удалось связаться с сервером. Попробуйте ещё раз."),
	)
	TextSaveFailed = local.NewSet(
		"Failed to save the conversation. It is kept for this session only.",
		local.NewTrans(local.Rus, "Не удалось сохранить переписку. Она доступна только в этой сессии."),
	)
	TextReplyPending = local.NewSet(
		"Please wait for the current reply.",
		local.NewTrans(local.Rus, "Дождитесь текущего ответа."),
	)
	TextWelcome = local.NewSet(
		"Welcome, %s! Start a conversation by typing a message below.",
		local.NewTrans(local.Rus, "Добро пожаловать, %s! Напишите сообщение, чтобы начать разговор."),
	)
)

// NoticeText returns the user-visible text for an error returned by a
// session transition.
func NoticeText(err error, language local.Language) string {
	var genErr *GenerationError
	switch {
	case errors.As(err, &genErr) && genErr.Reason == GenerationReasonNoResponse:
		return TextNoResponse.Text(language)
	case errors.As(err, &genErr):
		return TextUnreachable.Text(language)
	case errors.Is(err, ErrReplyPending):
		return TextReplyPending.Text(language)
	default:
		return TextUnreachable.Text(language)
	}
}

func generationNotice(err *GenerationError, language local.Language) *model.Notice {
	return &model.Notice{
		Kind: model.NoticeKindGeneration,
		Text: NoticeText(err, language),
	}
}

func storageNotice(language local.Language) *model.Notice {
	return &model.Notice{
		Kind: model.NoticeKindStorage,
		Text: TextSaveFailed.Text(language),
	}
}
