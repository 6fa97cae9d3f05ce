package usecase

import (
	"context"
	"fmt"
)

// EchoUsecase answers without any model, for offline runs.
type EchoUsecase struct{}

func NewEchoUsecase() *EchoUsecase {
	return &EchoUsecase{}
}

func (e *EchoUsecase) GenerateReply(ctx context.Context, _ string, currentMessage string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("You said: %s", currentMessage), nil
}
