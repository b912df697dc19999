package chatService

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/service"
	"github.com/KotFed0t/trading_assistant/utils"
)

const maxMessageLen = 4000

type ChatbotApi interface {
	Ask(ctx context.Context, identity model.Identity, message string) (model.ChatReply, error)
}

type ChatService struct {
	chatbot ChatbotApi
}

func New(chatbot ChatbotApi) *ChatService {
	return &ChatService{chatbot: chatbot}
}

func (s *ChatService) Ask(ctx context.Context, identity model.Identity, message string) (model.ChatReply, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ChatService.Ask"

	if identity.Email == "" {
		return model.ChatReply{}, service.ErrUnauthenticated
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return model.ChatReply{}, fmt.Errorf("%w: message is required", service.ErrValidation)
	}
	if len([]rune(message)) > maxMessageLen {
		return model.ChatReply{}, fmt.Errorf("%w: message is longer than %d characters", service.ErrValidation, maxMessageLen)
	}

	slog.Debug("Ask start", slog.String("rqID", rqID), slog.String("op", op))

	reply, err := s.chatbot.Ask(ctx, identity, message)
	if err != nil {
		return model.ChatReply{}, fmt.Errorf("ask chatbot: %w", err)
	}

	return reply, nil
}
