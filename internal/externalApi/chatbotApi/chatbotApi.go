package chatbotApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/internal/externalApi"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/go-resty/resty/v2"
	"github.com/kaptinlin/jsonrepair"
)

const chatPath = "/chat"

type ChatbotApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *ChatbotApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.ChatbotApi.Timeout).
		SetBaseURL(cfg.API.ChatbotApi.Url)
	return &ChatbotApi{client: client}
}

type chatRequest struct {
	Message   string `json:"message"`
	UserEmail string `json:"user_email"`
	Username  string `json:"username,omitempty"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Ask forwards message to the chatbot service on behalf of identity.
func (a *ChatbotApi) Ask(ctx context.Context, identity model.Identity, message string) (reply model.ChatReply, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ChatbotApi.Ask"

	slog.Debug("Ask start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("Ask failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("Ask completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("X-Request-Id", rqID).
		SetBody(chatRequest{Message: message, UserEmail: identity.Email, Username: identity.Username}).
		Post(chatPath)
	if err != nil {
		return model.ChatReply{}, fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return model.ChatReply{}, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode(), externalApi.ErrBadResponse)
	}

	text := string(resp.Body())
	parsed := chatResponse{}
	if err = json.Unmarshal(resp.Body(), &parsed); err == nil && parsed.Reply != "" {
		text = parsed.Reply
	}

	reply.Reply = strings.TrimSpace(text)
	reply.Data = extractJSON(reply.Reply)

	return reply, nil
}

// extractJSON returns the repaired JSON payload of a reply that carries one, or nil.
func extractJSON(text string) json.RawMessage {
	candidate := strings.TrimSpace(text)
	if fenced, ok := strings.CutPrefix(candidate, "```json"); ok {
		candidate = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(fenced), "```"))
	}

	if !strings.HasPrefix(candidate, "{") && !strings.HasPrefix(candidate, "[") {
		return nil
	}

	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate)
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil || !json.Valid([]byte(repaired)) {
		slog.Debug("chatbot reply is not repairable json", slog.Any("err", err))
		return nil
	}

	return json.RawMessage(repaired)
}
