package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/service"
	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes = 1 << 20
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type PortfolioService interface {
	GetPortfolio(ctx context.Context, identity model.Identity) (model.PortfolioResponse, error)
	PersistPortfolio(ctx context.Context, identity model.Identity) (int64, error)
	GenerateReport(ctx context.Context, identity model.Identity) (model.Report, error)
	GetState(ctx context.Context, identity model.Identity) (json.RawMessage, error)
	SetState(ctx context.Context, identity model.Identity, state json.RawMessage) (json.RawMessage, error)
}

type MarketService interface {
	GetPrices(ctx context.Context, symbols []string) model.Prices
}

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (model.AuthResult, error)
	Login(ctx context.Context, username, password string) (model.AuthResult, error)
}

type ContentService interface {
	GetArticles(ctx context.Context) ([]model.Article, error)
	DeleteArticle(ctx context.Context, identity model.Identity, id int64) (bool, error)
	GetAgentData(ctx context.Context, economicTerm, symbol string) (model.AgentData, error)
	AddCalendarEvent(ctx context.Context, identity model.Identity, title, url string) (model.CalendarEvent, error)
}

type ChatService interface {
	Ask(ctx context.Context, identity model.Identity, message string) (model.ChatReply, error)
}

type Controller struct {
	portfolio PortfolioService
	market    MarketService
	auth      AuthService
	content   ContentService
	chat      ChatService
}

func NewController(
	portfolio PortfolioService,
	market MarketService,
	auth AuthService,
	content ContentService,
	chat ChatService,
) *Controller {
	return &Controller{
		portfolio: portfolio,
		market:    market,
		auth:      auth,
		content:   content,
		chat:      chat,
	}
}

func (ctrl *Controller) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", ctrl.Register)
		r.Post("/login", ctrl.Login)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/InvestmentAnalysisPortfolio", func(r chi.Router) {
			r.Get("/", ctrl.GetPortfolio)
			r.Post("/persist", ctrl.PersistPortfolio)
			r.Get("/report", ctrl.GetPortfolioReport)
		})

		r.Get("/prices/{symbols}", ctrl.GetPrices)

		r.Get("/state", ctrl.GetState)
		r.Put("/state", ctrl.SetState)

		r.Get("/articles", ctrl.GetArticles)
		r.Delete("/articles/{id}", ctrl.DeleteArticle)

		r.Get("/dataagent", ctrl.GetAgentData)
		r.Post("/calender/addEvent", ctrl.AddCalendarEvent)

		r.Post("/chat", ctrl.Chat)
	})
}

func identityFromRequest(r *http.Request) model.Identity {
	identity, _ := utils.GetIdentityFromCtx(r.Context())
	return identity
}

func (ctrl *Controller) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	resp, err := ctrl.portfolio.GetPortfolio(r.Context(), identityFromRequest(r))
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (ctrl *Controller) PersistPortfolio(w http.ResponseWriter, r *http.Request) {
	updated, err := ctrl.portfolio.PersistPortfolio(r.Context(), identityFromRequest(r))
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (ctrl *Controller) GetPortfolioReport(w http.ResponseWriter, r *http.Request) {
	report, err := ctrl.portfolio.GenerateReport(r.Context(), identityFromRequest(r))
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	if report.Link != "" {
		writeJSON(w, http.StatusOK, map[string]string{"link": report.Link})
		return
	}

	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Content)
}

func (ctrl *Controller) GetPrices(w http.ResponseWriter, r *http.Request) {
	symbols := strings.Split(chi.URLParam(r, "symbols"), ",")

	prices := ctrl.market.GetPrices(r.Context(), symbols)
	if len(prices.Prices) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "at least one symbol is required")
		return
	}

	writeJSON(w, http.StatusOK, prices)
}

func (ctrl *Controller) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := ctrl.portfolio.GetState(r.Context(), identityFromRequest(r))
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"redisState": nullIfEmpty(state)})
}

func (ctrl *Controller) SetState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "can't read request body")
		return
	}

	state, err := ctrl.portfolio.SetState(r.Context(), identityFromRequest(r), body)
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"redisState": nullIfEmpty(state)})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Message string     `json:"message"`
	User    model.User `json:"user"`
	Token   string     `json:"token"`
}

func (ctrl *Controller) Register(w http.ResponseWriter, r *http.Request) {
	req := registerRequest{}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := ctrl.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{Message: "User registered", User: result.User, Token: result.Token})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (ctrl *Controller) Login(w http.ResponseWriter, r *http.Request) {
	req := loginRequest{}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := ctrl.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (ctrl *Controller) GetArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := ctrl.content.GetArticles(r.Context())
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, articles)
}

func (ctrl *Controller) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "article id must be an integer")
		return
	}

	deleted, err := ctrl.content.DeleteArticle(r.Context(), identityFromRequest(r), id)
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// GetAgentData answers with the bare article list unless a symbol is requested.
func (ctrl *Controller) GetAgentData(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	symbol := query.Get("symbol")

	data, err := ctrl.content.GetAgentData(r.Context(), query.Get("economic_term"), symbol)
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	if strings.TrimSpace(symbol) == "" {
		writeJSON(w, http.StatusOK, data.Articles)
		return
	}

	writeJSON(w, http.StatusOK, data)
}

type calendarEventRequest struct {
	Title string `json:"title"`
	Url   string `json:"url"`
}

func (ctrl *Controller) AddCalendarEvent(w http.ResponseWriter, r *http.Request) {
	req := calendarEventRequest{}
	if !decodeBody(w, r, &req) {
		return
	}

	event, err := ctrl.content.AddCalendarEvent(r.Context(), identityFromRequest(r), req.Title, req.Url)
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (ctrl *Controller) Chat(w http.ResponseWriter, r *http.Request) {
	req := chatRequest{}
	if !decodeBody(w, r, &req) {
		return
	}

	reply, err := ctrl.chat.Ask(r.Context(), identityFromRequest(r), req.Message)
	if err != nil {
		ctrl.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// handleError maps service errors onto HTTP statuses. Anything unrecognized is a 500 carrying the error text.
func (ctrl *Controller) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "authentication required")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, service.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "USER EXIST ALREADY")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	default:
		slog.Error(
			"request failed",
			slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body")
		return false
	}
	return true
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", slog.String("err", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
