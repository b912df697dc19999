package authService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/KotFed0t/trading_assistant/config"
	"github.com/KotFed0t/trading_assistant/data/repository"
	"github.com/KotFed0t/trading_assistant/internal/converter/dbConverter"
	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/internal/model/dbModel"
	"github.com/KotFed0t/trading_assistant/internal/service"
	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	InsertUser(ctx context.Context, user dbModel.User) (userID int64, err error)
	GetUserByUsername(ctx context.Context, username string) (dbModel.User, error)
}

type claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	cfg  *config.Config
	repo Repository
	now  func() time.Time
}

func New(cfg *config.Config, repo Repository) *AuthService {
	return &AuthService{cfg: cfg, repo: repo, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (result model.AuthResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Register"

	slog.Debug("Register start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		if err != nil {
			slog.Warn("Register failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return model.AuthResult{}, fmt.Errorf("%w: all fields are required", service.ErrValidation)
	}
	if _, parseErr := mail.ParseAddress(email); parseErr != nil {
		return model.AuthResult{}, fmt.Errorf("%w: invalid email", service.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost())
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	dbUser := dbModel.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     model.RoleUser,
	}

	_, err = s.repo.InsertUser(ctx, dbUser)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.AuthResult{}, service.ErrAlreadyExists
		}
		return model.AuthResult{}, err
	}

	user := dbConverter.ConvertUser(dbUser)
	token, err := s.issueToken(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	return model.AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (result model.AuthResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AuthService.Login"

	slog.Debug("Login start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))

	dbUser, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.AuthResult{}, service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AuthResult{}, err
	}

	if err = bcrypt.CompareHashAndPassword([]byte(dbUser.Password), []byte(password)); err != nil {
		return model.AuthResult{}, service.ErrInvalidCredentials
	}

	user := dbConverter.ConvertUser(dbUser)
	token, err := s.issueToken(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	slog.Debug("Login completed", slog.String("rqID", rqID), slog.String("op", op))

	return model.AuthResult{User: user, Token: token}, nil
}

// ParseToken verifies a bearer token and returns the identity it was issued for.
func (s *AuthService) ParseToken(token string) (model.Identity, error) {
	parsed := claims{}
	_, err := jwt.ParseWithClaims(
		token,
		&parsed,
		func(t *jwt.Token) (any, error) { return []byte(s.cfg.Auth.JwtSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %w", service.ErrUnauthenticated, err)
	}

	if parsed.Email == "" {
		return model.Identity{}, fmt.Errorf("%w: token has no email", service.ErrUnauthenticated)
	}

	return model.Identity{
		Username: parsed.Username,
		Email:    parsed.Email,
		Role:     parsed.Role,
	}, nil
}

func (s *AuthService) issueToken(user model.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Auth.TokenTTL)),
		},
	})

	signed, err := token.SignedString([]byte(s.cfg.Auth.JwtSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (s *AuthService) bcryptCost() int {
	if s.cfg.Auth.BcryptCost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return s.cfg.Auth.BcryptCost
}
