package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/utils"
	chiMW "github.com/go-chi/chi/v5/middleware"
)

const RequestIDHeader = "X-Request-Id"

type TokenParser interface {
	ParseToken(token string) (model.Identity, error)
}

// Logger attaches a request id to the request context and logs the request outcome.
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()

			ctx := utils.CreateCtxWithRqID(r.Context(), r.Header.Get(RequestIDHeader))
			rqID := utils.GetRequestIDFromCtx(ctx)
			w.Header().Set(RequestIDHeader, rqID)

			slog.Info(
				"start request",
				slog.String("rqID", rqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			ww := chiMW.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

// Auth resolves the bearer token into a caller identity. Requests without a token pass through
// anonymous; a token that fails verification is rejected.
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				reject(w)
				return
			}

			identity, err := parser.ParseToken(token)
			if err != nil {
				slog.Debug("token rejected", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
				reject(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.CtxWithIdentity(r.Context(), identity)))
		})
	}
}

func reject(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "forbidden",
		"message": "Failed to authenticate token",
	})
}
