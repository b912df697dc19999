package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KotFed0t/trading_assistant/internal/model"
	"github.com/KotFed0t/trading_assistant/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parserFunc func(token string) (model.Identity, error)

func (f parserFunc) ParseToken(token string) (model.Identity, error) {
	return f(token)
}

func TestLogger_RequestID(t *testing.T) {
	var seen string
	h := Logger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = utils.GetRequestIDFromCtx(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "rq-1")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "rq-1", seen)
		assert.Equal(t, "rq-1", rec.Header().Get(RequestIDHeader))
	})

	t.Run("generates missing id", func(t *testing.T) {
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})
}

func TestAuth(t *testing.T) {
	alice := model.Identity{Username: "alice", Email: "alice@example.com", Role: model.RoleUser}
	parser := parserFunc(func(token string) (model.Identity, error) {
		if token == "good" {
			return alice, nil
		}
		return model.Identity{}, errors.New("signature is invalid")
	})

	var (
		called   bool
		identity model.Identity
		found    bool
	)
	h := Auth(parser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		identity, found = utils.GetIdentityFromCtx(r.Context())
	}))

	tests := []struct {
		name       string
		header     string
		wantCalled bool
		wantFound  bool
		wantCode   int
	}{
		{name: "anonymous", header: "", wantCalled: true, wantFound: false, wantCode: http.StatusOK},
		{name: "valid token", header: "Bearer good", wantCalled: true, wantFound: true, wantCode: http.StatusOK},
		{name: "invalid token", header: "Bearer bad", wantCode: http.StatusForbidden},
		{name: "wrong scheme", header: "Basic good", wantCode: http.StatusForbidden},
		{name: "empty bearer", header: "Bearer ", wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, found, identity = false, false, model.Identity{}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, alice, identity)
			}
			if tt.wantCode == http.StatusForbidden {
				assert.JSONEq(t, `{"error":"forbidden","message":"Failed to authenticate token"}`, rec.Body.String())
			}
		})
	}
}
