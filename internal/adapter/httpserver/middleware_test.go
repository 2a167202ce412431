package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/deployscloud/internal/auth"
	"github.com/pscheid92/deployscloud/internal/domain"
	"github.com/pscheid92/deployscloud/internal/platform/correlation"
	apperrors "github.com/pscheid92/deployscloud/internal/platform/errors"
)

func callErrorMiddleware(t *testing.T, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	// the middleware writes the error itself
	require.NoError(t, ErrorHandlingMiddleware()(handler)(c))
	return rec
}

func TestErrorMiddleware_StructuredError(t *testing.T) {
	rec := callErrorMiddleware(t, func(echo.Context) error {
		return apperrors.ValidationError("invalid input")
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestErrorMiddleware_PlainErrorBecomesInternal(t *testing.T) {
	rec := callErrorMiddleware(t, func(echo.Context) error {
		return errors.New("standard error")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.NotContains(t, rec.Body.String(), "standard error")
}

func TestErrorMiddleware_PassesHTTPErrorsThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	err := ErrorHandlingMiddleware()(func(echo.Context) error {
		return echo.ErrForbidden
	})(c)

	assert.ErrorIs(t, err, echo.ErrForbidden)
}

func TestErrorMiddleware_ContextFields(t *testing.T) {
	rec := callErrorMiddleware(t, func(echo.Context) error {
		return apperrors.NotFoundError("unknown OAuth provider").WithField("provider", "gitlab")
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "gitlab", resp.Context["provider"])
}

func TestErrorMiddleware_AllTypes(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperrors.Error
		wantStatus int
	}{
		{"validation", apperrors.ValidationError("invalid"), http.StatusBadRequest},
		{"unauthorized", apperrors.UnauthorizedError("who are you"), http.StatusUnauthorized},
		{"not_found", apperrors.NotFoundError("missing"), http.StatusNotFound},
		{"conflict", apperrors.ConflictError("duplicate"), http.StatusConflict},
		{"internal", apperrors.InternalError("failed", errors.New("cause")), http.StatusInternalServerError},
		{"external", apperrors.ExternalError("coolify failed", errors.New("timeout")), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := callErrorMiddleware(t, func(echo.Context) error { return tt.err })

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.err.Type, resp.Type)
		})
	}
}

func TestCorrelationMiddleware(t *testing.T) {
	run := func(t *testing.T, inbound string) (ctxID, header string) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if inbound != "" {
			req.Header.Set(correlation.HeaderRequestID, inbound)
		}
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(req, rec)

		err := correlationMiddleware(func(c echo.Context) error {
			ctxID, _ = correlation.ID(c.Request().Context())
			return nil
		})(c)
		require.NoError(t, err)
		return ctxID, rec.Header().Get(correlation.HeaderRequestID)
	}

	t.Run("reuses inbound id", func(t *testing.T) {
		ctxID, header := run(t, "edge-1234")
		assert.Equal(t, "edge-1234", ctxID)
		assert.Equal(t, "edge-1234", header)
	})

	t.Run("generates id", func(t *testing.T) {
		ctxID, header := run(t, "")
		assert.NotEmpty(t, ctxID)
		assert.Equal(t, ctxID, header)
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		ctxID, _ := run(t, strings.Repeat("x", 200))
		assert.NotEqual(t, strings.Repeat("x", 200), ctxID)
	})
}

func TestIdentify_DiscardsRejectedCredential(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(context.Context, auth.Request) auth.Resolution {
			return auth.Resolution{DiscardCredential: true}
		},
	}
	srv := newTestServer(t, Dependencies{Resolver: resolver})
	b := newBrowser(t, srv)

	// log in through the real handler so the session holds a credential
	withCred := &mockResolver{}
	srv.resolver = withCred
	b.postForm("/login/token", url.Values{"token": {"1|abc"}})
	require.True(t, b.hasSession())

	srv.resolver = resolver
	resp := decodeSession(t, b.get("/api/session"))

	assert.False(t, resp.Authenticated)
	assert.False(t, b.hasSession())
}

func TestRequireAPIAuth(t *testing.T) {
	b := newBrowser(t, newTestServer(t, Dependencies{}))

	rec := b.get("/api/dashboard/summary")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeUnauthorized, resp.Type)
}

func TestRequireAuth_RedirectsToLogin(t *testing.T) {
	loader := &mockLoader{}
	b := newBrowser(t, newTestServer(t, Dependencies{Dashboard: loader}))

	rec := b.get("/dashboard")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, loader.calls())
}

func TestIdentityFrom(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Nil(t, identityFrom(c))

	id := &domain.Identity{Method: domain.AuthMethodToken}
	c.Set(ctxKeyIdentity, id)
	assert.Same(t, id, identityFrom(c))
}
