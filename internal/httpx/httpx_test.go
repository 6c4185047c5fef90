package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("bad quantity: %w", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrInvalidCredential, http.StatusBadRequest},
		{fmt.Errorf("order %q: %w", "x", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrAuthentication, http.StatusUnauthorized},
		{domain.ErrAuthorization, http.StatusForbidden},
		{domain.ErrDataIntegrity, http.StatusConflict},
		{fmt.Errorf("get order: %w: %w", domain.ErrUpstream, errors.New("conn refused")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}

func TestWriteErrorHidesServerErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, discard, fmt.Errorf("db: %w: dial tcp refused", domain.ErrUpstream))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body MessageBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "internal server error", body.Message)
}

func TestWriteErrorExposesClientErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, discard, fmt.Errorf("invalid category: %w", domain.ErrValidation))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"invalid category: validation failed"}`, rec.Body.String())
}

func TestDecodeJSONBoundsBody(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"phone"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &v))
	assert.Equal(t, "phone", v.Name)

	big := `{"name":"` + strings.Repeat("a", MaxJSONBody) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	err := DecodeJSON(httptest.NewRecorder(), req, &v)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "request body exceeds")
}

type ctxKey struct{}

func TestChainOrderAndShortCircuit(t *testing.T) {
	var calls []string
	tag := func(name string) Interceptor {
		return InterceptorFunc(func(r *http.Request, _ http.Header) Result {
			calls = append(calls, name)
			return Continue(r.WithContext(context.WithValue(r.Context(), ctxKey{}, name)))
		})
	}
	stop := InterceptorFunc(func(_ *http.Request, h http.Header) Result {
		calls = append(calls, "stop")
		h.Set("X-Stopped", "yes")
		return ShortCircuit(http.StatusUnauthorized, MessageBody{Message: "no"})
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "handler:"+r.Context().Value(ctxKey{}).(string))
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	Chain(next, discard, tag("a"), tag("b")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, []string{"a", "b", "handler:b"}, calls)

	calls = nil
	rec = httptest.NewRecorder()
	Chain(next, discard, tag("a"), stop, tag("c")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "yes", rec.Header().Get("X-Stopped"))
	assert.Equal(t, []string{"a", "stop"}, calls)
}

func TestCORSPreflight(t *testing.T) {
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	h := CORS([]string{"https://shop.example"}, next)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, reached, "preflight must not reach the handler")
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodDelete, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcard(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://any.example")
	CORS([]string{"*"}, next).ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
