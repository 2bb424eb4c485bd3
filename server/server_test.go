package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/BehruzbekUmarov/ManagementSystem/testutils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T) (*Server, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return New(testutils.GetTestConfig(), logging.NewFromZap(zap.New(core))), logs
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew(t *testing.T) {
	cfg := testutils.GetTestConfig()

	t.Run("with logger", func(t *testing.T) {
		logger := logging.NewFromZap(zap.NewNop())
		srv := New(cfg, logger)

		require.NotNil(t, srv)
		assert.Same(t, cfg, srv.cfg)
		assert.Same(t, logger, srv.logger)
		assert.NotNil(t, srv.Echo())
	})

	t.Run("without logger", func(t *testing.T) {
		srv := New(cfg, nil)

		require.NotNil(t, srv)
		assert.Nil(t, srv.logger)
		assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, HealthPath).Code)
	})
}

func TestServer_Health(t *testing.T) {
	srv, logs := newTestServer(t)

	rec := do(srv, http.MethodGet, HealthPath)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, 0, logs.FilterMessage("request").Len(), "health probe is not logged")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := func(c echo.Context) error { return c.String(http.StatusOK, c.Request().Method) }
	srv.Get("/r", handler)
	srv.Post("/r", handler)
	srv.Put("/r", handler)
	srv.Delete("/r", handler)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := do(srv, method, "/r")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, method, rec.Body.String())
	}

	group := srv.Group("/api")
	group.GET("/ping", handler)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/ping").Code)
}

func TestServer_ErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		reason  string
		message string
		fields  map[string]string
	}{
		{
			name:    "not found",
			err:     apperror.NotFound(apperror.ReasonUserNotFound, "user not found"),
			status:  http.StatusNotFound,
			reason:  "user_not_found",
			message: "user not found",
		},
		{
			name:    "validation with fields",
			err:     apperror.Validation(apperror.ReasonValidation, "request validation failed").WithFields(map[string]string{"email": "must be a valid email address"}),
			status:  http.StatusBadRequest,
			reason:  "validation_failed",
			message: "request validation failed",
			fields:  map[string]string{"email": "must be a valid email address"},
		},
		{
			name:    "forbidden",
			err:     apperror.Forbidden(apperror.ReasonInsufficientRole, "insufficient role"),
			status:  http.StatusForbidden,
			reason:  "insufficient_role",
			message: "insufficient role",
		},
		{
			name:    "echo http error",
			err:     echo.NewHTTPError(http.StatusTooManyRequests, "slow down"),
			status:  http.StatusTooManyRequests,
			reason:  "rate_limited",
			message: "slow down",
		},
		{
			name:    "unclassified error hides details",
			err:     errors.New("pq: connection refused at 10.0.0.5"),
			status:  http.StatusInternalServerError,
			reason:  "internal_error",
			message: "an internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			srv.Get("/fail", func(echo.Context) error { return tt.err })

			rec := do(srv, http.MethodGet, "/fail")

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.reason, body.Error)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.fields, body.Fields)
		})
	}

	t.Run("internal errors are logged with their cause", func(t *testing.T) {
		srv, logs := newTestServer(t)
		srv.Get("/fail", func(echo.Context) error { return errors.New("disk on fire") })

		do(srv, http.MethodGet, "/fail")

		entries := logs.FilterMessage("unhandled error").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "disk on fire", entries[0].ContextMap()["error"])
	})

	t.Run("unknown route", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := do(srv, http.MethodGet, "/missing")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Error)
	})

	t.Run("panic is recovered", func(t *testing.T) {
		srv, _ := newTestServer(t)
		srv.Get("/panic", func(echo.Context) error { panic("boom") })

		rec := do(srv, http.MethodGet, "/panic")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal_error", decodeError(t, rec).Error)
	})

	t.Run("committed response is left alone", func(t *testing.T) {
		srv, _ := newTestServer(t)
		srv.Get("/partial", func(c echo.Context) error {
			if err := c.String(http.StatusAccepted, "partial"); err != nil {
				return err
			}
			return errors.New("late failure")
		})

		rec := do(srv, http.MethodGet, "/partial")

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "partial", rec.Body.String())
	})
}

func TestConfigureTrustedProxies(t *testing.T) {
	tests := []struct {
		name    string
		proxies []string
		wantIP  string
	}{
		{"no trusted proxies", nil, "203.0.113.9"},
		{"empty entry", []string{""}, "203.0.113.9"},
		{"invalid entry", []string{"not-a-proxy"}, "203.0.113.9"},
		{"trusted address", []string{"203.0.113.9"}, "198.51.100.7"},
		{"trusted range", []string{"203.0.113.0/24"}, "198.51.100.7"},
		{"untrusted peer", []string{"192.0.2.1"}, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			configureTrustedProxies(e, tt.proxies, nil)
			require.NotNil(t, e.IPExtractor)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.9:4000"
			req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.7")

			assert.Equal(t, tt.wantIP, e.IPExtractor(req))
		})
	}
}

func TestServer_Addr(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = "9090"

	assert.Equal(t, "0.0.0.0:9090", New(cfg, nil).Addr())
}
