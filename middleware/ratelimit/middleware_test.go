package ratelimit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/testutils"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx/fxtest"
)

func fixedKey(echo.Context) string { return "test-key" }

func serve(e *echo.Echo, mw echo.MiddlewareFunc, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/Auth/LoginAsync", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, mw(handler)(c)
}

func isTooManyRequests(err error) bool {
	var httpErr *echo.HTTPError
	return errors.As(err, &httpErr) && httpErr.Code == http.StatusTooManyRequests
}

func TestMiddleware_CountAll(t *testing.T) {
	e := echo.New()
	mw := Middleware(Config{Store: NewMemoryStore(0), Rate: 2, Period: time.Minute, KeyGenerator: fixedKey})
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	for i, wantRemaining := range []string{"1", "0"} {
		rec, err := serve(e, mw, ok)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != wantRemaining {
			t.Errorf("request %d: expected remaining %s, got %s", i, wantRemaining, got)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("request %d: expected limit header 2", i)
		}
	}

	rec, err := serve(e, mw, ok)
	if !isTooManyRequests(err) {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("expected reset header on rejection")
	}
}

func TestMiddleware_CountFailures(t *testing.T) {
	e := echo.New()
	mw := Middleware(Config{Store: NewMemoryStore(0), Rate: 2, CountMode: config.CountFailures, KeyGenerator: fixedKey})
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	fail := func(echo.Context) error {
		return apperror.Unauthorized("incorrect_password", "password is incorrect")
	}

	for range 5 {
		if _, err := serve(e, mw, ok); err != nil {
			t.Fatalf("successful requests must not count: %v", err)
		}
	}

	for i := range 2 {
		if _, err := serve(e, mw, fail); isTooManyRequests(err) {
			t.Fatalf("failure %d rejected too early", i)
		}
	}

	if _, err := serve(e, mw, ok); !isTooManyRequests(err) {
		t.Fatalf("expected 429 after two failures, got %v", err)
	}
}

func TestMiddleware_CountSuccess(t *testing.T) {
	e := echo.New()
	mw := Middleware(Config{Store: NewMemoryStore(0), Rate: 1, CountMode: config.CountSuccess, KeyGenerator: fixedKey})
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	notFound := func(echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) }
	broken := func(echo.Context) error { return errors.New("boom") }

	for _, h := range []echo.HandlerFunc{notFound, broken, notFound} {
		if _, err := serve(e, mw, h); isTooManyRequests(err) {
			t.Fatal("failed requests must not count")
		}
	}

	if _, err := serve(e, mw, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := serve(e, mw, ok); !isTooManyRequests(err) {
		t.Fatalf("expected 429, got %v", err)
	}
}

func TestMiddleware_Defaults(t *testing.T) {
	e := echo.New()
	mw := Middleware(Config{})
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	for i := range 5 {
		if _, err := serve(e, mw, ok); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}
	if _, err := serve(e, mw, ok); !isTooManyRequests(err) {
		t.Fatalf("expected default rate of 5, got %v", err)
	}
}

func TestMiddleware_CustomLimitHandler(t *testing.T) {
	e := echo.New()
	mw := Middleware(Config{
		Store:        NewMemoryStore(0),
		Rate:         1,
		KeyGenerator: fixedKey,
		OnLimitReached: func(c echo.Context) error {
			return c.String(http.StatusTooManyRequests, "slow down")
		},
	})
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

	serve(e, mw, ok)
	rec, err := serve(e, mw, ok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusTooManyRequests || rec.Body.String() != "slow down" {
		t.Errorf("expected custom response, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestDefaultKeyGenerator(t *testing.T) {
	e := echo.New()

	key := func(path, ip string) string {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = ip + ":1234"
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(path)
		return DefaultKeyGenerator(c)
	}

	if key("/Auth/LoginAsync", "10.0.0.1") == key("/Auth/VerifyEmail", "10.0.0.1") {
		t.Error("expected separate budgets per route")
	}
	if key("/Auth/LoginAsync", "10.0.0.1") == key("/Auth/LoginAsync", "10.0.0.2") {
		t.Error("expected separate budgets per client")
	}
	if got := key("/Auth/LoginAsync", "10.0.0.1"); got != "rate_limit:/Auth/LoginAsync:10.0.0.1" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestProvideLimiter(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.RateLimit.Enabled = false
		lc := fxtest.NewLifecycle(t)

		limiter := ProvideLimiter(lc, cfg, nil)
		if limiter != nil {
			t.Error("expected nil limiter")
		}
		if len(limiter.Apply()) != 0 {
			t.Error("expected no middleware")
		}
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		lc := fxtest.NewLifecycle(t)

		limiter := ProvideLimiter(lc, cfg, nil)
		if len(limiter.Apply()) != 1 {
			t.Fatal("expected one middleware")
		}
		lc.RequireStart()
		lc.RequireStop()
	})
}
