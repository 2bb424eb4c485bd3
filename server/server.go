package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const HealthPath = "/health"

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	s := &Server{echo: e, cfg: cfg, logger: logger}

	configureTrustedProxies(e, cfg.Server.TrustedProxies, logger)
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(logging.RequestLogger(logger.Named("http"), HealthPath))

	e.GET(HealthPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return s
}

// configureTrustedProxies trusts X-Forwarded-For only from the listed
// addresses or CIDR ranges. Without valid entries the peer address is used.
func configureTrustedProxies(e *echo.Echo, proxies []string, logger *logging.Service) {
	var options []echo.TrustOption
	for _, proxy := range proxies {
		if proxy == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(proxy); err == nil {
			options = append(options, echo.TrustIPRange(network))
			continue
		}
		if ip := net.ParseIP(proxy); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			options = append(options, echo.TrustIPRange(&net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}))
			continue
		}
		logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", proxy))
	}

	if len(options) == 0 {
		e.IPExtractor = echo.ExtractIPDirect()
		return
	}
	options = append(options,
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false))
	e.IPExtractor = echo.ExtractIPFromXFFHeader(options...)
}

// handleError renders err as an ErrorResponse. Unclassified errors are logged
// and reported as a generic internal error.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorBody(err, c)

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		s.logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

func (s *Server) errorBody(err error, c echo.Context) (int, ErrorResponse) {
	if appErr, ok := apperror.As(err); ok {
		if appErr.Kind == apperror.KindInternal {
			s.logger.Error("request failed",
				zap.Error(err),
				zap.String("reason", appErr.Reason),
				zap.String("path", c.Path()))
		}
		return appErr.StatusCode(), ErrorResponse{
			Error:   appErr.Reason,
			Message: appErr.Message,
			Fields:  appErr.Fields,
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
		return httpErr.Code, ErrorResponse{
			Error:   reasonForStatus(httpErr.Code),
			Message: message,
		}
	}

	s.logger.Error("unhandled error", zap.Error(err), zap.String("path", c.Path()))
	return http.StatusInternalServerError, ErrorResponse{
		Error:   apperror.ReasonInternal,
		Message: "an internal error occurred",
	}
}

func reasonForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if code >= http.StatusInternalServerError {
		return apperror.ReasonInternal
	}
	return "request_failed"
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
}

// Start serves until Shutdown is called. http.ErrServerClosed is not
// reported as an error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) Get(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.GET(path, handler, m...)
}

func (s *Server) Post(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.POST(path, handler, m...)
}

func (s *Server) Put(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.PUT(path, handler, m...)
}

func (s *Server) Delete(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.DELETE(path, handler, m...)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
