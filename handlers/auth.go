package handlers

import (
	"net/http"

	"github.com/BehruzbekUmarov/ManagementSystem/services/auth"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SuccessMessage is the plain-text body of flows that return no data.
const SuccessMessage = "Successful!"

type AuthHandler struct {
	auth   *auth.Service
	logger *logging.Service
}

func NewAuthHandler(svc *auth.Service, logger *logging.Service) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	fields := append(clientFields(c), zap.String("email", req.Email))
	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("login rejected", append(fields, zap.Error(err))...)
		return err
	}

	h.logger.Info("login", fields...)
	return c.JSON(http.StatusOK, result)
}

func (h *AuthHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), auth.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Role:            req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.auth.VerifyEmail(c.Request().Context(), req.Email, req.Code); err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}

func (h *AuthHandler) ForgetPassword(c echo.Context) error {
	var req ForgetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.auth.ForgetPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordByCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	_, err := h.auth.ResetPassword(c.Request().Context(), auth.ResetPasswordInput{
		Email:       req.Email,
		NewPassword: req.NewPassword,
		Code:        req.Code,
	})
	if err != nil {
		return err
	}
	return c.String(http.StatusOK, SuccessMessage)
}
