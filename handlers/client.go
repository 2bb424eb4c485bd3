package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
	"go.uber.org/zap"
)

// clientFields describes the caller for audit logs.
func clientFields(c echo.Context) []zap.Field {
	fields := []zap.Field{zap.String("ip", c.RealIP())}

	raw := c.Request().UserAgent()
	if raw == "" {
		return append(fields, zap.String("device", "unknown"))
	}

	ua := useragent.Parse(raw)
	device := "desktop"
	switch {
	case ua.Bot:
		device = "bot"
	case ua.Mobile:
		device = "mobile"
	case ua.Tablet:
		device = "tablet"
	}

	browser := ua.Name
	if browser != "" && ua.Version != "" {
		browser += " " + ua.Version
	}
	os := ua.OS
	if os != "" && ua.OSVersion != "" {
		os += " " + ua.OSVersion
	}

	return append(fields,
		zap.String("browser", browser),
		zap.String("os", os),
		zap.String("device", device))
}
