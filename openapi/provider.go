package openapi

import (
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/server"
	"github.com/BehruzbekUmarov/ManagementSystem/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideDocument(cfg *config.Config) *Document {
	return New(cfg).
		Tag("Auth", "Registration, login, email verification and password reset").
		Tag("User", "User administration")
}

// Mount serves the document and the Swagger UI when enabled.
func Mount(srv *server.Server, cfg *config.Config, doc *Document, logger *logging.Service) {
	if !cfg.OpenAPI.Enabled {
		return
	}
	srv.Get(JSONPath, doc.JSONHandler())
	srv.Get(YAMLPath, doc.YAMLHandler())
	srv.Get(DocsPath, doc.SwaggerUIHandler(JSONPath))
	logger.Info("API documentation mounted", zap.String("path", DocsPath))
}

var Module = fx.Options(
	fx.Provide(ProvideDocument),
	fx.Invoke(Mount),
)
