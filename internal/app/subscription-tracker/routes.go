// Package subscriptiontracker собирает HTTP API уведомлений.
package subscriptiontracker

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация описания API для /docs.
	_ "github.com/magabrotheeeer/subscription-tracker/docs"
	"github.com/magabrotheeeer/subscription-tracker/internal/config"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/dismiss"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/list"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/markallread"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/markread"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/handlers/notification/unreadcount"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	notification "github.com/magabrotheeeer/subscription-tracker/internal/services/notification"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer,
	notificationService *notification.NotificationService, parser middlewarectx.TokenParser, checker health.Checker) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit, cfg.RateBurst))
			r.Use(middlewarectx.JWTMiddleware(parser, logger))

			r.Get("/notifications", list.New(logger, notificationService).ServeHTTP)
			r.Get("/notifications/unread-count", unreadcount.New(logger, notificationService).ServeHTTP)
			r.Patch("/notifications/read-all", markallread.New(logger, notificationService).ServeHTTP)
			r.Patch("/notifications/{id}/read", markread.New(logger, notificationService).ServeHTTP)
			r.Patch("/notifications/{id}/dismiss", dismiss.New(logger, notificationService).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, checker).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
