// Package markread реализует HTTP-обработчик отметки уведомления прочитанным.
package markread

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	notification "github.com/magabrotheeeer/subscription-tracker/internal/services/notification"
)

// Service описывает переход статуса уведомления.
type Service interface {
	MarkRead(ctx context.Context, userID, id string) (*models.Notification, error)
}

// Request идентификатор уведомления из URL.
type Request struct {
	ID string `validate:"required,uuid"`
}

// Handler обрабатывает PATCH /notifications/{id}/read.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отметить прочитанным
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID уведомления"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /notifications/{id}/read [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.markread"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	req := Request{ID: chi.URLParam(r, "id")}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Warn("invalid notification id", slog.String("id", req.ID))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
	}

	res, err := h.service.MarkRead(r.Context(), userID, req.ID)
	switch {
	case errors.Is(err, notification.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error(notification.ErrNotFound.Error()))
		return
	case errors.Is(err, notification.ErrInvalidTransition):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.Error(notification.ErrInvalidTransition.Error()))
		return
	case err != nil:
		log.Error("failed to update notification", slog.String("id", req.ID), sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update notification"))
		return
	}

	log.Info("notification marked read", slog.String("id", res.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"notification": res,
	}))
}
