package dismiss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
	notification "github.com/magabrotheeeer/subscription-tracker/internal/services/notification"
)

const notificationID = "5b0e8b7e-7c44-4a3e-8e43-2d7c1b6f9a10"

type MockService struct {
	mock.Mock
}

func (m *MockService) Dismiss(ctx context.Context, userID, id string) (*models.Notification, error) {
	args := m.Called(ctx, userID, id)
	if res := args.Get(0); res != nil {
		return res.(*models.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRequest(id, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%s/dismiss", id), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if userID != "" {
		req = middlewarectx.WithUserID(req, userID)
	}
	return req
}

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		id             string
		userID         string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "успешный переход",
			id:     notificationID,
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("Dismiss", mock.Anything, "u1", notificationID).
					Return(&models.Notification{ID: notificationID, Status: models.StatusDismissed}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"status":"dismissed"`,
		},
		{
			name:           "без пользователя",
			id:             notificationID,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:           "id не uuid",
			id:             "42",
			userID:         "u1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `field ID must be a valid uuid`,
		},
		{
			name:   "чужое или неизвестное уведомление",
			id:     notificationID,
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("Dismiss", mock.Anything, "u1", notificationID).
					Return(nil, fmt.Errorf("services.Dismiss: %w", notification.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"notification not found"`,
		},
		{
			name:   "недопустимый переход",
			id:     notificationID,
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("Dismiss", mock.Anything, "u1", notificationID).
					Return(nil, fmt.Errorf("services.Dismiss: %w", notification.ErrInvalidTransition))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `already read or dismissed`,
		},
		{
			name:   "ошибка хранилища",
			id:     notificationID,
			userID: "u1",
			setupMock: func(m *MockService) {
				m.On("Dismiss", mock.Anything, "u1", notificationID).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not update notification"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, newRequest(tt.id, tt.userID))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
