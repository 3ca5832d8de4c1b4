package middlewarectx

import (
	"context"
	"net/http"
)

// UserIDFrom возвращает идентификатор пользователя, положенный в контекст JWTMiddleware.
func UserIDFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserID).(string)
	return userID, ok && userID != ""
}

// WithUserID кладет идентификатор пользователя в контекст запроса.
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserID, userID))
}
