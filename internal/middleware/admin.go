package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/sigmatch/internal/model"
)

// AdminChecker はユーザーの管理者権限を判定するインターフェース。
type AdminChecker interface {
	IsAdminUser(ctx context.Context, userID string) (bool, error)
}

// NewAdminMiddleware は管理者以外のリクエストにFORBIDDEN（403）を返すミドルウェアを返す。
// セッションミドルウェアの後に配置する。
func NewAdminMiddleware(checker AdminChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ok, err := checker.IsAdminUser(r.Context(), userID)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			if !ok {
				slog.Warn("admin access denied",
					slog.String("user_id", userID),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
