package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/sigmatch/internal/model"
)

type mockAdminChecker struct {
	isAdminFn func(ctx context.Context, userID string) (bool, error)
}

func (m *mockAdminChecker) IsAdminUser(ctx context.Context, userID string) (bool, error) {
	return m.isAdminFn(ctx, userID)
}

func TestAdminMiddleware(t *testing.T) {
	checker := &mockAdminChecker{
		isAdminFn: func(_ context.Context, userID string) (bool, error) {
			switch userID {
			case "admin":
				return true, nil
			case "ghost":
				return false, model.NewUserNotFoundError()
			case "broken":
				return false, errors.New("db down")
			default:
				return false, nil
			}
		},
	}

	tests := []struct {
		name       string
		userID     string
		wantStatus int
		wantCalled bool
	}{
		{"管理者は通過", "admin", http.StatusOK, true},
		{"一般ユーザーは403", "volunteer", http.StatusForbidden, false},
		{"未認証は401", "", http.StatusUnauthorized, false},
		{"ユーザー不在は404", "ghost", http.StatusNotFound, false},
		{"内部エラーは500", "broken", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewAdminMiddleware(checker)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/admin/sigs", nil)
			if tt.userID != "" {
				req = req.WithContext(ContextWithUserID(req.Context(), tt.userID))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}
