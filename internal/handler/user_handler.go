package handler

import (
	"context"
	"net/http"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Profile はユーザー情報と応募状況を返す。
	Profile(ctx context.Context, userID string) (*profileResponse, error)

	// Withdraw はユーザーの退会処理を実行する。
	// applications、sessions、userを削除する。SIGとニュースは残す。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// profileUserResponse はプロフィールのユーザー部分。
type profileUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// profileResponse はプロフィールのAPIレスポンス。
type profileResponse struct {
	User           profileUserResponse   `json:"user"`
	Applications   []applicationResponse `json:"applications"`
	PendingCount   int                   `json:"pending_count"`
	PendingLimit   int                   `json:"pending_limit"`
	RemainingSlots int                   `json:"remaining_slots"`
}

// Profile はログインユーザーのプロフィールと応募一覧を返す。
// GET /api/profile
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
