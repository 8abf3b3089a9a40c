package handler

import (
	"context"

	"github.com/hitoshi/sigmatch/internal/user"
)

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc        *user.Service
	maxPending int
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
// maxPendingはプロフィールに表示する審査待ち応募数の上限。
func NewUserServiceAdapter(svc *user.Service, maxPending int) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc, maxPending: maxPending}
}

// Profile はユーザーのプロフィールをhandlerレスポンス型で返す。
func (a *UserServiceAdapter) Profile(ctx context.Context, userID string) (*profileResponse, error) {
	p, err := a.svc.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(p, a.maxPending), nil
}

// Withdraw はユーザーの退会処理を実行する。
func (a *UserServiceAdapter) Withdraw(ctx context.Context, userID string) error {
	return a.svc.Withdraw(ctx, userID)
}

// toProfileResponse はドメインのProfileをhandlerのレスポンス型に変換する。
func toProfileResponse(p *user.Profile, maxPending int) *profileResponse {
	remaining := maxPending - p.PendingCount
	if remaining < 0 {
		remaining = 0
	}
	return &profileResponse{
		User: profileUserResponse{
			ID:    p.User.ID,
			Email: p.User.Email,
			Name:  p.User.Name,
			Image: p.User.Image,
		},
		Applications:   toApplicationListResponse(p.Applications),
		PendingCount:   p.PendingCount,
		PendingLimit:   maxPending,
		RemainingSlots: remaining,
	}
}

// --- compile-time interface checks ---

var _ UserServiceInterface = (*UserServiceAdapter)(nil)
