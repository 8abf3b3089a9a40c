// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/sigmatch/internal/model"
	"github.com/hitoshi/sigmatch/internal/repository"
)

// ApplicationLister はユーザーの応募一覧取得インターフェース。
// 応募先の表示名が補完済みの一覧を返す。
type ApplicationLister interface {
	List(ctx context.Context, userID string) ([]model.ApplicationWithGoal, error)
}

// Profile はプロフィール画面に表示するユーザー情報と応募状況。
type Profile struct {
	User         *model.User
	Applications []model.ApplicationWithGoal
	PendingCount int
}

// Service はユーザー管理のサービス層。
// ユーザーのプロビジョニング、プロフィール取得、退会処理を提供する。
type Service struct {
	userRepo  repository.UserRepository
	appLister ApplicationLister
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, appLister ApplicationLister) *Service {
	return &Service{
		userRepo:  userRepo,
		appLister: appLister,
		now:       time.Now,
	}
}

// EnsureUser はメールアドレスをキーにユーザーを取得し、存在しなければ作成する。
// 同時サインインによる一意制約違反は再取得で回復するため、メールアドレスごとに1行のみ作成される。
// 既存ユーザーは、Googleから受け取った値が空でなければname・image・google_idを更新する。
func (s *Service) EnsureUser(ctx context.Context, identity model.Identity) (*model.User, error) {
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return nil, model.NewValidationError("email", "must not be empty")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if existing != nil {
		return s.refreshProfile(ctx, existing, identity), nil
	}

	now := s.now()
	user := &model.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      identity.Name,
		Image:     identity.Image,
		GoogleID:  identity.GoogleID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	createErr := s.userRepo.Create(ctx, user)
	if createErr == nil {
		slog.Info("ユーザーを作成しました",
			slog.String("user_id", user.ID),
		)
		return user, nil
	}

	if errors.Is(createErr, repository.ErrDuplicate) {
		slog.Info("ユーザーは既に作成されています。再取得します",
			slog.String("email", email),
		)
	} else {
		slog.Error("ユーザーの作成に失敗しました。再取得を試みます",
			slog.String("email", email),
			slog.String("error", createErr.Error()),
		)
	}

	// 一意制約違反・その他のエラーのいずれでも、並行して作成された行がないか確認する
	found, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの再取得に失敗しました: %w", err)
	}
	if found != nil {
		return found, nil
	}

	// Google側でメールアドレスが変更された場合はgoogle_idの一意制約に違反するため、google_idで再取得する
	if identity.GoogleID != "" {
		found, err = s.userRepo.FindByGoogleID(ctx, identity.GoogleID)
		if err != nil {
			return nil, fmt.Errorf("ユーザーの再取得に失敗しました: %w", err)
		}
		if found != nil {
			slog.Info("google_idで既存ユーザーを取得しました。メールアドレスを更新します",
				slog.String("user_id", found.ID),
			)
			return s.refreshProfile(ctx, found, identity), nil
		}
	}

	slog.Error("ユーザーの同期に失敗しました",
		slog.String("email", email),
		slog.String("error", createErr.Error()),
	)
	return nil, model.NewUserSyncFailedError()
}

// refreshProfile はGoogleのプロフィール情報（email、name、image、google_id）で既存ユーザーを更新する。
// 更新に失敗しても取得済みのユーザーを返す。
func (s *Service) refreshProfile(ctx context.Context, user *model.User, identity model.Identity) *model.User {
	updated := *user
	changed := false
	if email := strings.TrimSpace(identity.Email); email != "" && email != user.Email {
		updated.Email = email
		changed = true
	}
	if identity.Name != "" && identity.Name != user.Name {
		updated.Name = identity.Name
		changed = true
	}
	if identity.Image != "" && identity.Image != user.Image {
		updated.Image = identity.Image
		changed = true
	}
	if identity.GoogleID != "" && identity.GoogleID != user.GoogleID {
		updated.GoogleID = identity.GoogleID
		changed = true
	}
	if !changed {
		return user
	}

	updated.UpdatedAt = s.now()
	if err := s.userRepo.UpdateProfile(ctx, &updated); err != nil {
		slog.Warn("プロフィールの更新に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return user
	}
	return &updated
}

// FindByID は指定IDのユーザーを取得する。
func (s *Service) FindByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Profile はユーザー情報と応募一覧（新しい順）、審査待ち件数を返す。
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user}
	if s.appLister == nil {
		return profile, nil
	}

	apps, err := s.appLister.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Applications = apps
	for _, a := range apps {
		if a.Status == model.ApplicationStatusPending {
			profile.PendingCount++
		}
	}
	return profile, nil
}

// Withdraw はユーザーの退会処理を実行する。
// sessionsとapplicationsは外部キーのON DELETE CASCADEでusers行と同時に削除される。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if _, err := s.FindByID(ctx, userID); err != nil {
		return err
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
