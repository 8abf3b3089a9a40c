// Package application はSIG/SDGへの応募のドメインロジックを提供する。
// 審査待ち応募数の上限と、同一応募先への重複応募の禁止を担う。
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/sigmatch/internal/catalog"
	"github.com/hitoshi/sigmatch/internal/metrics"
	"github.com/hitoshi/sigmatch/internal/model"
	"github.com/hitoshi/sigmatch/internal/repository"
)

// DefaultMaxPending はユーザーあたりの審査待ち応募数の上限。
const DefaultMaxPending = 3

// SIGFinder はSIGの存在確認インターフェース。
type SIGFinder interface {
	FindByID(ctx context.Context, id string) (*model.SIG, error)
}

// Status は応募先詳細画面で使用する応募可否の判定結果。
type Status struct {
	AlreadyApplied bool
	Application    *model.Application
	PendingCount   int
	Limit          int
	CanApply       bool
}

// Service は応募管理のサービス層。
type Service struct {
	repo       repository.ApplicationRepository
	sigs       SIGFinder
	metrics    metrics.ApplicationMetrics
	maxPending int
	now        func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// maxPendingが0以下の場合はDefaultMaxPendingを使用する。metricsはnilでもよい。
func NewService(repo repository.ApplicationRepository, sigs SIGFinder, m metrics.ApplicationMetrics, maxPending int) *Service {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Service{
		repo:       repo,
		sigs:       sigs,
		metrics:    m,
		maxPending: maxPending,
		now:        time.Now,
	}
}

// MaxPending は審査待ち応募数の上限を返す。
func (s *Service) MaxPending() int {
	return s.maxPending
}

// ParseGoal はリクエストのgoal_typeとgoal_idを検証し、正規化したGoalRefを返す。
// SDGのIDは"07"のような表記も"7"に正規化する。
func ParseGoal(goalType, goalID string) (model.GoalRef, error) {
	gt, err := model.ParseGoalType(goalType)
	if err != nil {
		return model.GoalRef{}, model.NewInvalidGoalError("goal_type must be \"sig\" or \"sdg\"")
	}
	id := strings.TrimSpace(goalID)
	if id == "" {
		return model.GoalRef{}, model.NewInvalidGoalError("goal_id is required")
	}
	goal := model.GoalRef{Type: gt, ID: id}
	if gt == model.GoalTypeSDG {
		n, err := catalog.ParseID(id)
		if err != nil {
			return model.GoalRef{}, model.NewGoalNotFoundError(goal)
		}
		goal.ID = strconv.Itoa(n)
	}
	return goal, nil
}

// resolveGoalTitle は応募先の存在を確認し、表示名を返す。存在しない場合はGOAL_NOT_FOUND。
func (s *Service) resolveGoalTitle(ctx context.Context, goal model.GoalRef) (string, error) {
	switch goal.Type {
	case model.GoalTypeSDG:
		n, err := catalog.ParseID(goal.ID)
		if err != nil {
			return "", model.NewGoalNotFoundError(goal)
		}
		sdg, _ := catalog.Get(n)
		return sdg.Title, nil
	case model.GoalTypeSIG:
		sig, err := s.sigs.FindByID(ctx, goal.ID)
		if err != nil {
			return "", fmt.Errorf("SIGの取得に失敗しました: %w", err)
		}
		if sig == nil {
			return "", model.NewGoalNotFoundError(goal)
		}
		return sig.Name, nil
	default:
		return "", model.NewInvalidGoalError("unknown goal type")
	}
}

// Apply はユーザーを応募先に応募させる。
// 上限判定・重複判定・挿入は単一トランザクションで行われ、同時リクエストでも上限を超えない。
func (s *Service) Apply(ctx context.Context, userID string, goal model.GoalRef) (*model.ApplicationWithGoal, error) {
	title, err := s.resolveGoalTitle(ctx, goal)
	if err != nil {
		return nil, err
	}

	now := s.now()
	app := &model.Application{
		ID:        uuid.New().String(),
		UserID:    userID,
		Goal:      goal,
		Status:    model.ApplicationStatusPending,
		AppliedAt: now,
		UpdatedAt: now,
	}

	err = s.repo.CreateWithinLimit(ctx, app, s.maxPending)
	switch {
	case err == nil:
		s.record(goal, metrics.OutcomeCreated)
		slog.Info("応募を受け付けました",
			slog.String("user_id", userID),
			slog.String("goal", goal.String()),
			slog.String("application_id", app.ID),
		)
		return &model.ApplicationWithGoal{Application: *app, GoalTitle: title}, nil
	case errors.Is(err, repository.ErrApplicationLimit):
		s.record(goal, metrics.OutcomeLimit)
		return nil, model.NewApplicationLimitError(s.maxPending)
	case errors.Is(err, repository.ErrDuplicate):
		s.record(goal, metrics.OutcomeDuplicate)
		return nil, model.NewDuplicateApplicationError()
	case errors.Is(err, repository.ErrNotFound):
		s.record(goal, metrics.OutcomeError)
		return nil, model.NewUserNotFoundError()
	default:
		s.record(goal, metrics.OutcomeError)
		return nil, fmt.Errorf("応募の作成に失敗しました: %w", err)
	}
}

// Status はユーザーが応募先に応募できるかを判定する。
func (s *Service) Status(ctx context.Context, userID string, goal model.GoalRef) (*Status, error) {
	if _, err := s.resolveGoalTitle(ctx, goal); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserAndGoal(ctx, userID, goal)
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	pending, err := s.repo.CountPendingByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("審査待ち応募数の取得に失敗しました: %w", err)
	}

	return &Status{
		AlreadyApplied: existing != nil,
		Application:    existing,
		PendingCount:   pending,
		Limit:          s.maxPending,
		CanApply:       existing == nil && pending < s.maxPending,
	}, nil
}

// List はユーザーの応募一覧を新しい順に返す。SDGへの応募には目標名を付与する。
func (s *Service) List(ctx context.Context, userID string) ([]model.ApplicationWithGoal, error) {
	apps, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("応募一覧の取得に失敗しました: %w", err)
	}
	for i := range apps {
		if apps[i].Goal.Type != model.GoalTypeSDG {
			continue
		}
		if n, err := catalog.ParseID(apps[i].Goal.ID); err == nil {
			sdg, _ := catalog.Get(n)
			apps[i].GoalTitle = sdg.Title
		}
	}
	return apps, nil
}

// Withdraw はユーザー自身の審査待ち応募を取り下げる。取り下げにより上限の枠が1つ空く。
func (s *Service) Withdraw(ctx context.Context, userID, appID string) (*model.Application, error) {
	app, err := s.repo.FindByID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	// 他ユーザーの応募は存在しないものとして扱う
	if app == nil || app.UserID != userID {
		return nil, model.NewApplicationNotFoundError(appID)
	}
	return s.transition(ctx, app, model.ApplicationStatusWithdrawn)
}

// Review は管理者が審査待ち応募を承認または却下する。
func (s *Service) Review(ctx context.Context, appID string, status model.ApplicationStatus) (*model.Application, error) {
	if status != model.ApplicationStatusApproved && status != model.ApplicationStatusRejected {
		return nil, model.NewValidationError("status", "must be \"approved\" or \"rejected\"")
	}
	app, err := s.repo.FindByID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("応募の取得に失敗しました: %w", err)
	}
	if app == nil {
		return nil, model.NewApplicationNotFoundError(appID)
	}
	return s.transition(ctx, app, status)
}

// transition は状態遷移を検証し、楽観的に更新する。
func (s *Service) transition(ctx context.Context, app *model.Application, next model.ApplicationStatus) (*model.Application, error) {
	if !app.Status.CanTransitionTo(next) {
		return nil, model.NewInvalidStatusTransitionError(app.Status, next)
	}

	err := s.repo.UpdateStatus(ctx, app.ID, app.Status, next)
	if errors.Is(err, repository.ErrStatusConflict) {
		// 並行して更新された場合は最新の状態で遷移エラーを返す
		current, findErr := s.repo.FindByID(ctx, app.ID)
		if findErr != nil || current == nil {
			return nil, model.NewApplicationNotFoundError(app.ID)
		}
		return nil, model.NewInvalidStatusTransitionError(current.Status, next)
	}
	if err != nil {
		return nil, fmt.Errorf("応募ステータスの更新に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(next))
	}
	slog.Info("応募ステータスを更新しました",
		slog.String("application_id", app.ID),
		slog.String("from", string(app.Status)),
		slog.String("to", string(next)),
	)

	updated := *app
	updated.Status = next
	updated.UpdatedAt = s.now()
	return &updated, nil
}

func (s *Service) record(goal model.GoalRef, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordApplication(string(goal.Type), outcome)
	}
}
