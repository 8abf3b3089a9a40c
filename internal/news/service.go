package news

import (
	"context"
	"fmt"

	"github.com/hitoshi/sigmatch/internal/catalog"
	"github.com/hitoshi/sigmatch/internal/model"
)

const (
	// DefaultListLimit は記事一覧の取得件数の既定値。
	DefaultListLimit = 10
	// MaxListLimit は記事一覧の取得件数の上限。
	MaxListLimit = 50
)

// Reader はSDG別の記事一覧を取得するインターフェース。
type Reader interface {
	ListBySDG(ctx context.Context, sdgID int, limit int) ([]model.NewsItem, error)
}

// Service はSDG別ニュースの参照サービス。
type Service struct {
	repo Reader
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

// NormalizeLimit は取得件数を既定値と上限の範囲に収める。
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// ListForSDG は指定SDGに関連する記事を新しい順で返す。
// SDG IDが不正な場合はGOAL_NOT_FOUNDを返す。
func (s *Service) ListForSDG(ctx context.Context, rawSDGID string, limit int) ([]model.NewsItem, error) {
	id, err := catalog.ParseID(rawSDGID)
	if err != nil {
		return nil, model.NewGoalNotFoundError(model.GoalRef{Type: model.GoalTypeSDG, ID: rawSDGID})
	}

	items, err := s.repo.ListBySDG(ctx, id, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("ニュース記事の取得に失敗: %w", err)
	}
	if items == nil {
		items = []model.NewsItem{}
	}
	return items, nil
}
