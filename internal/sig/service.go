// Package sig はSpecial Interest Groupカタログのドメインロジックを提供する。
package sig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/sigmatch/internal/model"
	"github.com/hitoshi/sigmatch/internal/repository"
	"github.com/hitoshi/sigmatch/internal/security"
)

// 入力値の上限。
const (
	MaxNameLength    = 200
	MaxAcronymLength = 20
	maxListEntries   = 20
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// URLValidator はURLの安全性検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// CreateInput はSIG登録の入力値。
type CreateInput struct {
	Name         string
	Acronym      string
	Description  string
	FocusAreas   []string
	Objectives   []string
	Requirements []string
	Benefits     []string
	ImageURL     string
	Color        string
}

// Service はSIGカタログのサービス層。
type Service struct {
	repo      repository.SIGRepository
	sanitizer security.ContentSanitizerService
	urls      URLValidator
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.SIGRepository, sanitizer security.ContentSanitizerService, urls URLValidator) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		urls:      urls,
		now:       time.Now,
	}
}

// List は全SIGを名前順で返す。
func (s *Service) List(ctx context.Context) ([]*model.SIG, error) {
	sigs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("SIG一覧の取得に失敗しました: %w", err)
	}
	if sigs == nil {
		sigs = []*model.SIG{}
	}
	return sigs, nil
}

// Get は指定IDのSIGを返す。存在しない場合はSIG_NOT_FOUND。
func (s *Service) Get(ctx context.Context, id string) (*model.SIG, error) {
	sig, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SIGの取得に失敗しました: %w", err)
	}
	if sig == nil {
		return nil, model.NewSIGNotFoundError(id)
	}
	return sig, nil
}

// FindByID は指定IDのSIGを返す。存在しない場合はnilを返す。応募先の存在確認に使用する。
func (s *Service) FindByID(ctx context.Context, id string) (*model.SIG, error) {
	return s.repo.FindByID(ctx, id)
}

// Create は管理者によるSIG登録を行う。
// 名前等のテキストはタグを除去し、説明文は許可タグのみ残す。画像URLはSSRFガードで検証する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.SIG, error) {
	name := s.sanitizer.PlainText(in.Name)
	if name == "" {
		return nil, model.NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, model.NewValidationError("name", fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}

	acronym := strings.ToUpper(s.sanitizer.PlainText(in.Acronym))
	if acronym == "" {
		return nil, model.NewValidationError("acronym", "is required")
	}
	if utf8.RuneCountInString(acronym) > MaxAcronymLength {
		return nil, model.NewValidationError("acronym", fmt.Sprintf("must be at most %d characters", MaxAcronymLength))
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL != "" {
		if err := s.urls.ValidateURL(imageURL); err != nil {
			return nil, model.NewValidationError("image_url", err.Error())
		}
	}

	color := strings.TrimSpace(in.Color)
	if color != "" && !colorPattern.MatchString(color) {
		return nil, model.NewValidationError("color", "must be a hex color such as #3F7E44")
	}

	lists := map[string][]string{
		"focus_areas":  in.FocusAreas,
		"objectives":   in.Objectives,
		"requirements": in.Requirements,
		"benefits":     in.Benefits,
	}
	cleaned := make(map[string][]string, len(lists))
	for field, values := range lists {
		out, err := s.cleanList(field, values)
		if err != nil {
			return nil, err
		}
		cleaned[field] = out
	}

	now := s.now()
	sig := &model.SIG{
		ID:           uuid.New().String(),
		Name:         name,
		Acronym:      acronym,
		Description:  s.sanitizer.Sanitize(in.Description),
		FocusAreas:   cleaned["focus_areas"],
		Objectives:   cleaned["objectives"],
		Requirements: cleaned["requirements"],
		Benefits:     cleaned["benefits"],
		ImageURL:     imageURL,
		Color:        color,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, sig); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateSIGError(acronym)
		}
		return nil, fmt.Errorf("SIGの登録に失敗しました: %w", err)
	}

	slog.Info("SIGを登録しました",
		slog.String("sig_id", sig.ID),
		slog.String("acronym", sig.Acronym),
	)
	return sig, nil
}

// cleanList はリスト項目からタグと空要素を除去する。
func (s *Service) cleanList(field string, values []string) ([]string, error) {
	if len(values) > maxListEntries {
		return nil, model.NewValidationError(field, fmt.Sprintf("must have at most %d entries", maxListEntries))
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if text := s.sanitizer.PlainText(v); text != "" {
			out = append(out, text)
		}
	}
	return out, nil
}
