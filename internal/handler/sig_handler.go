package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sigmatch/internal/model"
	"github.com/hitoshi/sigmatch/internal/sig"
)

// SIGServiceInterface はSIGハンドラーが必要とするサービスインターフェース。
type SIGServiceInterface interface {
	List(ctx context.Context) ([]*model.SIG, error)
	Get(ctx context.Context, id string) (*model.SIG, error)
	Create(ctx context.Context, in sig.CreateInput) (*model.SIG, error)
}

// SIGHandler はSIGカタログのHTTPハンドラー。
type SIGHandler struct {
	service SIGServiceInterface
}

// NewSIGHandler はSIGHandlerを生成する。
func NewSIGHandler(service SIGServiceInterface) *SIGHandler {
	return &SIGHandler{service: service}
}

// sigResponse はSIGのAPIレスポンス。
type sigResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Acronym      string    `json:"acronym"`
	Description  string    `json:"description"`
	FocusAreas   []string  `json:"focus_areas"`
	Objectives   []string  `json:"objectives"`
	Requirements []string  `json:"requirements"`
	Benefits     []string  `json:"benefits"`
	ImageURL     string    `json:"image_url"`
	Color        string    `json:"color"`
	CreatedAt    time.Time `json:"created_at"`
}

// createSIGRequest はSIG登録リクエストのボディ。
type createSIGRequest struct {
	Name         string   `json:"name"`
	Acronym      string   `json:"acronym"`
	Description  string   `json:"description"`
	FocusAreas   []string `json:"focus_areas"`
	Objectives   []string `json:"objectives"`
	Requirements []string `json:"requirements"`
	Benefits     []string `json:"benefits"`
	ImageURL     string   `json:"image_url"`
	Color        string   `json:"color"`
}

func toSIGResponse(s *model.SIG) sigResponse {
	return sigResponse{
		ID:           s.ID,
		Name:         s.Name,
		Acronym:      s.Acronym,
		Description:  s.Description,
		FocusAreas:   nonNilStrings(s.FocusAreas),
		Objectives:   nonNilStrings(s.Objectives),
		Requirements: nonNilStrings(s.Requirements),
		Benefits:     nonNilStrings(s.Benefits),
		ImageURL:     s.ImageURL,
		Color:        s.Color,
		CreatedAt:    s.CreatedAt,
	}
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// List はSIG一覧を名前順で返す。
// GET /api/sigs
func (h *SIGHandler) List(w http.ResponseWriter, r *http.Request) {
	sigs, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]sigResponse, len(sigs))
	for i, s := range sigs {
		resp[i] = toSIGResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はSIG詳細を返す。
// GET /api/sigs/{id}
func (h *SIGHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSIGResponse(s))
}

// Create は管理者によるSIG登録を処理する。
// POST /api/admin/sigs
func (h *SIGHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSIGRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.service.Create(r.Context(), sig.CreateInput{
		Name:         req.Name,
		Acronym:      req.Acronym,
		Description:  req.Description,
		FocusAreas:   req.FocusAreas,
		Objectives:   req.Objectives,
		Requirements: req.Requirements,
		Benefits:     req.Benefits,
		ImageURL:     req.ImageURL,
		Color:        req.Color,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSIGResponse(s))
}
