package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sigmatch/internal/catalog"
	"github.com/hitoshi/sigmatch/internal/middleware"
	"github.com/hitoshi/sigmatch/internal/model"
)

// NewsServiceInterface はSDGニュース取得のサービスインターフェース。
type NewsServiceInterface interface {
	ListForSDG(ctx context.Context, rawSDGID string, limit int) ([]model.NewsItem, error)
}

// SDGHandler はSDGカタログとSDG関連ニュースのHTTPハンドラー。
type SDGHandler struct {
	news NewsServiceInterface
}

// NewSDGHandler はSDGHandlerを生成する。
func NewSDGHandler(news NewsServiceInterface) *SDGHandler {
	return &SDGHandler{news: news}
}

// newsItemResponse はニュース記事のAPIレスポンス。
type newsItemResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Summary     string     `json:"summary"`
	SDGIDs      []int      `json:"sdg_ids"`
	PublishedAt *time.Time `json:"published_at"`
}

// List はSDG一覧を返す。
// GET /api/sdgs
func (h *SDGHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.List())
}

// Get はSDG詳細を返す。1〜17以外のIDはGOAL_NOT_FOUND（404）。
// GET /api/sdgs/{id}
func (h *SDGHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := catalog.ParseID(raw)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound,
			model.NewGoalNotFoundError(model.GoalRef{Type: model.GoalTypeSDG, ID: raw}))
		return
	}
	sdg, _ := catalog.Get(id)
	writeJSON(w, http.StatusOK, sdg)
}

// News はSDGに関連付けられたニュース記事を新しい順に返す。
// GET /api/sdgs/{id}/news?limit=N
func (h *SDGHandler) News(w http.ResponseWriter, r *http.Request) {
	items, err := h.news.ListForSDG(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]newsItemResponse, len(items))
	for i, it := range items {
		resp[i] = newsItemResponse{
			ID:          it.ID,
			Title:       it.Title,
			Link:        it.Link,
			Summary:     it.Summary,
			SDGIDs:      it.SDGIDs,
			PublishedAt: it.PublishedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
