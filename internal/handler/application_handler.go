package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sigmatch/internal/application"
	"github.com/hitoshi/sigmatch/internal/model"
)

// ApplicationServiceInterface は応募ハンドラーが必要とするサービスインターフェース。
type ApplicationServiceInterface interface {
	Apply(ctx context.Context, userID string, goal model.GoalRef) (*model.ApplicationWithGoal, error)
	Status(ctx context.Context, userID string, goal model.GoalRef) (*application.Status, error)
	List(ctx context.Context, userID string) ([]model.ApplicationWithGoal, error)
	Withdraw(ctx context.Context, userID, appID string) (*model.Application, error)
	Review(ctx context.Context, appID string, status model.ApplicationStatus) (*model.Application, error)
}

// ApplicationHandler は応募管理のHTTPハンドラー。
type ApplicationHandler struct {
	service ApplicationServiceInterface
}

// NewApplicationHandler はApplicationHandlerを生成する。
func NewApplicationHandler(service ApplicationServiceInterface) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// applyRequest は応募リクエストのボディ。
type applyRequest struct {
	GoalType string `json:"goal_type"`
	GoalID   string `json:"goal_id"`
}

// reviewRequest は審査リクエストのボディ。
type reviewRequest struct {
	Status string `json:"status"`
}

// applicationResponse は応募のAPIレスポンス。
type applicationResponse struct {
	ID        string    `json:"id"`
	GoalType  string    `json:"goal_type"`
	GoalID    string    `json:"goal_id"`
	GoalTitle string    `json:"goal_title,omitempty"`
	Status    string    `json:"status"`
	AppliedAt time.Time `json:"applied_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// applicationStatusResponse は応募可否判定のAPIレスポンス。
type applicationStatusResponse struct {
	AlreadyApplied bool                 `json:"already_applied"`
	Application    *applicationResponse `json:"application,omitempty"`
	PendingCount   int                  `json:"pending_count"`
	Limit          int                  `json:"limit"`
	CanApply       bool                 `json:"can_apply"`
}

func toApplicationResponse(a *model.Application, title string) applicationResponse {
	return applicationResponse{
		ID:        a.ID,
		GoalType:  string(a.Goal.Type),
		GoalID:    a.Goal.ID,
		GoalTitle: title,
		Status:    string(a.Status),
		AppliedAt: a.AppliedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toApplicationListResponse(apps []model.ApplicationWithGoal) []applicationResponse {
	resp := make([]applicationResponse, len(apps))
	for i := range apps {
		resp[i] = toApplicationResponse(&apps[i].Application, apps[i].GoalTitle)
	}
	return resp
}

// Apply は応募を作成する。
// POST /api/applications
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req applyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := application.ParseGoal(req.GoalType, req.GoalID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	app, err := h.service.Apply(r.Context(), userID, goal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApplicationResponse(&app.Application, app.GoalTitle))
}

// Status は応募先への応募可否を返す。
// GET /api/applications/status?goal_type=sdg&goal_id=7
func (h *ApplicationHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	goal, err := application.ParseGoal(q.Get("goal_type"), q.Get("goal_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	st, err := h.service.Status(r.Context(), userID, goal)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := applicationStatusResponse{
		AlreadyApplied: st.AlreadyApplied,
		PendingCount:   st.PendingCount,
		Limit:          st.Limit,
		CanApply:       st.CanApply,
	}
	if st.Application != nil {
		a := toApplicationResponse(st.Application, "")
		resp.Application = &a
	}
	writeJSON(w, http.StatusOK, resp)
}

// List はユーザーの応募一覧を新しい順に返す。
// GET /api/applications
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	apps, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationListResponse(apps))
}

// Withdraw はユーザー自身の審査待ち応募を取り下げる。
// POST /api/applications/{id}/withdraw
func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	app, err := h.service.Withdraw(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app, ""))
}

// Review は管理者による応募の承認・却下を処理する。
// PUT /api/admin/applications/{id}/status
func (h *ApplicationHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.service.Review(r.Context(), chi.URLParam(r, "id"), model.ApplicationStatus(req.Status))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicationResponse(app, ""))
}
