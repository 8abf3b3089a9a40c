package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/sigmatch/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
	isAdminFn        func(user *model.User) bool
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) IsAdmin(user *model.User) bool {
	if m.isAdminFn != nil {
		return m.isAdminFn(user)
	}
	return false
}

var testAuthConfig = AuthHandlerConfig{
	BaseURL:       "http://localhost:3000",
	SessionMaxAge: 86400,
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Login_RedirectsWithStateCookie(t *testing.T) {
	var issued string
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			issued = state
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://accounts.google.com/") {
		t.Errorf("Location = %q, should point to google oauth", loc)
	}

	c := cookieByName(resp, oauthStateCookie)
	if c == nil || c.Value != issued || len(issued) != 32 {
		t.Fatalf("state cookie = %v, issued state = %q", c, issued)
	}
	if !c.HttpOnly || c.MaxAge != oauthStateMaxAge {
		t.Errorf("unexpected state cookie attributes: %+v", c)
	}
}

func TestAuthHandler_Callback_Success_SetsSessionCookieAndRedirects(t *testing.T) {
	svc := &mockAuthService{
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			if code != "test-code" {
				t.Errorf("code = %q, want test-code", code)
			}
			return &model.Session{ID: "session-id-abc", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{BaseURL: "http://localhost:3000", CookieSecure: true, SessionMaxAge: 3600})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=test-code&state=test-state", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "test-state"})
	w := httptest.NewRecorder()
	h.Callback(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "http://localhost:3000" {
		t.Errorf("Location = %q, want %q", loc, "http://localhost:3000")
	}

	c := cookieByName(resp, "session_id")
	if c == nil {
		t.Fatal("expected session_id cookie to be set")
	}
	if c.Value != "session-id-abc" || !c.HttpOnly || !c.Secure || c.MaxAge != 3600 {
		t.Errorf("unexpected session cookie: %+v", c)
	}
	if state := cookieByName(resp, oauthStateCookie); state == nil || state.MaxAge >= 0 {
		t.Error("state cookie should be cleared")
	}
}

func TestAuthHandler_Callback_Errors(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		stateCk    string
		callbackFn func(ctx context.Context, code string) (*model.Session, error)
		wantStatus int
		wantCode   string
	}{
		{
			name:       "stateの不一致",
			url:        "/auth/google/callback?code=c&state=attacker",
			stateCk:    "test-state",
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidationFailed,
		},
		{
			name:       "stateCookieなし",
			url:        "/auth/google/callback?code=c&state=test-state",
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidationFailed,
		},
		{
			name:       "認可コードなし",
			url:        "/auth/google/callback?state=test-state",
			stateCk:    "test-state",
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeValidationFailed,
		},
		{
			name:    "ユーザー同期失敗",
			url:     "/auth/google/callback?code=c&state=test-state",
			stateCk: "test-state",
			callbackFn: func(context.Context, string) (*model.Session, error) {
				return nil, model.NewUserSyncFailedError()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   model.ErrCodeUserSyncFailed,
		},
		{
			name:    "トークン交換失敗",
			url:     "/auth/google/callback?code=c&state=test-state",
			stateCk: "test-state",
			callbackFn: func(context.Context, string) (*model.Session, error) {
				return nil, errors.New("oauth2: cannot fetch token")
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{handleCallbackFn: tt.callbackFn}, testAuthConfig)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.stateCk != "" {
				req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: tt.stateCk})
			}
			w := httptest.NewRecorder()
			h.Callback(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := decodeAPIError(t, w); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if cookieByName(w.Result(), "session_id") != nil {
				t.Error("失敗時にセッションCookieを設定してはならない")
			}
		})
	}
}

func TestAuthHandler_Logout_ClearsCookieAndRedirects(t *testing.T) {
	var deleted string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deleted = sessionID
			return errors.New("db down")
		},
	}
	h := NewAuthHandler(svc, testAuthConfig)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-1"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if deleted != "sess-1" {
		t.Errorf("Logout called with %q, want sess-1", deleted)
	}
	// 削除に失敗してもCookieはクリアする
	if c := cookieByName(resp, "session_id"); c == nil || c.MaxAge >= 0 {
		t.Errorf("session cookie should be cleared: %+v", c)
	}
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
}

func TestAuthHandler_Logout_NoSession_StillRedirects(t *testing.T) {
	called := false
	h := NewAuthHandler(&mockAuthService{
		logoutFn: func(context.Context, string) error { called = true; return nil },
	}, testAuthConfig)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if called {
		t.Error("Cookieがない場合はLogoutを呼ばない")
	}
	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "sess-admin" {
				return nil, model.NewUnauthorizedError()
			}
			return &model.User{ID: "user-1", Email: "admin@un.example.org", Name: "Admin", Image: "https://lh3.example.com/a.png"}, nil
		},
		isAdminFn: func(u *model.User) bool { return u.Email == "admin@un.example.org" },
	}
	h := NewAuthHandler(svc, testAuthConfig)

	t.Run("認証済み", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "sess-admin"})
		w := httptest.NewRecorder()
		h.Me(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var body meResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.ID != "user-1" || body.Image == "" || !body.IsAdmin {
			t.Errorf("unexpected body: %+v", body)
		}
	})

	t.Run("Cookieなし", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("無効なセッション", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired"})
		w := httptest.NewRecorder()
		h.Me(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
