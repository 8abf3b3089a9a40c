package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestGoogleOAuthProvider_GetLoginURL_ContainsRequiredParams(t *testing.T) {
	provider := NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:    "test-client-id",
		RedirectURL: "http://localhost:8080/auth/google/callback",
	})

	raw := provider.GetLoginURL("test-state-value")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid login URL %q: %v", raw, err)
	}
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q, want accounts.google.com", u.Host)
	}

	q := u.Query()
	want := map[string]string{
		"client_id":     "test-client-id",
		"redirect_uri":  "http://localhost:8080/auth/google/callback",
		"state":         "test-state-value",
		"response_type": "code",
		"scope":         "openid email profile",
	}
	for key, val := range want {
		if got := q.Get(key); got != val {
			t.Errorf("%s = %q, want %q", key, got, val)
		}
	}
}

// newGoogleStub はトークンエンドポイントとユーザー情報エンドポイントのスタブを起動する。
func newGoogleStub(t *testing.T, tokenStatus int, userInfo map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "auth-code" {
			t.Errorf("unexpected token request form: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func stubProvider(srv *httptest.Server) *GoogleOAuthProvider {
	return NewGoogleOAuthProvider(GoogleOAuthConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/auth/google/callback",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	})
}

func TestGoogleOAuthProvider_ExchangeCode_Success(t *testing.T) {
	srv := newGoogleStub(t, http.StatusOK, map[string]any{
		"sub":            "google-sub-12345",
		"email":          "volunteer@gmail.com",
		"email_verified": true,
		"name":           "Amina Volunteer",
		"picture":        "https://lh3.googleusercontent.com/a/photo",
	})

	info, err := stubProvider(srv).ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.ProviderUserID != "google-sub-12345" {
		t.Errorf("ProviderUserID = %q", info.ProviderUserID)
	}
	if info.Email != "volunteer@gmail.com" || info.Name != "Amina Volunteer" {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Image != "https://lh3.googleusercontent.com/a/photo" {
		t.Errorf("Image = %q", info.Image)
	}
}

func TestGoogleOAuthProvider_ExchangeCode_TokenError(t *testing.T) {
	srv := newGoogleStub(t, http.StatusBadRequest, nil)

	_, err := stubProvider(srv).ExchangeCode(context.Background(), "bad-code")
	if err == nil || !strings.Contains(err.Error(), "exchange token") {
		t.Fatalf("expected token exchange error, got %v", err)
	}
}

func TestGoogleOAuthProvider_ExchangeCode_MissingFields(t *testing.T) {
	tests := []struct {
		name     string
		userInfo map[string]any
	}{
		{"missing sub", map[string]any{"email": "a@example.org", "email_verified": true}},
		{"missing email", map[string]any{"sub": "123", "email_verified": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGoogleStub(t, http.StatusOK, tt.userInfo)
			if _, err := stubProvider(srv).ExchangeCode(context.Background(), "auth-code"); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

// TestGoogleOAuthProvider_ExchangeCode_UnverifiedEmail は未検証メールアドレスのアカウントで
// 既存ユーザーとしてサインインできないことを検証する。
func TestGoogleOAuthProvider_ExchangeCode_UnverifiedEmail(t *testing.T) {
	tests := []struct {
		name     string
		userInfo map[string]any
	}{
		{"email_verifiedがfalse", map[string]any{
			"sub": "other-sub", "email": "volunteer@gmail.com", "email_verified": false,
		}},
		{"email_verifiedが未設定", map[string]any{
			"sub": "other-sub", "email": "volunteer@gmail.com",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newGoogleStub(t, http.StatusOK, tt.userInfo)
			info, err := stubProvider(srv).ExchangeCode(context.Background(), "auth-code")
			if !errors.Is(err, ErrEmailNotVerified) {
				t.Fatalf("err = %v, want ErrEmailNotVerified", err)
			}
			if info != nil {
				t.Errorf("info = %+v, want nil", info)
			}
		})
	}
}
