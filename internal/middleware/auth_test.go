package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"testwise-backend/internal/models"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	userID := uuid.New()

	token, err := auth.GenerateAccessToken(userID, models.RoleTeacher)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	principal, err := auth.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if principal.UserID != userID {
		t.Errorf("Expected user %s, got %s", userID, principal.UserID)
	}
	if principal.Role != models.RoleTeacher {
		t.Errorf("Expected role teacher, got %s", principal.Role)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewJWTAuth("secret-a").GenerateAccessToken(uuid.New(), models.RoleStudent)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := NewJWTAuth("secret-b").ParseToken(token); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	secret := []byte("test-secret")
	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"role":    "superuser",
		"exp":     time.Now().Add(time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := NewJWTAuth("test-secret").ParseToken(token); err == nil {
		t.Error("Expected token with unknown role to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"role":    string(models.RoleStudent),
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := NewJWTAuth("test-secret").ParseToken(token); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	userID := uuid.New()
	token, err := auth.GenerateAccessToken(userID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	var got Principal
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if got.UserID != userID || got.Role != models.RoleAdmin {
		t.Errorf("Expected principal %s/admin, got %s/%s", userID, got.UserID, got.Role)
	}
}

func TestMiddlewareRejectsBadHeaders(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run without a valid token")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not.a.token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected 401, got %d", rr.Code)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireRoles(models.RoleAdmin, models.RoleTeacher)(next)

	serve := func(p *Principal) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if p != nil {
			req = req.WithContext(context.WithValue(req.Context(), principalKey, *p))
		}
		rr := httptest.NewRecorder()
		guarded.ServeHTTP(rr, req)
		return rr
	}

	if rr := serve(&Principal{UserID: uuid.New(), Role: models.RoleTeacher}); rr.Code != http.StatusNoContent {
		t.Errorf("Expected teacher to pass, got %d", rr.Code)
	}
	if rr := serve(&Principal{UserID: uuid.New(), Role: models.RoleStudent}); rr.Code != http.StatusForbidden {
		t.Errorf("Expected student to be forbidden, got %d", rr.Code)
	}
	if rr := serve(nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected missing principal to be unauthorized, got %d", rr.Code)
	}
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := serve("10.0.0.1:1234"); rr.Code != http.StatusNoContent {
			t.Fatalf("Request %d should pass, got %d", i+1, rr.Code)
		}
	}

	rr := serve("10.0.0.1:1234")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 after limit, got %d", rr.Code)
	}
	var resp map[string]map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp["error"]["code"] != "RATE_LIMITED" {
		t.Errorf("Expected RATE_LIMITED, got %v", resp["error"]["code"])
	}

	// A different client is tracked separately.
	if rr := serve("10.0.0.2:1234"); rr.Code != http.StatusNoContent {
		t.Errorf("Expected other client to pass, got %d", rr.Code)
	}
}

func TestAuthRateLimiterDefaults(t *testing.T) {
	rl := NewAuthRateLimiter()
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.3:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("Request %d should pass, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "10.0.0.3:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on the 11th request, got %d", rr.Code)
	}
}
