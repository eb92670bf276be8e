package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthRouter(tokens ReviewerTokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/approve", ReviewerAuth(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, GetReviewer(c))
	})
	return r
}

func TestReviewerAuth(t *testing.T) {
	tokens := ReviewerTokens{Secret: []byte("test-secret"), Issuer: "altseo"}

	valid, err := tokens.Sign("alice", time.Hour)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	expired, _ := tokens.Sign("alice", -time.Minute)
	otherIssuer, _ := ReviewerTokens{Secret: []byte("test-secret"), Issuer: "someone"}.Sign("alice", time.Hour)
	otherSecret, _ := ReviewerTokens{Secret: []byte("wrong"), Issuer: "altseo"}.Sign("alice", time.Hour)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, ReviewerClaims{Name: "alice"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "alice"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong issuer", "Bearer " + otherIssuer, http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + otherSecret, http.StatusUnauthorized, ""},
		{"alg none", "Bearer " + noneAlg, http.StatusUnauthorized, ""},
	}

	r := newAuthRouter(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/approve", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestReviewerAuthDisabled(t *testing.T) {
	r := newAuthRouter(ReviewerTokens{})
	req := httptest.NewRequest(http.MethodPost, "/approve", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a secret, got %d", w.Code)
	}
}
