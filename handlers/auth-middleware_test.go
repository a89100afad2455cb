package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"activities-service/models"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var gotRequester models.Requester
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotRequester, _ = RequesterFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(next)

	validClaims := Claims{
		PhoneNumber: "+918527801093",
		DisplayName: "Asha",
		Support:     true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uid-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/api/activities/create", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", validClaims))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		if !called {
			t.Fatal("next handler was not reached")
		}
		if gotRequester.PhoneNumber != "+918527801093" || gotRequester.UID != "uid-123" || !gotRequester.IsSupport {
			t.Errorf("unexpected requester %+v", gotRequester)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/api/activities/create", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
		if called {
			t.Error("next handler should not run without a token")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/api/activities/create", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", validClaims))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := validClaims
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		req := httptest.NewRequest(http.MethodPost, "/api/activities/create", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", expired))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("missing phone number", func(t *testing.T) {
		anonymous := validClaims
		anonymous.PhoneNumber = ""
		req := httptest.NewRequest(http.MethodPost, "/api/activities/create", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", anonymous))
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})
}
