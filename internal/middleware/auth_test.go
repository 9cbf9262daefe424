package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tempohq/tempo/api/pkg/jwt"
)

type mockValidator struct {
	validateFunc func(token string) (*jwt.Claims, error)
}

func (m *mockValidator) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return m.validateFunc(token)
}

func successValidator(userID, email string) *mockValidator {
	return &mockValidator{
		validateFunc: func(token string) (*jwt.Claims, error) {
			return &jwt.Claims{UserID: userID, Email: email}, nil
		},
	}
}

func errorValidator(err error) *mockValidator {
	return &mockValidator{
		validateFunc: func(token string) (*jwt.Claims, error) {
			return nil, err
		},
	}
}

type captureHandler struct {
	called bool
	ctx    context.Context
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func doAuth(t *testing.T, validator TokenValidator, authHeader string) (*httptest.ResponseRecorder, *captureHandler) {
	t.Helper()

	capture := &captureHandler{}
	handler := Auth(validator)(capture)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, capture
}

func TestAuth_ValidToken_SetsContext(t *testing.T) {
	t.Parallel()

	rr, capture := doAuth(t, successValidator("user:1", "alice@example.com"), "Bearer good-token")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !capture.called {
		t.Fatal("expected handler reached")
	}
	if GetUserID(capture.ctx) != "user:1" {
		t.Errorf("expected user ID in context, got %q", GetUserID(capture.ctx))
	}
	if GetUserEmail(capture.ctx) != "alice@example.com" {
		t.Errorf("expected email in context, got %q", GetUserEmail(capture.ctx))
	}
	if GetClaims(capture.ctx) == nil {
		t.Error("expected claims in context")
	}
}

func TestAuth_MissingHeader_Unauthorized(t *testing.T) {
	t.Parallel()

	rr, capture := doAuth(t, successValidator("user:1", "alice@example.com"), "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
	if capture.called {
		t.Error("handler must not run without credentials")
	}
}

func TestAuth_MalformedHeader_Unauthorized(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"good-token", "Basic abc", "Bearer"} {
		rr, capture := doAuth(t, successValidator("user:1", "alice@example.com"), header)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rr.Code)
		}
		if capture.called {
			t.Errorf("header %q: handler must not run", header)
		}
	}
}

func TestAuth_ExpiredToken_Unauthorized(t *testing.T) {
	t.Parallel()

	rr, _ := doAuth(t, errorValidator(jwt.ErrTokenExpired), "Bearer stale")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuth_BadSignature_Unauthorized(t *testing.T) {
	t.Parallel()

	rr, _ := doAuth(t, errorValidator(jwt.ErrInvalidSignature), "Bearer forged")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}
