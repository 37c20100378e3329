package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/auth"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/auth/session"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/config"
)

type stubSessionTokenManager struct {
	lastRevoked    string
	lastRotateOld  string
	lastRotateUser uuid.UUID
	lastRotateBody string
	rotateRespID   string
	rotateRespTok  string
	rotateErr      error
	revokeErr      error
}

func (s *stubSessionTokenManager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	s.lastRotateOld = oldAccessID
	s.lastRotateUser = userID
	s.lastRotateBody = provided
	return s.rotateRespID, s.rotateRespTok, s.rotateErr
}

func (s *stubSessionTokenManager) Revoke(ctx context.Context, accessID string) error {
	s.lastRevoked = accessID
	return s.revokeErr
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, issuedAt time.Time) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, issuedAt, auth.AccessTokenPayload{
		UserID: userID,
		Email:  "ann@example.com",
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	return token, accessID
}

func TestAuthLogout(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{}
	handler := AuthLogout(manager, cfg, nil)

	token, jti := mintTestToken(t, cfg, uuid.New(), time.Now())
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if manager.lastRevoked != jti {
		t.Fatalf("expected revoked %s got %s", jti, manager.lastRevoked)
	}
}

func TestAuthLogoutAcceptsExpiredToken(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{}
	token, jti := mintTestToken(t, cfg, uuid.New(), time.Now().Add(-time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	AuthLogout(manager, cfg, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || manager.lastRevoked != jti {
		t.Fatalf("expected expired token to log out, got %d revoked=%q", rec.Code, manager.lastRevoked)
	}
}

func TestAuthRefresh(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{
		rotateRespID:  "new-jti",
		rotateRespTok: "new-refresh",
	}
	userID := uuid.New()
	token, jti := mintTestToken(t, cfg, userID, time.Now().Add(-time.Hour))

	body, _ := json.Marshal(map[string]string{"refreshToken": "old-refresh"})
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	AuthRefresh(manager, cfg, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if manager.lastRotateOld != jti || manager.lastRotateBody != "old-refresh" || manager.lastRotateUser != userID {
		t.Fatalf("unexpected rotate call %+v", manager)
	}

	var payload struct {
		Data refreshResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Data.RefreshToken != "new-refresh" {
		t.Fatalf("unexpected refresh token %q", payload.Data.RefreshToken)
	}
	claims, err := auth.ParseAccessToken(cfg, payload.Data.AccessToken)
	if err != nil {
		t.Fatalf("parse new token: %v", err)
	}
	if claims.ID != "new-jti" || claims.UserID != userID {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAuthRefreshRejectsInvalidRefreshToken(t *testing.T) {
	cfg := testJWTConfig()
	manager := &stubSessionTokenManager{rotateErr: session.ErrInvalidRefreshToken}
	token, _ := mintTestToken(t, cfg, uuid.New(), time.Now())

	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader([]byte(`{"refreshToken":"bad"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	AuthRefresh(manager, cfg, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthRefreshRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader([]byte(`{"refreshToken":"x"}`)))
	rec := httptest.NewRecorder()
	AuthRefresh(&stubSessionTokenManager{}, testJWTConfig(), nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}
