package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

const cartRoute = "/api/v1/activity/cart"

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func cartRequest(userID, key, body string) *http.Request {
	req := requestWithPattern(http.MethodPut, cartRoute, cartRoute, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithUserID(req.Context(), userID))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		ok      bool
	}{
		{"cart sync", http.MethodPut, cartRoute, true},
		{"cart read", http.MethodGet, cartRoute, false},
		{"merge", http.MethodPost, "/api/v1/activity/merge", false},
		{"login", http.MethodPost, "/api/v1/auth/login", false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != defaultIdempotencyTTL {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, defaultIdempotencyTTL, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	_, store := newMiniRedis(t)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	Idempotency(store, nil)(handler).ServeHTTP(resp, cartRequest("u1", "", `{"cart":[]}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	mr, store := newMiniRedis(t)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"activity":{"cart":[]}}}`))
	})
	mw := Idempotency(store, nil)

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, cartRequest("u1", "abc", `{"cart":[]}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected first response 200 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, cartRequest("u1", "abc", `{"cart":[]}`))
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"data":{"activity":{"cart":[]}}}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}

	var stored int
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "sf:idempotency:") {
			stored++
			if ttl := mr.TTL(key); ttl <= 0 || ttl > 24*time.Hour {
				t.Fatalf("unexpected ttl %v on %s", ttl, key)
			}
		}
	}
	if stored != 1 {
		t.Fatalf("expected one stored record, got %d", stored)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	_, store := newMiniRedis(t)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	mw := Idempotency(store, nil)

	mw(handler).ServeHTTP(httptest.NewRecorder(), cartRequest("u1", "same", `{"cart":[]}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), cartRequest("u2", "same", `{"cart":[]}`))
	if calls != 2 {
		t.Fatalf("expected each user to run the handler, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	_, store := newMiniRedis(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := Idempotency(store, nil)

	mw(handler).ServeHTTP(httptest.NewRecorder(), cartRequest("u1", "xyz", `{"cart":[]}`))

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, cartRequest("u1", "xyz", `{"cart":[{"id":"sku1","quantity":1}]}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}
