package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

func writeData(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data}); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL + "/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestLoginDecodesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/auth/login" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["email"] != "a@example.com" || body["password"] != "secret123" {
			t.Fatalf("unexpected body %v", body)
		}
		writeData(t, w, http.StatusOK, map[string]any{
			"accessToken":  "access",
			"refreshToken": "refresh",
			"user":         map[string]any{"id": "u1", "name": "Ann", "email": "a@example.com"},
		})
	})

	result, err := client.Login(context.Background(), "a@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken != "access" || result.RefreshToken != "refresh" || result.User.ID != "u1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestErrorEnvelopeBecomesTypedError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"VALIDATION_ERROR","message":"invalid session data","details":[{"field":"cart[0].quantity","message":"must be at least 1"}]}}`))
	})

	_, err := client.Merge(context.Background(), "tok", "session_1_abc", activity.Empty(time.Now()))
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != pkgerrors.CodeValidation || typed.Message() != "invalid session data" {
		t.Fatalf("unexpected error %v", typed)
	}
	if typed.Details() == nil {
		t.Fatalf("expected details")
	}
}

func TestNonEnvelopeErrorUsesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	})
	_, err := client.Activity(context.Background(), "tok")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestMergeSendsSessionPayload(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	session := activity.Empty(now)
	session.AddToCart(activity.CartLine{ID: "sku1", Title: "Mug", Price: 4}, now)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/activity/merge" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var body struct {
			SessionID   string          `json:"sessionId"`
			SessionData activity.Record `json:"sessionData"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.SessionID != "session_1_abc" || len(body.SessionData.Cart) != 1 {
			t.Fatalf("unexpected body %+v", body)
		}
		writeData(t, w, http.StatusOK, map[string]any{
			"message":  "Session data merged successfully",
			"activity": body.SessionData,
			"replayed": false,
		})
	})

	result, err := client.Merge(context.Background(), "tok", "session_1_abc", session)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.Activity.Cart) != 1 || result.Activity.ViewedProducts == nil {
		t.Fatalf("unexpected activity %+v", result.Activity)
	}
}

func TestSyncCartSendsIdempotencyKey(t *testing.T) {
	keys := map[string]bool{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("expected PUT, got %s", r.Method)
		}
		key := r.Header.Get(HeaderIdempotencyKey)
		if key == "" {
			t.Fatalf("missing idempotency key")
		}
		keys[key] = true
		var body struct {
			Cart []activity.CartLine `json:"cart"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Cart == nil {
			t.Fatalf("cart should encode as []")
		}
		writeData(t, w, http.StatusOK, map[string]any{"activity": map[string]any{"cart": body.Cart}})
	})

	for i := 0; i < 2; i++ {
		if _, err := client.SyncCart(context.Background(), "tok", nil); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}
	if len(keys) != 2 {
		t.Fatalf("expected distinct keys per call, got %v", keys)
	}
}

func TestProductsQueryString(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "tent" || q.Get("category") != "Outdoor" || q.Get("limit") != "5" {
			t.Fatalf("unexpected query %v", q)
		}
		writeData(t, w, http.StatusOK, map[string]any{
			"products":   []map[string]any{{"id": "p1", "title": "Tent", "price": 99.5}},
			"nextCursor": "abc",
		})
	})
	page, err := client.Products(context.Background(), ProductQuery{Query: "tent", Category: "Outdoor", Limit: 5})
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(page.Products) != 1 || page.NextCursor != "abc" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestAskAssistantRoutesByToken(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeData(t, w, http.StatusOK, map[string]any{"reply": "hi", "text": "hi", "products": []any{}})
	})
	payload := assistant.BuildPayload("hello", nil, nil)
	if _, err := client.AskAssistant(context.Background(), "", payload); err != nil {
		t.Fatalf("public ask: %v", err)
	}
	if _, err := client.AskAssistant(context.Background(), "tok", payload); err != nil {
		t.Fatalf("private ask: %v", err)
	}
	if paths[0] != "/api/public/v1/assistant/query" || paths[1] != "/api/v1/assistant/query" {
		t.Fatalf("unexpected paths %v", paths)
	}
}
