package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/controllers"
	activitysvc "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/activity"
	assistantsvc "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/assistant"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/auth"
	product "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/products"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/users"
	domain "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	pkgAuth "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/auth"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/auth/session"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/config"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db/models"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/metrics"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubUsers struct{}

func (stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

type stubActivityService struct {
	syncCalls int
}

func (s *stubActivityService) Get(ctx context.Context, userID uuid.UUID) (domain.Record, error) {
	return domain.Empty(time.Now()), nil
}

func (s *stubActivityService) Merge(ctx context.Context, userID uuid.UUID, in activitysvc.MergeInput) (*activitysvc.MergeResult, error) {
	return &activitysvc.MergeResult{Record: domain.Empty(time.Now())}, nil
}

func (s *stubActivityService) SyncCart(ctx context.Context, userID uuid.UUID, cart []domain.CartLine) (domain.Record, error) {
	s.syncCalls++
	rec := domain.Empty(time.Now())
	rec.ReplaceCart(cart, time.Now())
	return rec, nil
}

type stubProductService struct{}

func (stubProductService) ListProducts(ctx context.Context, in product.ListProductsInput) (*product.ProductListResult, error) {
	return &product.ProductListResult{Products: []product.ProductDTO{}}, nil
}

func (stubProductService) GetProduct(ctx context.Context, id string) (*product.ProductDTO, error) {
	return &product.ProductDTO{ID: id}, nil
}

func (stubProductService) FindByIDs(ctx context.Context, ids []string) ([]product.ProductDTO, error) {
	return nil, nil
}

type stubAssistantService struct{}

func (stubAssistantService) Query(ctx context.Context, userID uuid.UUID, req assistantsvc.QueryRequest) (*assistantsvc.QueryResponse, error) {
	return &assistantsvc.QueryResponse{Reply: "ok", Text: "ok"}, nil
}

func (stubAssistantService) ImageSearch(ctx context.Context, filename string, image io.Reader) (*assistantsvc.ImageSearchResponse, error) {
	return &assistantsvc.ImageSearchResponse{Reply: "ok"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

type testEnv struct {
	router   http.Handler
	sessions *session.Manager
	activity *stubActivityService
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	sessions, err := session.NewManager(client, cfg.JWT)
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	reg := prometheus.NewRegistry()
	act := &stubActivityService{}
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	router := NewRouter(cfg, logg, Dependencies{
		Redis:          client,
		Sessions:       sessions,
		Auth:           stubAuthService{},
		Register:       stubRegisterService{},
		Users:          stubUsers{},
		Activity:       act,
		Products:       stubProductService{},
		Assistant:      stubAssistantService{},
		HealthChecks:   map[string]controllers.Pinger{"db": stubPinger{}, "redis": client},
		Gatherer:       reg,
		RequestMetrics: metrics.NewHTTPMetrics(reg),
	})
	return &testEnv{router: router, sessions: sessions, activity: act, registry: reg}
}

func (e *testEnv) token(t *testing.T, cfg *config.Config) string {
	t.Helper()
	accessID := session.NewAccessID()
	if _, err := e.sessions.Generate(context.Background(), accessID, uuid.New()); err != nil {
		t.Fatalf("generate session: %v", err)
	}
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "ann@example.com",
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, testConfig())
	for _, path := range []string{"/health/live", "/health/ready"} {
		if resp := env.do(httptest.NewRequest(http.MethodGet, path, nil)); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if resp := env.do(httptest.NewRequest(http.MethodGet, "/api/public/v1/products", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for product list got %d", resp.Code)
	}
	if resp := env.do(httptest.NewRequest(http.MethodGet, "/api/public/v1/products/sku-1", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for product detail got %d", resp.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/public/v1/assistant/query", strings.NewReader(`{"query":"tents"}`))
	if resp := env.do(req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public assistant got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	env := newTestEnv(t, testConfig())
	for _, path := range []string{"/api/v1/activity", "/api/v1/users/me"} {
		if resp := env.do(httptest.NewRequest(http.MethodGet, path, nil)); resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token got %d", path, resp.Code)
		}
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/activity", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(t, cfg))
	if resp := env.do(req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCartSyncRequiresIdempotencyKeyAndReplays(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, cfg)
	token := env.token(t, cfg)
	body := `{"cart":[{"id":"sku-1","title":"Mug","price":4,"quantity":1}]}`

	req := httptest.NewRequest(http.MethodPut, "/api/v1/activity/cart", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if resp := env.do(req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodPut, "/api/v1/activity/cart", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "sync-1")
		if resp := env.do(req); resp.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, resp.Code)
		}
	}
	if env.activity.syncCalls != 1 {
		t.Fatalf("expected one sync call, got %d", env.activity.syncCalls)
	}
}

func TestMergeRouteDoesNotRequireIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, cfg)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activity/merge", strings.NewReader(`{"sessionId":"session_1_abc","sessionData":{}}`))
	req.Header.Set("Authorization", "Bearer "+env.token(t, cfg))
	if resp := env.do(req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1}
	env := newTestEnv(t, cfg)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ann@example.com","password":"x"}`))
		req.RemoteAddr = "10.0.0.1:1234"
		codes = append(codes, env.do(req).Code)
	}
	if codes[0] == http.StatusTooManyRequests || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected second login to be limited, got %v", codes)
	}
}

func TestMetricsEndpointExposesRequestCounts(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("expected request counter in metrics output:\n%s", resp.Body.String())
	}
}
