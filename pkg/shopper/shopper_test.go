package shopper

import (
	"context"
	"testing"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/apiclient"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/guest"
)

type fakeAPI struct {
	now time.Time

	account  activity.Record
	mergeErr error
	syncErr  error
	askErr   error

	merges      []activity.Record
	mergeIDs    []string
	syncs       [][]activity.CartLine
	asked       []assistant.Payload
	askTokens   []string
	logouts     int
	refreshes   int
	expireFirst bool
	tokens      map[string]bool
}

func newFakeAPI(now time.Time) *fakeAPI {
	return &fakeAPI{now: now, account: activity.Empty(now), tokens: map[string]bool{"access-1": true}}
}

func (f *fakeAPI) authResult() *apiclient.AuthResult {
	return &apiclient.AuthResult{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         apiclient.User{ID: "user-1", Name: "Ann", Email: "ann@example.com"},
	}
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*apiclient.AuthResult, error) {
	if password != "secret123" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return f.authResult(), nil
}

func (f *fakeAPI) Register(ctx context.Context, in apiclient.RegisterInput) (*apiclient.AuthResult, error) {
	return f.authResult(), nil
}

func (f *fakeAPI) Refresh(ctx context.Context, accessToken, refreshToken string) (*apiclient.Tokens, error) {
	f.refreshes++
	f.tokens["access-2"] = true
	return &apiclient.Tokens{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAPI) Logout(ctx context.Context, accessToken string) error {
	f.logouts++
	return nil
}

func (f *fakeAPI) Activity(ctx context.Context, accessToken string) (activity.Record, error) {
	return f.account.Clone(), nil
}

func (f *fakeAPI) Merge(ctx context.Context, accessToken, sessionID string, session activity.Record) (*apiclient.MergeResult, error) {
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}
	f.merges = append(f.merges, session)
	f.mergeIDs = append(f.mergeIDs, sessionID)
	merged, _ := activity.Merge(&f.account, session, f.now)
	f.account = merged
	return &apiclient.MergeResult{Message: "merged", Activity: merged.Clone()}, nil
}

func (f *fakeAPI) SyncCart(ctx context.Context, accessToken string, cart []activity.CartLine) (activity.Record, error) {
	if f.expireFirst {
		f.expireFirst = false
		delete(f.tokens, accessToken)
	}
	if !f.tokens[accessToken] {
		return activity.Record{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")
	}
	if f.syncErr != nil {
		return activity.Record{}, f.syncErr
	}
	f.syncs = append(f.syncs, cart)
	f.account.ReplaceCart(cart, f.now)
	return f.account.Clone(), nil
}

func (f *fakeAPI) Product(ctx context.Context, id string) (*apiclient.Product, error) {
	if id == "missing" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &apiclient.Product{ID: id, Title: "Title " + id, Price: 10, Images: []string{"img-" + id + ".jpg", "other.jpg"}}, nil
}

func (f *fakeAPI) AskAssistant(ctx context.Context, accessToken string, payload assistant.Payload) (*apiclient.AssistantReply, error) {
	f.asked = append(f.asked, payload)
	f.askTokens = append(f.askTokens, accessToken)
	if f.askErr != nil {
		return nil, f.askErr
	}
	return &apiclient.AssistantReply{Reply: "Try these", Text: "Try these"}, nil
}

func newShopper(t *testing.T) (*Shopper, *fakeAPI) {
	t.Helper()
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	api := newFakeAPI(now)
	clock := func() time.Time { return now }
	s, err := New(Params{API: api, Store: guest.NewStore(guest.NewMemoryBackend(), guest.WithClock(clock)), Now: clock})
	if err != nil {
		t.Fatalf("new shopper: %v", err)
	}
	return s, api
}

func TestGuestMutationsStayLocal(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()

	if _, err := s.AddProduct(ctx, "sku1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	rec, err := s.AddProduct(ctx, "sku1")
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	line, ok := rec.Line("sku1")
	if !ok || line.Quantity != 2 || line.Image != "img-sku1.jpg" {
		t.Fatalf("unexpected line %+v", line)
	}
	if _, err := s.TrackView(ctx, "sku1"); err != nil {
		t.Fatalf("view: %v", err)
	}
	if _, err := s.TrackSearch(ctx, "  mugs "); err != nil {
		t.Fatalf("search: %v", err)
	}
	if _, err := s.TrackSearch(ctx, "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank search, got %v", err)
	}
	if _, err := s.RemoveFromCart(ctx, "nope"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(api.syncs) != 0 {
		t.Fatalf("guest mutations must not sync")
	}

	active, _ := s.Activity()
	if active.SearchHistory[0] != "mugs" || active.ViewedProducts[0] != "sku1" {
		t.Fatalf("unexpected active view %+v", active)
	}
}

func TestLoginMergesSessionAndResetsIt(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()
	sessionID, _ := s.SessionID()

	if _, err := s.AddProduct(ctx, "sku1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	api.account.AddToCart(activity.CartLine{ID: "sku1", Title: "Old", Price: 9, Quantity: 3}, api.now)

	result, err := s.Login(ctx, " Ann@Example.com ", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(api.merges) != 1 || api.mergeIDs[0] != sessionID {
		t.Fatalf("expected one merge with session id, got %v", api.mergeIDs)
	}
	line, _ := result.Activity.Line("sku1")
	if line.Quantity != 4 {
		t.Fatalf("expected merged quantity 4, got %d", line.Quantity)
	}

	active, _ := s.Activity()
	if got, _ := active.Line("sku1"); got.Quantity != 4 {
		t.Fatalf("expected account view to replace local view, got %+v", active)
	}

	creds, _ := s.Credentials()
	if creds == nil || creds.User.ID != "user-1" {
		t.Fatalf("expected stored credentials")
	}
	after, _ := s.SessionID()
	if after != sessionID {
		t.Fatalf("session id changed after login")
	}
	guestRec, _ := s.store.Load()
	if !guestRec.IsEmpty() {
		t.Fatalf("expected guest session reset, got %+v", guestRec)
	}
}

func TestFailedMergeLeavesStateUnchanged(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()
	if _, err := s.AddProduct(ctx, "sku1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	api.mergeErr = pkgerrors.New(pkgerrors.CodeInternal, "boom")

	if _, err := s.Login(ctx, "ann@example.com", "secret123"); err == nil {
		t.Fatalf("expected merge error")
	}
	creds, _ := s.Credentials()
	if creds != nil {
		t.Fatalf("expected no credentials after failed merge")
	}
	rec, _ := s.Activity()
	if rec.ItemCount() != 1 {
		t.Fatalf("expected guest cart intact, got %+v", rec)
	}
}

func TestBadCredentialsDoNotMerge(t *testing.T) {
	s, api := newShopper(t)
	_, err := s.Login(context.Background(), "ann@example.com", "wrong")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(api.merges) != 0 {
		t.Fatalf("merge must not run on failed login")
	}
}

func TestSignedInCartMutationsUseCartSync(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()
	if _, err := s.Register(ctx, apiclient.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := s.AddProduct(ctx, "sku1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	rec, err := s.UpdateQuantity(ctx, "sku1", 3)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(api.syncs) != 2 {
		t.Fatalf("expected two syncs, got %d", len(api.syncs))
	}
	if got, _ := rec.Line("sku1"); got.Quantity != 3 {
		t.Fatalf("expected replace semantics, got %+v", got)
	}
	if len(api.merges) != 1 {
		t.Fatalf("cart mutations must not merge again")
	}

	if _, err := s.TrackView(ctx, "sku9"); err != nil {
		t.Fatalf("view: %v", err)
	}
	if len(api.syncs) != 2 {
		t.Fatalf("views must not sync")
	}
	active, _ := s.Activity()
	if active.ViewedProducts[0] != "sku9" {
		t.Fatalf("expected local view to track views, got %v", active.ViewedProducts)
	}
}

func TestFailedSyncLeavesViewUnchanged(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()
	if _, err := s.Login(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	api.syncErr = pkgerrors.New(pkgerrors.CodeDependency, "down")
	if _, err := s.AddProduct(ctx, "sku1"); err == nil {
		t.Fatalf("expected sync error")
	}
	rec, _ := s.Activity()
	if len(rec.Cart) != 0 {
		t.Fatalf("expected unchanged view, got %+v", rec.Cart)
	}
}

func TestExpiredTokenIsRefreshedOnce(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()
	if _, err := s.Login(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	api.expireFirst = true
	if _, err := s.AddProduct(ctx, "sku1"); err != nil {
		t.Fatalf("add after refresh: %v", err)
	}
	if api.refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", api.refreshes)
	}
	creds, _ := s.Credentials()
	if creds.AccessToken != "access-2" || creds.RefreshToken != "refresh-2" {
		t.Fatalf("expected rotated tokens, got %+v", creds)
	}
}

func TestLogoutClearsAccountAndResetsSession(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()
	sessionID, _ := s.SessionID()
	if _, err := s.Login(ctx, "ann@example.com", "secret123"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := s.AddProduct(ctx, "sku1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if api.logouts != 1 {
		t.Fatalf("expected server logout")
	}
	creds, _ := s.Credentials()
	if creds != nil {
		t.Fatalf("expected signed out")
	}
	rec, _ := s.Activity()
	if !rec.IsEmpty() {
		t.Fatalf("expected empty guest view, got %+v", rec)
	}
	after, _ := s.SessionID()
	if after != sessionID {
		t.Fatalf("logout must keep the session id")
	}
	if err := s.Logout(ctx); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized on second logout, got %v", err)
	}
}

func TestChatSendsContextAndCachesTurns(t *testing.T) {
	s, api := newShopper(t)
	ctx := context.Background()
	if _, err := s.AddProduct(ctx, "sku1"); err != nil {
		t.Fatalf("add: %v", err)
	}

	for i := 0; i < 4; i++ {
		if _, err := s.Chat(ctx, "hello"); err != nil {
			t.Fatalf("chat: %v", err)
		}
	}
	last := api.asked[len(api.asked)-1]
	if len(last.Context) != assistant.MaxContextTurns {
		t.Fatalf("expected %d context turns, got %d", assistant.MaxContextTurns, len(last.Context))
	}
	if last.BrowsingContext == nil || len(last.BrowsingContext.CartItems) != 1 {
		t.Fatalf("expected browsing context with the cart, got %+v", last.BrowsingContext)
	}
	if api.askTokens[0] != "" {
		t.Fatalf("guest chat must not send a token")
	}
	first := api.asked[0]
	if first.Context != nil {
		t.Fatalf("first message should carry no context")
	}

	history, _ := s.ChatHistory()
	if len(history) != 8 {
		t.Fatalf("expected 8 cached turns, got %d", len(history))
	}
}

func TestChatFailureCachesErrorReply(t *testing.T) {
	s, api := newShopper(t)
	api.askErr = pkgerrors.New(pkgerrors.CodeDependency, "ai down")
	if _, err := s.Chat(context.Background(), "hi"); err == nil {
		t.Fatalf("expected error")
	}
	history, _ := s.ChatHistory()
	if len(history) != 2 || history[1].Content != ErrorReply {
		t.Fatalf("unexpected history %+v", history)
	}
	if err := s.ClearChat(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	history, _ = s.ChatHistory()
	if len(history) != 0 {
		t.Fatalf("expected cleared history")
	}
}
