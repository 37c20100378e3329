// Package shopper drives the storefront as a single client: it owns the
// guest session, the signed-in account view and the chat cache, and talks
// to the API for everything that needs the server.
package shopper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/apiclient"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/guest"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
)

const (
	credentialsKey = "authState"
	accountViewKey = "accountActivity"
)

// API is the subset of the HTTP API the client depends on.
type API interface {
	Login(ctx context.Context, email, password string) (*apiclient.AuthResult, error)
	Register(ctx context.Context, in apiclient.RegisterInput) (*apiclient.AuthResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*apiclient.Tokens, error)
	Logout(ctx context.Context, accessToken string) error
	Activity(ctx context.Context, accessToken string) (activity.Record, error)
	Merge(ctx context.Context, accessToken, sessionID string, session activity.Record) (*apiclient.MergeResult, error)
	SyncCart(ctx context.Context, accessToken string, cart []activity.CartLine) (activity.Record, error)
	Product(ctx context.Context, id string) (*apiclient.Product, error)
	AskAssistant(ctx context.Context, accessToken string, payload assistant.Payload) (*apiclient.AssistantReply, error)
}

// Credentials are the persisted tokens of the signed-in account.
type Credentials struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         apiclient.User `json:"user"`
}

// Shopper is safe for use by one process at a time.
type Shopper struct {
	api   API
	store *guest.Store
	logg  *logger.Logger
	now   func() time.Time

	mu sync.Mutex
}

type Params struct {
	API    API
	Store  *guest.Store
	Logger *logger.Logger
	Now    func() time.Time
}

func New(params Params) (*Shopper, error) {
	if params.API == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Shopper{api: params.API, store: params.Store, logg: logg, now: now}, nil
}

// Credentials returns the signed-in account, or nil for a guest.
func (s *Shopper) Credentials() (*Credentials, error) {
	var creds Credentials
	err := s.store.GetJSON(credentialsKey, &creds)
	if errors.Is(err, guest.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if creds.AccessToken == "" {
		return nil, nil
	}
	return &creds, nil
}

// SessionID is the guest session id, stable across logins.
func (s *Shopper) SessionID() (string, error) {
	return s.store.SessionID()
}

// Activity returns the active view: the account record when signed in,
// otherwise the guest session.
func (s *Shopper) Activity() (activity.Record, error) {
	creds, err := s.Credentials()
	if err != nil {
		return activity.Record{}, err
	}
	if creds == nil {
		return s.store.Load()
	}
	return s.accountView()
}

func (s *Shopper) accountView() (activity.Record, error) {
	var rec activity.Record
	err := s.store.GetJSON(accountViewKey, &rec)
	if errors.Is(err, guest.ErrNotFound) {
		return activity.Empty(s.now()), nil
	}
	if err != nil {
		return activity.Record{}, err
	}
	rec.Normalize()
	return rec, nil
}

func (s *Shopper) setAccountView(rec activity.Record) error {
	rec.Normalize()
	return s.store.SetJSON(accountViewKey, rec)
}

// Refresh reloads the account view from the server.
func (s *Shopper) Refresh(ctx context.Context) (activity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.requireCredentials()
	if err != nil {
		return activity.Record{}, err
	}
	var rec activity.Record
	err = s.withToken(ctx, creds, func(token string) error {
		var callErr error
		rec, callErr = s.api.Activity(ctx, token)
		return callErr
	})
	if err != nil {
		return activity.Record{}, err
	}
	if err := s.setAccountView(rec); err != nil {
		return activity.Record{}, err
	}
	return rec, nil
}

func (s *Shopper) requireCredentials() (*Credentials, error) {
	creds, err := s.Credentials()
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}
	return creds, nil
}

// withToken runs call with the access token and retries it once after a
// token refresh when the server answers UNAUTHORIZED.
func (s *Shopper) withToken(ctx context.Context, creds *Credentials, call func(token string) error) error {
	err := call(creds.AccessToken)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) || creds.RefreshToken == "" {
		return err
	}
	tokens, refreshErr := s.api.Refresh(ctx, creds.AccessToken, creds.RefreshToken)
	if refreshErr != nil {
		s.logg.Warn(ctx, "shopper.refresh_failed")
		return err
	}
	creds.AccessToken = tokens.AccessToken
	creds.RefreshToken = tokens.RefreshToken
	if saveErr := s.store.SetJSON(credentialsKey, creds); saveErr != nil {
		return saveErr
	}
	return call(creds.AccessToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
