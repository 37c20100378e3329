// Package apiclient is a typed client for the storefront HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/types"
)

const (
	defaultTimeout = 30 * time.Second
	errorBodyLimit = 1 << 16

	HeaderIdempotencyKey = "Idempotency-Key"
)

// Client calls the API on behalf of one shopper.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	c := &Client{baseURL: trimmed, httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// User is the account profile returned by the API.
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Address     *string    `json:"address,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterInput struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Address  *string `json:"address,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// Profile is the signed-in user with their stored activity.
type Profile struct {
	User     User            `json:"user"`
	Activity activity.Record `json:"activity"`
}

// MergeResult is the account record after merging a guest session.
type MergeResult struct {
	Message  string          `json:"message"`
	Activity activity.Record `json:"activity"`
	Replayed bool            `json:"replayed"`
}

type activityEnvelope struct {
	Activity activity.Record `json:"activity"`
}

type mergeRequest struct {
	SessionID   string          `json:"sessionId"`
	SessionData activity.Record `json:"sessionData"`
}

type cartRequest struct {
	Cart []activity.CartLine `json:"cart"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", "", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", "", in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates the refresh token. The expired access token identifies the session.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (*Tokens, error) {
	var out Tokens
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", accessToken, body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", accessToken, nil, nil, nil)
}

func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	var out Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", accessToken, nil, nil, &out); err != nil {
		return nil, err
	}
	out.Activity.Normalize()
	return &out, nil
}

func (c *Client) Activity(ctx context.Context, accessToken string) (activity.Record, error) {
	var out activityEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/v1/activity", accessToken, nil, nil, &out); err != nil {
		return activity.Record{}, err
	}
	out.Activity.Normalize()
	return out.Activity, nil
}

// Merge hands the guest session over to the signed-in account.
func (c *Client) Merge(ctx context.Context, accessToken, sessionID string, session activity.Record) (*MergeResult, error) {
	session.Normalize()
	var out MergeResult
	body := mergeRequest{SessionID: sessionID, SessionData: session}
	if err := c.do(ctx, http.MethodPost, "/api/v1/activity/merge", accessToken, body, nil, &out); err != nil {
		return nil, err
	}
	out.Activity.Normalize()
	return &out, nil
}

// SyncCart replaces the account cart. Each call carries a fresh idempotency key.
func (c *Client) SyncCart(ctx context.Context, accessToken string, cart []activity.CartLine) (activity.Record, error) {
	if cart == nil {
		cart = []activity.CartLine{}
	}
	headers := http.Header{}
	headers.Set(HeaderIdempotencyKey, uuid.NewString())
	var out activityEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/v1/activity/cart", accessToken, cartRequest{Cart: cart}, headers, &out); err != nil {
		return activity.Record{}, err
	}
	out.Activity.Normalize()
	return out.Activity, nil
}

func (c *Client) path(p string) string {
	return c.baseURL + p
}

func (c *Client) do(ctx context.Context, method, path, token string, body any, headers http.Header, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.path(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call api")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode api response")
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode api payload")
	}
	return nil
}

// decodeError turns the error envelope back into a typed error. Bodies that
// are not an envelope fall back to the code implied by the status.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		typed := pkgerrors.New(pkgerrors.Code(envelope.Error.Code), envelope.Error.Message)
		if envelope.Error.Details != nil {
			typed = typed.WithDetails(envelope.Error.Details)
		}
		return typed
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return pkgerrors.New(pkgerrors.CodeForStatus(resp.StatusCode), "api returned "+strconv.Itoa(resp.StatusCode)+": "+msg)
}
