package shopper

import (
	"context"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/apiclient"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

// SignInResult reports the account view after a login or registration.
type SignInResult struct {
	User     apiclient.User
	Activity activity.Record
	Replayed bool
}

// Login signs in and hands the guest session to the account.
func (s *Shopper) Login(ctx context.Context, email, password string) (*SignInResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	auth, err := s.api.Login(ctx, normalizeEmail(email), password)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, auth)
}

// Register creates an account and hands the guest session to it.
func (s *Shopper) Register(ctx context.Context, in apiclient.RegisterInput) (*SignInResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.Email = normalizeEmail(in.Email)
	auth, err := s.api.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, auth)
}

// completeSignIn merges the guest session and only then persists anything
// locally, so a failed merge leaves the client exactly as it was.
func (s *Shopper) completeSignIn(ctx context.Context, auth *apiclient.AuthResult) (*SignInResult, error) {
	sessionID, err := s.store.SessionID()
	if err != nil {
		return nil, err
	}
	session, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	merged, err := s.api.Merge(ctx, auth.AccessToken, sessionID, session)
	if err != nil {
		s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "shopper.merge_failed")
		return nil, err
	}

	creds := Credentials{AccessToken: auth.AccessToken, RefreshToken: auth.RefreshToken, User: auth.User}
	if err := s.store.SetJSON(credentialsKey, creds); err != nil {
		return nil, err
	}
	if err := s.setAccountView(merged.Activity); err != nil {
		return nil, err
	}
	if err := s.store.Reset(); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"session_id": sessionID,
		"user_id":    auth.User.ID,
		"replayed":   merged.Replayed,
	}), "shopper.signed_in")

	return &SignInResult{User: auth.User, Activity: merged.Activity, Replayed: merged.Replayed}, nil
}

// Logout revokes the session on the server, forgets the account view and
// resets the guest session. Local state is cleared even if revocation fails.
func (s *Shopper) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds, err := s.Credentials()
	if err != nil {
		return err
	}
	if creds == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}
	if err := s.api.Logout(ctx, creds.AccessToken); err != nil {
		s.logg.Warn(ctx, "shopper.logout_revoke_failed")
	}
	if err := s.store.Delete(credentialsKey); err != nil {
		return err
	}
	if err := s.store.Delete(accountViewKey); err != nil {
		return err
	}
	return s.store.Reset()
}
