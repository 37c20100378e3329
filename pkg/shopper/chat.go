package shopper

import (
	"context"
	"strings"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/apiclient"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
)

// ErrorReply is cached as the assistant turn when the request fails.
const ErrorReply = "Sorry, something went wrong. Please try again."

// ChatResult is one exchange with the assistant.
type ChatResult struct {
	Text     string
	Products []apiclient.Card
	History  int
}

// Chat sends a message with the last cached turns and the active view as
// context. Both turns are appended to the conversation of the current
// account; a failed request caches ErrorReply and returns the error.
func (s *Shopper) Chat(ctx context.Context, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.Credentials()
	if err != nil {
		return nil, err
	}
	accountID := ""
	if creds != nil {
		accountID = creds.User.ID
	}

	history, err := s.store.ChatHistory(accountID)
	if err != nil {
		return nil, err
	}
	view, err := s.activeViewLocked(creds)
	if err != nil {
		return nil, err
	}
	payload := assistant.BuildPayload(message, history, &view)

	var reply *apiclient.AssistantReply
	call := func(token string) error {
		var callErr error
		reply, callErr = s.api.AskAssistant(ctx, token, payload)
		return callErr
	}
	if creds != nil {
		err = s.withToken(ctx, creds, call)
	} else {
		err = call("")
	}

	userTurn := assistant.Message{Role: assistant.RoleUser, Content: message}
	if err != nil {
		if _, appendErr := s.store.AppendChat(accountID, userTurn, assistant.Message{Role: assistant.RoleAssistant, Content: ErrorReply}); appendErr != nil {
			s.logg.Warn(ctx, "shopper.chat_cache_failed")
		}
		return nil, err
	}

	text := reply.Reply
	if strings.TrimSpace(text) == "" {
		text = assistant.FallbackReply
	}
	all, err := s.store.AppendChat(accountID, userTurn, assistant.Message{Role: assistant.RoleAssistant, Content: text})
	if err != nil {
		return nil, err
	}

	shown := reply.Text
	if shown == "" {
		shown = text
	}
	return &ChatResult{Text: shown, Products: reply.Products, History: len(all)}, nil
}

// ChatHistory returns the cached conversation of the current account.
func (s *Shopper) ChatHistory() ([]assistant.Message, error) {
	creds, err := s.Credentials()
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return s.store.ChatHistory("")
	}
	return s.store.ChatHistory(creds.User.ID)
}

func (s *Shopper) ClearChat() error {
	creds, err := s.Credentials()
	if err != nil {
		return err
	}
	if creds == nil {
		return s.store.ClearChat("")
	}
	return s.store.ClearChat(creds.User.ID)
}

func (s *Shopper) activeViewLocked(creds *Credentials) (activity.Record, error) {
	if creds == nil {
		return s.store.Load()
	}
	return s.accountView()
}
