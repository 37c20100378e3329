package guest

import (
	"errors"
	"strings"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
)

const (
	chatKeyPrefix  = "chatHistory_"
	anonymousChat  = "guest"
	MaxChatHistory = 200
)

func chatKey(accountID string) string {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		accountID = anonymousChat
	}
	return chatKeyPrefix + accountID
}

// ChatHistory returns the cached conversation for an account, oldest first.
// An empty account id selects the signed-out conversation.
func (s *Store) ChatHistory(accountID string) ([]assistant.Message, error) {
	var history []assistant.Message
	err := s.GetJSON(chatKey(accountID), &history)
	if errors.Is(err, ErrNotFound) {
		return []assistant.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

// AppendChat adds turns to the cached conversation, keeping the newest
// MaxChatHistory messages.
func (s *Store) AppendChat(accountID string, turns ...assistant.Message) ([]assistant.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, err := s.ChatHistory(accountID)
	if err != nil {
		return nil, err
	}
	history = append(history, turns...)
	if over := len(history) - MaxChatHistory; over > 0 {
		history = history[over:]
	}
	if err := s.SetJSON(chatKey(accountID), history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *Store) ClearChat(accountID string) error {
	return s.Delete(chatKey(accountID))
}
