// Package assistant shapes requests to the shopping assistant and parses its
// replies. It performs no I/O.
package assistant

import (
	"strings"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
)

const (
	MaxContextTurns    = 5
	MaxContextSearches = 5
	MaxContextViews    = 10
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=8000"`
}

type CartItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// BrowsingContext is the activity snapshot handed to the assistant.
type BrowsingContext struct {
	RecentSearches []string   `json:"recentSearches"`
	RecentlyViewed []string   `json:"recentlyViewed"`
	CartItems      []CartItem `json:"cartItems"`
	CartTotal      float64    `json:"cartTotal"`
	LastActivity   time.Time  `json:"lastActivity"`
}

// Payload is what gets sent alongside a new user query.
type Payload struct {
	Query           string           `json:"query"`
	Context         []Message        `json:"context,omitempty"`
	BrowsingContext *BrowsingContext `json:"browsingContext,omitempty"`
}

// RecentTurns returns at most the last MaxContextTurns messages, oldest first.
// It returns nil when there are none so the field is omitted on the wire.
func RecentTurns(messages []Message) []Message {
	if len(messages) == 0 {
		return nil
	}
	start := len(messages) - MaxContextTurns
	if start < 0 {
		start = 0
	}
	out := make([]Message, 0, len(messages)-start)
	for _, msg := range messages[start:] {
		out = append(out, Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// BuildBrowsingContext snapshots the most recent searches and views plus the
// whole cart. The record's lists are most-recent-first, so the head is kept.
func BuildBrowsingContext(rec activity.Record) BrowsingContext {
	items := make([]CartItem, 0, len(rec.Cart))
	for _, line := range rec.Cart {
		items = append(items, CartItem{
			ID:       line.ID,
			Title:    line.Title,
			Price:    line.Price,
			Quantity: line.Quantity,
		})
	}
	return BrowsingContext{
		RecentSearches: head(rec.SearchHistory, MaxContextSearches),
		RecentlyViewed: head(rec.ViewedProducts, MaxContextViews),
		CartItems:      items,
		CartTotal:      activity.CartTotalFloat(rec.Cart),
		LastActivity:   rec.LastActivity,
	}
}

// BuildPayload assembles the request for a new query. A nil record omits the
// browsing context.
func BuildPayload(query string, history []Message, rec *activity.Record) Payload {
	payload := Payload{
		Query:   strings.TrimSpace(query),
		Context: RecentTurns(history),
	}
	if rec != nil {
		bc := BuildBrowsingContext(*rec)
		payload.BrowsingContext = &bc
	}
	return payload
}

func head(list []string, n int) []string {
	if len(list) < n {
		n = len(list)
	}
	return append(make([]string, 0, n), list[:n]...)
}
