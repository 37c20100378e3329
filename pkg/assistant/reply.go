package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	CardsStart = "[PRODUCT_CARDS_START]"
	CardsEnd   = "[PRODUCT_CARDS_END]"

	// FallbackReply is shown when the backend answered without any text.
	FallbackReply = "Sorry, I couldn't get a response from the AI."
)

var cardsBlock = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(CardsStart) + `(.*?)` + regexp.QuoteMeta(CardsEnd))

// ProductCard is one product recommended inline by the assistant.
type ProductCard struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
	Link        string  `json:"link"`
}

// Reply is an assistant answer split into prose and product cards. When no
// valid card block exists, Before holds the raw text and Products is empty.
type Reply struct {
	Raw      string        `json:"raw"`
	Before   string        `json:"before"`
	After    string        `json:"after"`
	Products []ProductCard `json:"products"`
	// Malformed is set when a card block was found but could not be decoded.
	Malformed bool `json:"malformed,omitempty"`
}

// Text is the prose of the reply with the card block removed.
func (r Reply) Text() string {
	if len(r.Products) == 0 && !r.hasBlock() {
		return r.Raw
	}
	return strings.TrimSpace(strings.TrimSpace(r.Before) + "\n\n" + strings.TrimSpace(r.After))
}

func (r Reply) HasCards() bool {
	return len(r.Products) > 0
}

func (r Reply) hasBlock() bool {
	return !r.Malformed && cardsBlock.MatchString(r.Raw)
}

// ParseReply extracts the first product card block. A block that is not a
// JSON array of cards leaves the text untouched.
func ParseReply(text string) Reply {
	reply := Reply{Raw: text, Before: text, Products: []ProductCard{}}

	loc := cardsBlock.FindStringSubmatchIndex(text)
	if loc == nil {
		return reply
	}

	var cards []ProductCard
	if err := json.Unmarshal([]byte(strings.TrimSpace(text[loc[2]:loc[3]])), &cards); err != nil {
		reply.Malformed = true
		return reply
	}

	reply.Before = text[:loc[0]]
	reply.After = text[loc[1]:]
	if cards != nil {
		reply.Products = cards
	}
	return reply
}
