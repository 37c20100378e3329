package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
)

// Product is a catalog entry.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Price       float64   `json:"price"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ProductPage struct {
	Products   []Product `json:"products"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

type ProductQuery struct {
	Query    string
	Category string
	Limit    int
	Cursor   string
}

func (c *Client) Products(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	values := url.Values{}
	if s := strings.TrimSpace(q.Query); s != "" {
		values.Set("q", s)
	}
	if s := strings.TrimSpace(q.Category); s != "" {
		values.Set("category", s)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Cursor != "" {
		values.Set("cursor", q.Cursor)
	}
	path := "/api/public/v1/products"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out ProductPage
	if err := c.do(ctx, http.MethodGet, path, "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	path := "/api/public/v1/products/" + url.PathEscape(strings.TrimSpace(id))
	if err := c.do(ctx, http.MethodGet, path, "", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Card is a product recommended by the assistant.
type Card struct {
	assistant.ProductCard
	InCatalog bool `json:"inCatalog"`
}

type AssistantReply struct {
	Reply    string `json:"reply"`
	Text     string `json:"text"`
	Products []Card `json:"products"`
}

// AskAssistant sends a chat payload. With a token the authenticated route is
// used so the server can attach stored activity when none is supplied.
func (c *Client) AskAssistant(ctx context.Context, accessToken string, payload assistant.Payload) (*AssistantReply, error) {
	path := "/api/public/v1/assistant/query"
	if accessToken != "" {
		path = "/api/v1/assistant/query"
	}
	var out AssistantReply
	if err := c.do(ctx, http.MethodPost, path, accessToken, payload, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
