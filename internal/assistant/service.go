package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	product "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/products"
	domain "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/aiclient"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
)

// QueryRequest is a chat query from a client.
type QueryRequest struct {
	Query           string                     `json:"query" validate:"required,max=2000"`
	Context         []assistant.Message        `json:"context,omitempty" validate:"omitempty,max=50,dive"`
	BrowsingContext *assistant.BrowsingContext `json:"browsingContext,omitempty"`
}

// Card is a recommended product, filled in from the catalog when known.
type Card struct {
	assistant.ProductCard
	InCatalog bool `json:"inCatalog"`
}

// QueryResponse is the parsed assistant answer.
type QueryResponse struct {
	Reply    string `json:"reply"`
	Text     string `json:"text"`
	Products []Card `json:"products"`
}

// ImageSearchResponse carries the backend answer for an image upload.
type ImageSearchResponse struct {
	Reply   string          `json:"reply"`
	Results json.RawMessage `json:"results,omitempty"`
}

// Service proxies chat queries to the assistant backend.
type Service interface {
	Query(ctx context.Context, userID uuid.UUID, req QueryRequest) (*QueryResponse, error)
	ImageSearch(ctx context.Context, filename string, image io.Reader) (*ImageSearchResponse, error)
}

type aiBackend interface {
	AgentQuery(ctx context.Context, q aiclient.AgentQuery) (*aiclient.AgentResponse, error)
	ImageSearch(ctx context.Context, filename string, image io.Reader) (*aiclient.AgentResponse, error)
}

type activityReader interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.Record, error)
}

type catalog interface {
	FindByIDs(ctx context.Context, ids []string) ([]product.ProductDTO, error)
}

// ServiceParams bundles the assistant dependencies. Activity and Catalog are optional.
type ServiceParams struct {
	AI       aiBackend
	Activity activityReader
	Catalog  catalog
	Logger   *logger.Logger
}

type service struct {
	ai       aiBackend
	activity activityReader
	catalog  catalog
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.AI == nil {
		return nil, fmt.Errorf("ai client is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		ai:       params.AI,
		activity: params.Activity,
		catalog:  params.Catalog,
		logg:     logg,
	}, nil
}

// Query forwards req to the backend. For a signed-in caller that sent no
// browsing context, the stored account activity is used instead.
func (s *service) Query(ctx context.Context, userID uuid.UUID, req QueryRequest) (*QueryResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query is required")
	}

	var rec *domain.Record
	if req.BrowsingContext == nil && userID != uuid.Nil && s.activity != nil {
		loaded, err := s.activity.Get(ctx, userID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "assistant.context_unavailable")
		} else {
			rec = &loaded
		}
	}

	payload := assistant.BuildPayload(query, req.Context, rec)
	if req.BrowsingContext != nil {
		payload.BrowsingContext = req.BrowsingContext
	}

	uid := ""
	if userID != uuid.Nil {
		uid = userID.String()
	}
	resp, err := s.ai.AgentQuery(ctx, aiclient.NewTextQuery(uid, payload))
	if err != nil {
		return nil, err
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		text = assistant.FallbackReply
	}
	reply := assistant.ParseReply(text)
	if reply.Malformed {
		s.logg.Warn(ctx, "assistant.cards_malformed")
	}

	cards := s.enrich(ctx, reply.Products)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"products":     len(cards),
		"with_context": payload.BrowsingContext != nil,
	}), "assistant.query")

	return &QueryResponse{
		Reply:    reply.Raw,
		Text:     reply.Text(),
		Products: cards,
	}, nil
}

// enrich fills blank card fields from the catalog in one lookup. Catalog
// failures leave the cards as the backend sent them.
func (s *service) enrich(ctx context.Context, cards []assistant.ProductCard) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		out = append(out, Card{ProductCard: c})
	}
	if s.catalog == nil || len(cards) == 0 {
		return out
	}

	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		if c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "assistant.enrich_failed")
		return out
	}

	byID := make(map[string]product.ProductDTO, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for i := range out {
		p, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		out[i].InCatalog = true
		if out[i].Title == "" {
			out[i].Title = p.Title
		}
		if out[i].Brand == "" {
			out[i].Brand = p.Brand
		}
		if out[i].Price == 0 {
			out[i].Price = p.Price
		}
		if out[i].Description == "" {
			out[i].Description = p.Description
		}
		if out[i].Thumbnail == "" {
			out[i].Thumbnail = p.Thumbnail
		}
		if out[i].Link == "" {
			out[i].Link = "/products/" + p.ID
		}
	}
	return out
}

func (s *service) ImageSearch(ctx context.Context, filename string, image io.Reader) (*ImageSearchResponse, error) {
	resp, err := s.ai.ImageSearch(ctx, filename, image)
	if err != nil {
		return nil, err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		text = assistant.FallbackReply
	}
	return &ImageSearchResponse{Reply: text, Results: resp.Raw()}, nil
}
