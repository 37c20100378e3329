package product

import (
	"time"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db/models"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/pagination"
)

// ProductDTO is the catalog shape returned to clients.
type ProductDTO struct {
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
	Color       *string   `json:"color,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Query    string `json:"q,omitempty"`
	Category string `json:"category,omitempty"`
}

// ListProductsInput captures the inputs needed to paginate/filter the catalog.
type ListProductsInput struct {
	Filters    ProductListFilters
	Pagination pagination.Params
}

// ProductListResult is one page of the catalog.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return &ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Brand:       p.Brand,
		Description: p.Description,
		Images:      images,
		Thumbnail:   p.Thumbnail(),
		Price:       p.Price,
		Tags:        tags,
		Color:       p.Color,
		CreatedAt:   p.CreatedAt,
	}
}
