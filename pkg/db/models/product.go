package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog listing. IDs are opaque strings so catalog imports can
// keep their upstream identifiers.
type Product struct {
	ID          string    `gorm:"column:id;type:text;primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Category    string    `gorm:"column:category;not null;default:''"`
	Subcategory string    `gorm:"column:subcategory;not null;default:''"`
	Brand       string    `gorm:"column:brand;not null;default:''"`
	Description string    `gorm:"column:description;not null;default:''"`
	Images      []string  `gorm:"column:images;type:jsonb;serializer:json;not null"`
	Price       float64   `gorm:"column:price;type:numeric(12,2);not null"`
	Tags        []string  `gorm:"column:tags;type:jsonb;serializer:json;not null"`
	Color       *string   `gorm:"column:color"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// Thumbnail is the first image, if any.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
