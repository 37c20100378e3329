package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/db/models"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
)

const (
	cacheKind = "product"
	cacheTTL  = 5 * time.Minute
)

// Service exposes catalog browsing.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id string) (*ProductDTO, error)
	FindByIDs(ctx context.Context, ids []string) ([]ProductDTO, error)
}

type productRepository interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ListProducts(ctx context.Context, input ListProductsInput) ([]models.Product, string, error)
}

type detailCache interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	CacheKey(kind, id string) string
}

// ServiceParams bundles catalog dependencies. Cache is optional.
type ServiceParams struct {
	Repo   productRepository
	Cache  detailCache
	Logger *logger.Logger
}

type service struct {
	repo  productRepository
	cache detailCache
	logg  *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: params.Repo, cache: params.Cache, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	rows, next, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return &ProductListResult{Products: out, NextCursor: next}, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*ProductDTO, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	if s.cache != nil {
		var cached ProductDTO
		if err := s.cache.GetJSON(ctx, s.cache.CacheKey(cacheKind, id), &cached); err == nil {
			return &cached, nil
		}
	}

	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := FromModel(row)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, s.cache.CacheKey(cacheKind, id), dto, cacheTTL); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "product_id", id), "product.cache_write_failed")
		}
	}
	return dto, nil
}

func (s *service) FindByIDs(ctx context.Context, ids []string) ([]ProductDTO, error) {
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}
