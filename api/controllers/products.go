package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/responses"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/validators"
	productsvc "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/products"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/pagination"
)

const (
	maxSearchQueryLen = 256
	maxCategoryLen    = 128
	maxCursorLen      = 512
)

// ProductList pages through the catalog with optional text and category filters.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Filters: productsvc.ProductListFilters{
				Query:    validators.ParseQueryString(r, "q", maxSearchQueryLen),
				Category: validators.ParseQueryString(r, "category", maxCategoryLen),
			},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: validators.ParseQueryString(r, "cursor", maxCursorLen),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ProductDetail returns one catalog entry.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		product, err := svc.GetProduct(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
