package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/middleware"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/responses"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/validators"
	assistantsvc "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/assistant"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
)

const (
	maxImageBytes  = 10 << 20
	imageFormField = "image"
)

// AssistantQuery proxies a chat query. On the authenticated route the
// caller's stored activity is used when no browsing context is sent.
func AssistantQuery(svc assistantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assistant unavailable"))
			return
		}

		var body assistantsvc.QueryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := uuid.Nil
		if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
				return
			}
			userID = id
		}

		result, err := svc.Query(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AssistantImageSearch forwards an uploaded image (multipart field "image").
func AssistantImageSearch(svc assistantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assistant unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image too large"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(imageFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "No image file provided"))
			return
		}
		defer file.Close()

		result, err := svc.ImageSearch(r.Context(), header.Filename, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
