package controllers

import (
	"net/http"

	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/responses"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/api/validators"
	activitysvc "github.com/Harsh-GAMMARAYS/walmart-sparkathon/internal/activity"
	domain "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/activity"
	pkgerrors "github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/errors"
	"github.com/Harsh-GAMMARAYS/walmart-sparkathon/pkg/logger"
)

const mergeMessage = "Session data merged successfully"

type mergeRequest struct {
	SessionID   string        `json:"sessionId" validate:"required,max=128"`
	SessionData domain.Record `json:"sessionData"`
}

type mergeResponse struct {
	Message  string            `json:"message"`
	Activity domain.Record     `json:"activity"`
	Replayed bool              `json:"replayed"`
	Stats    domain.MergeStats `json:"stats"`
}

type cartRequest struct {
	Cart []domain.CartLine `json:"cart" validate:"required"`
}

type activityResponse struct {
	Activity domain.Record `json:"activity"`
}

// ActivityGet returns the stored activity of the signed-in account.
func ActivityGet(svc activitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rec, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, activityResponse{Activity: rec})
	}
}

// ActivityMerge folds a guest session into the signed-in account. The
// account comes from the verified token, never from the body.
func ActivityMerge(svc activitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body mergeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSessionID(ctx, body.SessionID)
		}
		result, err := svc.Merge(ctx, userID, activitysvc.MergeInput{
			SessionID: body.SessionID,
			Session:   body.SessionData,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, mergeResponse{
			Message:  mergeMessage,
			Activity: result.Record,
			Replayed: result.Replayed,
			Stats:    result.Stats,
		})
	}
}

// ActivityCart replaces the account cart with the one sent by the client.
func ActivityCart(svc activitysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activity service unavailable"))
			return
		}
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.SyncCart(r.Context(), userID, body.Cart)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, activityResponse{Activity: rec})
	}
}
