package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/tryonstudio/tryon-backend/api/responses"
	"github.com/tryonstudio/tryon-backend/internal/generations"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

func galleryListParams(r *http.Request) (generations.ListParams, error) {
	userID, err := authedUserID(r)
	if err != nil {
		return generations.ListParams{}, err
	}

	params := generations.ListParams{UserID: userID}

	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		value, err := strconv.Atoi(limitStr)
		if err != nil || value <= 0 {
			return generations.ListParams{}, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
		}
		params.Limit = value
	}

	if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
		params.Cursor = cursor
	}

	if favorites := strings.TrimSpace(r.URL.Query().Get("favoritesOnly")); favorites != "" {
		value, err := strconv.ParseBool(favorites)
		if err != nil {
			return generations.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid favoritesOnly value")
		}
		params.FavoritesOnly = value
	}

	return params, nil
}

// GalleryList returns a page of the user's live generations.
func GalleryList(svc generations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		params, err := galleryListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// GalleryTrash returns a page of soft-deleted generations.
func GalleryTrash(svc generations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		params, err := galleryListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.ListTrash(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// GalleryGet fetches a single generation owned by the caller.
func GalleryGet(svc generations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		generationID, err := pathUUID(r, "generationId", "generation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Get(r.Context(), userID, generationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// GalleryToggleFavorite flips the favorite flag and returns the row.
func GalleryToggleFavorite(svc generations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		generationID, err := pathUUID(r, "generationId", "generation id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.ToggleFavorite(r.Context(), userID, generationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

type galleryMutation func(svc generations.Service, r *http.Request) error

func galleryMutationHandler(svc generations.Service, logg *logger.Logger, status string, mutate galleryMutation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		if err := mutate(svc, r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}

// GalleryDelete moves a generation to the trash.
func GalleryDelete(svc generations.Service, logg *logger.Logger) http.HandlerFunc {
	return galleryMutationHandler(svc, logg, "trashed", func(svc generations.Service, r *http.Request) error {
		userID, err := authedUserID(r)
		if err != nil {
			return err
		}
		generationID, err := pathUUID(r, "generationId", "generation id")
		if err != nil {
			return err
		}
		return svc.SoftDelete(r.Context(), userID, generationID)
	})
}

// GalleryRestore moves a trashed generation back to the gallery.
func GalleryRestore(svc generations.Service, logg *logger.Logger) http.HandlerFunc {
	return galleryMutationHandler(svc, logg, "restored", func(svc generations.Service, r *http.Request) error {
		userID, err := authedUserID(r)
		if err != nil {
			return err
		}
		generationID, err := pathUUID(r, "generationId", "generation id")
		if err != nil {
			return err
		}
		return svc.Restore(r.Context(), userID, generationID)
	})
}

// GalleryPurge permanently deletes a trashed generation.
func GalleryPurge(svc generations.Service, logg *logger.Logger) http.HandlerFunc {
	return galleryMutationHandler(svc, logg, "purged", func(svc generations.Service, r *http.Request) error {
		userID, err := authedUserID(r)
		if err != nil {
			return err
		}
		generationID, err := pathUUID(r, "generationId", "generation id")
		if err != nil {
			return err
		}
		return svc.Purge(r.Context(), userID, generationID)
	})
}
