package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/api/responses"
	"github.com/tryonstudio/tryon-backend/api/validators"
	"github.com/tryonstudio/tryon-backend/internal/generations"
	"github.com/tryonstudio/tryon-backend/internal/uploads"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

func pathUUID(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}

type registerUploadRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=model garment"`
	MimeType  string `json:"mime_type" validate:"required"`
	FileName  string `json:"file_name" validate:"required,max=255"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

// StudioRegisterUpload issues a presigned PUT URL for an input image.
func StudioRegisterUpload(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "uploads service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body registerUploadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.RegisterUpload(r.Context(), userID, uploads.RegisterInput{
			Kind:      enums.UploadKind(body.Kind),
			MimeType:  body.MimeType,
			FileName:  validators.SanitizeString(body.FileName, 255),
			SizeBytes: body.SizeBytes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// StudioGetUpload reports an upload's metadata and preparation state.
func StudioGetUpload(svc uploads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "uploads service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploadID, err := pathUUID(r, "uploadId", "upload id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.GetUpload(r.Context(), userID, uploadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, asset)
	}
}

// StudioStartGeneration kicks off a try-on run from two registered uploads.
func StudioStartGeneration(orch *generations.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation orchestrator unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body generations.StartInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		run, err := orch.StartGeneration(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, run)
	}
}

// StudioGenerationProgress returns the row plus live poll progress.
func StudioGenerationProgress(orch *generations.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation orchestrator unavailable"))
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

		run, err := orch.GetWithProgress(r.Context(), userID, generationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, run)
	}
}

// StudioCancelGeneration cancels an in-flight run.
func StudioCancelGeneration(orch *generations.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation orchestrator unavailable"))
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

		if err := orch.Cancel(r.Context(), userID, generationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "canceled"})
	}
}
