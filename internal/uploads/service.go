package uploads

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tryonstudio/tryon-backend/pkg/config"
	"github.com/tryonstudio/tryon-backend/pkg/db/models"
	"github.com/tryonstudio/tryon-backend/pkg/enums"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
	"github.com/tryonstudio/tryon-backend/pkg/logger"
)

var allowedImageMimeTypes = []string{"image/png", "image/jpeg", "image/webp"}

type uploadsRepository interface {
	Create(ctx context.Context, asset *models.UploadAsset) (*models.UploadAsset, error)
	FindForUser(ctx context.Context, userID, assetID uuid.UUID) (*models.UploadAsset, error)
	MarkReady(ctx context.Context, assetID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, assetID uuid.UUID) error
}

type gcsClient interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	PublicURL(bucket, object string) string
}

// Service exposes the studio upload flow: presigned PUT plus the model photo
// preparation sub-state a run waits on.
type Service interface {
	RegisterUpload(ctx context.Context, userID uuid.UUID, input RegisterInput) (*RegisterOutput, error)
	GetUpload(ctx context.Context, userID, assetID uuid.UUID) (*AssetDTO, error)
	Shutdown()
}

type service struct {
	repo      uploadsRepository
	gcs       gcsClient
	logg      *logger.Logger
	bucket    string
	uploadTTL time.Duration
	maxBytes  int64
	prep      *prepScheduler
}

// ServiceParams bundles the dependencies required to build an uploads service.
type ServiceParams struct {
	Repo      uploadsRepository
	GCS       gcsClient
	Logger    *logger.Logger
	Bucket    string
	StudioCfg config.StudioConfig
}

// NewService constructs an uploads service backed by the provided repository and GCS signer.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("uploads repository required")
	}
	if params.GCS == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	uploadTTL := params.StudioCfg.UploadExpiry
	if uploadTTL <= 0 {
		return nil, fmt.Errorf("upload ttl must be positive")
	}
	maxMB := params.StudioCfg.MaxUploadMB
	if maxMB <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	prepDelay := params.StudioCfg.ModelPrepDelay
	if prepDelay < 0 {
		return nil, fmt.Errorf("model prep delay cannot be negative")
	}

	svc := &service{
		repo:      params.Repo,
		gcs:       params.GCS,
		logg:      params.Logger,
		bucket:    params.Bucket,
		uploadTTL: uploadTTL,
		maxBytes:  int64(maxMB) * 1024 * 1024,
	}
	svc.prep = newPrepScheduler(prepDelay, svc.finishPrep)
	return svc, nil
}

// RegisterInput models the payload required to request an upload URL.
type RegisterInput struct {
	Kind      enums.UploadKind
	MimeType  string
	FileName  string
	SizeBytes int64
}

// RegisterOutput contains the data returned after registering an upload.
type RegisterOutput struct {
	UploadID     uuid.UUID            `json:"upload_id"`
	GCSKey       string               `json:"gcs_key"`
	SignedPUTURL string               `json:"signed_put_url"`
	PublicURL    string               `json:"public_url"`
	ContentType  string               `json:"content_type"`
	ExpiresAt    time.Time            `json:"expires_at"`
	PrepState    enums.ModelPrepState `json:"prep_state"`
}

// AssetDTO is the transport shape of a registered upload.
type AssetDTO struct {
	ID        uuid.UUID            `json:"id"`
	Kind      enums.UploadKind     `json:"kind"`
	PrepState enums.ModelPrepState `json:"prep_state"`
	PublicURL string               `json:"public_url"`
	FileName  string               `json:"file_name"`
	MimeType  string               `json:"mime_type"`
	SizeBytes int64                `json:"size_bytes"`
	ReadyAt   *time.Time           `json:"ready_at,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

func assetToDTO(asset *models.UploadAsset) *AssetDTO {
	return &AssetDTO{
		ID:        asset.ID,
		Kind:      asset.Kind,
		PrepState: asset.PrepState,
		PublicURL: asset.PublicURL,
		FileName:  asset.FileName,
		MimeType:  asset.MimeType,
		SizeBytes: asset.SizeBytes,
		ReadyAt:   asset.ReadyAt,
		CreatedAt: asset.CreatedAt,
	}
}

func (s *service) RegisterUpload(ctx context.Context, userID uuid.UUID, input RegisterInput) (*RegisterOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if input.Kind == "" || !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid upload kind")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("size_bytes must be at most %d bytes", s.maxBytes))
	}

	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type is required")
	}
	if !isAllowedMime(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type not allowed for upload")
	}

	assetID := uuid.New()
	gcsKey := buildGCSKey(input.Kind, assetID, fileName)
	publicURL := s.gcs.PublicURL(s.bucket, gcsKey)

	// Garment photos are usable immediately; model photos wait out prep.
	prepState := enums.ModelPrepStateReady
	var readyAt *time.Time
	if input.Kind == enums.UploadKindModel {
		prepState = enums.ModelPrepStatePreparing
	} else {
		now := time.Now().UTC()
		readyAt = &now
	}

	asset := &models.UploadAsset{
		ID:        assetID,
		UserID:    userID,
		Kind:      input.Kind,
		PrepState: prepState,
		GCSKey:    gcsKey,
		PublicURL: publicURL,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: input.SizeBytes,
		ReadyAt:   readyAt,
	}

	if _, err := s.repo.Create(ctx, asset); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist upload asset")
	}

	expiresAt := time.Now().Add(s.uploadTTL)
	signedURL, err := s.gcs.SignedURL(s.bucket, gcsKey, mimeType, s.uploadTTL)
	if err != nil {
		_ = s.repo.Delete(ctx, assetID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	if input.Kind == enums.UploadKindModel {
		s.prep.Schedule(assetID)
	}

	return &RegisterOutput{
		UploadID:     assetID,
		GCSKey:       gcsKey,
		SignedPUTURL: signedURL,
		PublicURL:    publicURL,
		ContentType:  mimeType,
		ExpiresAt:    expiresAt,
		PrepState:    prepState,
	}, nil
}

func (s *service) GetUpload(ctx context.Context, userID, assetID uuid.UUID) (*AssetDTO, error) {
	asset, err := s.repo.FindForUser(ctx, userID, assetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "upload not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load upload asset")
	}
	return assetToDTO(asset), nil
}

// Shutdown cancels any outstanding prep timers.
func (s *service) Shutdown() {
	s.prep.StopAll()
}

func (s *service) finishPrep(assetID uuid.UUID) {
	ctx := context.Background()
	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "upload_id", assetID.String())
	}
	if err := s.repo.MarkReady(ctx, assetID, time.Now().UTC()); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "mark upload asset ready", err)
		}
		return
	}
	if s.logg != nil {
		s.logg.Info(ctx, "model photo ready")
	}
}

func isAllowedMime(mimeType string) bool {
	for _, candidate := range allowedImageMimeTypes {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func buildGCSKey(kind enums.UploadKind, id uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("uploads/%s/%s/%s", kind, id.String(), cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
