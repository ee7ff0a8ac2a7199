package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/pkg/enums"
)

// UploadAsset tracks a studio input image from presign through readiness.
// Garment uploads are usable as soon as the object lands; model uploads pass
// through a preparation step before a run may reference them.
type UploadAsset struct {
	ID        uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	Kind      enums.UploadKind     `gorm:"type:upload_kind;not null"`
	PrepState enums.ModelPrepState `gorm:"column:prep_state;type:model_prep_state;not null;default:'idle'"`
	GCSKey    string               `gorm:"column:gcs_key;not null"`
	PublicURL string               `gorm:"column:public_url;not null"`
	FileName  string               `gorm:"column:file_name;not null"`
	MimeType  string               `gorm:"column:mime_type;not null"`
	SizeBytes int64                `gorm:"column:size_bytes;not null"`
	ReadyAt   *time.Time           `gorm:"column:ready_at"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
