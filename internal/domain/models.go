// Package domain defines the persistence models of the media gateway. These
// types are mapped with GORM and shared by the repository, service and HTTP
// layers.
package domain

import "time"

// GeneratedMedia is one stored artifact produced by a paid generation. Rows
// are keyed for reuse by (EndpointPath, PromptHash) and stay servable until
// ExpiresAt, after which the cleanup worker removes the stored object and
// then the row.
//
// Fields:
//   - ID: UUID primary key.
//   - EndpointPath: route path the artifact was generated for (e.g. "/fox").
//   - Prompt: the effective prompt used for generation.
//   - PromptHash: hex SHA-256 of the normalized prompt.
//   - S3Key / S3URL: object key in the bucket and its public URL.
//   - MediaType: output category ("image", "gif", "video").
//   - FileSizeBytes: stored object size.
//   - PayerAddress / PaymentTx: settlement details, when the facilitator
//     reported them.
//   - CreatedAt / ExpiresAt: lifecycle timestamps (UTC).
type GeneratedMedia struct {
	ID            string    `json:"id"              gorm:"type:varchar(36);primaryKey"`
	EndpointPath  string    `json:"endpoint_path"   gorm:"type:varchar(255);not null;index:idx_media_lookup,priority:1"`
	Prompt        string    `json:"prompt"          gorm:"type:text;not null"`
	PromptHash    string    `json:"prompt_hash"     gorm:"type:varchar(64);not null;index:idx_media_lookup,priority:2"`
	S3Key         string    `json:"s3_key"          gorm:"column:s3_key;type:varchar(512);not null"`
	S3URL         string    `json:"s3_url"          gorm:"column:s3_url;type:text;not null"`
	MediaType     string    `json:"media_type"      gorm:"type:varchar(32);not null"`
	FileSizeBytes int64     `json:"file_size_bytes" gorm:"not null;default:0"`
	PayerAddress  *string   `json:"payer_address,omitempty" gorm:"type:varchar(128)"`
	PaymentTx     *string   `json:"payment_tx,omitempty"    gorm:"type:varchar(128)"`
	CreatedAt     time.Time `json:"created_at"      gorm:"not null"`
	ExpiresAt     time.Time `json:"expires_at"      gorm:"not null;index:idx_media_expires"`
}

// TableName returns the database table name for GeneratedMedia.
func (GeneratedMedia) TableName() string { return "generated_media" }
