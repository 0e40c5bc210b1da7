// Package repository provides data access for deposit templates, custom
// opportunity fields, and upload audit records.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DepositTemplate is a saved mapping for one distributor/vendor pair. The
// Config blob is the template config document carrying the depositMapping
// key.
type DepositTemplate struct {
	ID              uuid.UUID `db:"id"`
	DistributorName string    `db:"distributor_name"`
	VendorName      string    `db:"vendor_name"`
	TemplateMapName *string   `db:"template_map_name"`
	Config          []byte    `db:"config"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// OpportunityField is an externally defined custom field folded into the
// field catalog at analyze time.
type OpportunityField struct {
	ID        uuid.UUID `db:"id"`
	DataType  string    `db:"data_type"`
	FieldCode string    `db:"field_code"`
	Label     string    `db:"label"`
	CreatedAt time.Time `db:"created_at"`
}

// Upload record statuses.
const (
	UploadStatusAnalyzed = "analyzed"
	UploadStatusApplied  = "applied"
	UploadStatusFailed   = "failed"
)

// UploadRecord is the audit trail for one report upload.
type UploadRecord struct {
	ID           uuid.UUID  `db:"id"`
	FileName     string     `db:"file_name"`
	FileType     string     `db:"file_type"`
	SizeBytes    int64      `db:"size_bytes"`
	Status       string     `db:"status"`
	HeaderCount  int        `db:"header_count"`
	RowCount     int        `db:"row_count"`
	TemplateID   *uuid.UUID `db:"template_id"`
	ErrorMessage *string    `db:"error_message"`
	CreatedAt    time.Time  `db:"created_at"`
}

// DepositRepository defines data access operations for the deposit domain
type DepositRepository interface {
	// Templates
	GetTemplateByVendor(ctx context.Context, distributorName, vendorName string) (*DepositTemplate, error)
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*DepositTemplate, error)
	UpsertTemplate(ctx context.Context, tpl *DepositTemplate) error
	ListTemplates(ctx context.Context) ([]*DepositTemplate, error)

	// Opportunity custom fields
	ListOpportunityFields(ctx context.Context) ([]*OpportunityField, error)

	// Upload audit
	CreateUploadRecord(ctx context.Context, rec *UploadRecord) error
	FinishUploadRecord(ctx context.Context, id uuid.UUID, status string, templateID *uuid.UUID, errorMessage *string) error
}
