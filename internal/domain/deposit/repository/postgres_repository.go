package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

// PostgresDepositRepository implements DepositRepository using PostgreSQL
type PostgresDepositRepository struct {
	pgpool PgxPool
}

// NewPostgresDepositRepository creates a new PostgreSQL-backed deposit repository
func NewPostgresDepositRepository(pgpool PgxPool) *PostgresDepositRepository {
	return &PostgresDepositRepository{pgpool: pgpool}
}

const (
	getTemplateByVendorQuery = `
		SELECT id, distributor_name, vendor_name, template_map_name, config, created_at, updated_at
		FROM deposit_templates
		WHERE lower(distributor_name) = lower($1) AND lower(vendor_name) = lower($2)
		LIMIT 1
	`

	getTemplateByIDQuery = `
		SELECT id, distributor_name, vendor_name, template_map_name, config, created_at, updated_at
		FROM deposit_templates
		WHERE id = $1
	`

	upsertTemplateQuery = `
		INSERT INTO deposit_templates (id, distributor_name, vendor_name, template_map_name, config)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower(distributor_name), lower(vendor_name)) DO UPDATE SET
			template_map_name = EXCLUDED.template_map_name,
			config = EXCLUDED.config,
			updated_at = NOW()
	`

	listTemplatesQuery = `
		SELECT id, distributor_name, vendor_name, template_map_name, config, created_at, updated_at
		FROM deposit_templates
		ORDER BY updated_at DESC
	`

	listOpportunityFieldsQuery = `
		SELECT id, data_type, field_code, label, created_at
		FROM opportunity_fields
		ORDER BY field_code
	`

	createUploadRecordQuery = `
		INSERT INTO upload_records (id, file_name, file_type, size_bytes, status, header_count, row_count, template_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	finishUploadRecordQuery = `
		UPDATE upload_records
		SET status = $2, template_id = COALESCE($3, template_id), error_message = $4
		WHERE id = $1
	`
)

func scanTemplate(row pgx.Row) (*DepositTemplate, error) {
	var tpl DepositTemplate
	err := row.Scan(
		&tpl.ID, &tpl.DistributorName, &tpl.VendorName, &tpl.TemplateMapName,
		&tpl.Config, &tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// GetTemplateByVendor looks up a saved template for a distributor/vendor
// pair. Returns nil when the pair has never been mapped.
func (r *PostgresDepositRepository) GetTemplateByVendor(ctx context.Context, distributorName, vendorName string) (*DepositTemplate, error) {
	tpl, err := scanTemplate(r.pgpool.QueryRow(ctx, getTemplateByVendorQuery, distributorName, vendorName))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template by vendor: %w", err)
	}

	return tpl, nil
}

// GetTemplateByID retrieves a template by ID
func (r *PostgresDepositRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*DepositTemplate, error) {
	tpl, err := scanTemplate(r.pgpool.QueryRow(ctx, getTemplateByIDQuery, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return tpl, nil
}

// UpsertTemplate saves a template, replacing the config blob when the
// distributor/vendor pair already has one.
func (r *PostgresDepositRepository) UpsertTemplate(ctx context.Context, tpl *DepositTemplate) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}

	_, err := r.pgpool.Exec(ctx, upsertTemplateQuery,
		tpl.ID, tpl.DistributorName, tpl.VendorName, tpl.TemplateMapName, tpl.Config,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert template: %w", err)
	}

	return nil
}

// ListTemplates returns all saved templates, newest first
func (r *PostgresDepositRepository) ListTemplates(ctx context.Context) ([]*DepositTemplate, error) {
	rows, err := r.pgpool.Query(ctx, listTemplatesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*DepositTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}

	return templates, nil
}

// ListOpportunityFields returns the custom opportunity field definitions
func (r *PostgresDepositRepository) ListOpportunityFields(ctx context.Context) ([]*OpportunityField, error) {
	rows, err := r.pgpool.Query(ctx, listOpportunityFieldsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunity fields: %w", err)
	}
	defer rows.Close()

	var fields []*OpportunityField
	for rows.Next() {
		var f OpportunityField
		if err := rows.Scan(&f.ID, &f.DataType, &f.FieldCode, &f.Label, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan opportunity field: %w", err)
		}
		fields = append(fields, &f)
	}

	return fields, nil
}

// CreateUploadRecord inserts a new upload audit record
func (r *PostgresDepositRepository) CreateUploadRecord(ctx context.Context, rec *UploadRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	_, err := r.pgpool.Exec(ctx, createUploadRecordQuery,
		rec.ID, rec.FileName, rec.FileType, rec.SizeBytes, rec.Status,
		rec.HeaderCount, rec.RowCount, rec.TemplateID, rec.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create upload record: %w", err)
	}

	return nil
}

// FinishUploadRecord updates the outcome of an upload. A nil templateID
// keeps the link recorded at analyze time.
func (r *PostgresDepositRepository) FinishUploadRecord(ctx context.Context, id uuid.UUID, status string, templateID *uuid.UUID, errorMessage *string) error {
	_, err := r.pgpool.Exec(ctx, finishUploadRecordQuery, id, status, templateID, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to finish upload record: %w", err)
	}
	return nil
}
