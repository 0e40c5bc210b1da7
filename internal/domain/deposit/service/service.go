// Package service orchestrates report analysis, template persistence, and
// mapping application for the deposit domain.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/mapping"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/parser"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/repository"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/telarus"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/values"
	"github.com/mastanley13/commissable-crm/pkg/observability"
)

const previewRowLimit = 10

// UploadInput carries one uploaded report plus the vendor context it
// belongs to. UploadID links an apply back to the audit record created at
// analyze time; uuid.Nil starts a fresh record.
type UploadInput struct {
	FileName        string
	MimeType        string
	Data            []byte
	DistributorName string
	VendorName      string
	UploadID        uuid.UUID
}

// TemplateMatchInfo summarizes where a seed mapping came from.
type TemplateMatchInfo struct {
	Source          string // "saved" or "reference"
	TemplateMapName string
	TemplateID      string
	Origin          string
	Company         string
}

// AnalyzeResult is everything the mapping UI needs to present an upload.
type AnalyzeResult struct {
	UploadID    uuid.UUID
	Headers     []string
	PreviewRows [][]string
	RowCount    int
	Mapping     *mapping.Config
	Suggestions map[string][]catalog.Suggestion
	Match       *TemplateMatchInfo
}

// DepositService orchestrates parsing, matching, and mapping operations
type DepositService struct {
	repo    repository.DepositRepository
	matcher *telarus.Matcher
	logger  *slog.Logger
}

// NewDepositService creates a new deposit service. The matcher may be nil
// when no reference master file is configured.
func NewDepositService(repo repository.DepositRepository, matcher *telarus.Matcher, logger *slog.Logger) *DepositService {
	return &DepositService{
		repo:    repo,
		matcher: matcher,
		logger:  logger,
	}
}

// AnalyzeUpload parses an uploaded report, seeds a mapping from a saved
// template or the reference table, and scores suggestions for every header
// left unmapped.
func (s *DepositService) AnalyzeUpload(ctx context.Context, input UploadInput) (*AnalyzeResult, error) {
	table, err := parser.Parse(input.Data, input.FileName, input.MimeType)
	if err != nil {
		s.recordUpload(ctx, input, nil, repository.UploadStatusFailed, nil, err)
		observability.UploadsTotal.WithLabelValues(fileTypeLabel(input.FileName, input.MimeType), "failed").Inc()
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}

	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	prior, match, templateID, err := s.findPriorMapping(ctx, input)
	if err != nil {
		return nil, err
	}

	seeded := mapping.SeedFromTemplate(cat, table.Headers, prior)

	suggestions := make(map[string][]catalog.Suggestion)
	mapped := 0
	for _, h := range table.Headers {
		if seeded.IsClaimed(h) {
			mapped++
			continue
		}
		if matches := cat.SuggestFields(h); len(matches) > 0 {
			suggestions[h] = matches
		}
	}
	observability.AutoMappedFields.Add(float64(mapped))

	rec := s.recordUpload(ctx, input, table, repository.UploadStatusAnalyzed, templateID, nil)
	observability.UploadsTotal.WithLabelValues(fileTypeLabel(input.FileName, input.MimeType), "analyzed").Inc()

	s.logger.Info("upload analyzed",
		"file", input.FileName,
		"headers", len(table.Headers),
		"rows", len(table.Rows),
		"mapped", mapped,
		"matched", match != nil,
	)

	preview := table.Rows
	if len(preview) > previewRowLimit {
		preview = preview[:previewRowLimit]
	}

	result := &AnalyzeResult{
		Headers:     table.Headers,
		PreviewRows: preview,
		RowCount:    len(table.Rows),
		Mapping:     seeded,
		Suggestions: suggestions,
		Match:       match,
	}
	if rec != nil {
		result.UploadID = rec.ID
	}
	return result, nil
}

// findPriorMapping prefers a saved template for the pair and falls back to
// the reference table.
func (s *DepositService) findPriorMapping(ctx context.Context, input UploadInput) (*mapping.Config, *TemplateMatchInfo, *uuid.UUID, error) {
	if input.DistributorName == "" || input.VendorName == "" {
		return nil, nil, nil, nil
	}

	tpl, err := s.repo.GetTemplateByVendor(ctx, input.DistributorName, input.VendorName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to lookup template: %w", err)
	}
	if tpl != nil {
		cfg, err := mapping.DecodeTemplateConfig(tpl.Config)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to decode template config: %w", err)
		}
		info := &TemplateMatchInfo{Source: "saved", TemplateID: tpl.ID.String()}
		if tpl.TemplateMapName != nil {
			info.TemplateMapName = *tpl.TemplateMapName
		}
		observability.TemplateMatches.WithLabelValues("saved").Inc()
		return cfg, info, &tpl.ID, nil
	}

	if s.matcher == nil {
		return nil, nil, nil, nil
	}
	refMatch := s.matcher.Match(input.DistributorName, input.VendorName)
	if refMatch == nil {
		observability.TemplateMatches.WithLabelValues("none").Inc()
		return nil, nil, nil, nil
	}
	observability.TemplateMatches.WithLabelValues("reference").Inc()
	return refMatch.Mapping, &TemplateMatchInfo{
		Source:          "reference",
		TemplateMapName: refMatch.TemplateMapName,
		TemplateID:      refMatch.TemplateID,
		Origin:          refMatch.Origin,
		Company:         refMatch.Company,
	}, nil, nil
}

func (s *DepositService) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	fields, err := s.repo.ListOpportunityFields(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load opportunity fields: %w", err)
	}

	defs := make([]catalog.OpportunityFieldDef, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, catalog.OpportunityFieldDef{
			DataType:  f.DataType,
			FieldCode: f.FieldCode,
			Label:     f.Label,
		})
	}
	return catalog.New(defs), nil
}

func (s *DepositService) recordUpload(ctx context.Context, input UploadInput, table *parser.ParsedTable, status string, templateID *uuid.UUID, cause error) *repository.UploadRecord {
	rec := &repository.UploadRecord{
		FileName:   input.FileName,
		FileType:   fileTypeLabel(input.FileName, input.MimeType),
		SizeBytes:  int64(len(input.Data)),
		Status:     status,
		TemplateID: templateID,
	}
	if table != nil {
		rec.HeaderCount = len(table.Headers)
		rec.RowCount = len(table.Rows)
	}
	if cause != nil {
		msg := cause.Error()
		rec.ErrorMessage = &msg
	}

	if err := s.repo.CreateUploadRecord(ctx, rec); err != nil {
		s.logger.Warn("failed to record upload", "file", input.FileName, "error", err)
		return nil
	}
	return rec
}

// SaveTemplate persists a mapping for a distributor/vendor pair so future
// uploads skip manual mapping. Config keys owned by other subsystems in a
// previously saved template survive the rewrite.
func (s *DepositService) SaveTemplate(ctx context.Context, distributorName, vendorName, templateMapName string, cfg *mapping.Config) (uuid.UUID, error) {
	if distributorName == "" || vendorName == "" {
		return uuid.Nil, fmt.Errorf("distributor and vendor names are required")
	}

	existing, err := s.repo.GetTemplateByVendor(ctx, distributorName, vendorName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to lookup template: %w", err)
	}

	var existingBlob []byte
	if existing != nil {
		existingBlob = existing.Config
	}
	blob, err := mapping.EncodeTemplateConfigInto(existingBlob, cfg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode template config: %w", err)
	}

	tpl := &repository.DepositTemplate{
		DistributorName: distributorName,
		VendorName:      vendorName,
		Config:          blob,
	}
	if existing != nil {
		tpl.ID = existing.ID
	}
	if templateMapName != "" {
		tpl.TemplateMapName = &templateMapName
	}

	if err := s.repo.UpsertTemplate(ctx, tpl); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("template saved",
		"distributor", distributorName,
		"vendor", vendorName,
		"template_id", tpl.ID,
	)
	return tpl.ID, nil
}

// ListTemplates returns every saved template, newest first.
func (s *DepositService) ListTemplates(ctx context.Context) ([]*repository.DepositTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// GetTemplate fetches a saved template with its decoded mapping. Both
// returns are nil when no template carries the id.
func (s *DepositService) GetTemplate(ctx context.Context, id uuid.UUID) (*repository.DepositTemplate, *mapping.Config, error) {
	tpl, err := s.repo.GetTemplateByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tpl == nil {
		return nil, nil, nil
	}

	cfg, err := mapping.DecodeTemplateConfig(tpl.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode template config: %w", err)
	}
	return tpl, cfg, nil
}

// LineItem is one report row with its mapped columns converted to canonical
// values. Additional carries the mode=additional column cells verbatim.
type LineItem struct {
	Usage          decimal.Decimal
	Commission     decimal.Decimal
	CommissionRate decimal.Decimal
	AccountNumber  string
	CustomerName   string
	InvoiceDate    *time.Time
	ProductName    string
	OrderNumber    string
	Description    string
	Additional     map[string]string
}

// ApplyResult is the outcome of running a mapping over a parsed report.
type ApplyResult struct {
	UploadID        uuid.UUID
	Items           []LineItem
	TotalUsage      decimal.Decimal
	TotalCommission decimal.Decimal
	RowsSkipped     int
	RowErrors       []string
}

// ApplyMapping converts every data row of an upload through the mapping.
// Rows whose mapped amount cells fail to parse are skipped and reported,
// not fatal. The upload's audit record moves to applied, or failed when the
// file cannot be parsed.
func (s *DepositService) ApplyMapping(ctx context.Context, input UploadInput, cfg *mapping.Config) (*ApplyResult, error) {
	table, err := parser.Parse(input.Data, input.FileName, input.MimeType)
	if err != nil {
		s.auditUpload(ctx, input, nil, repository.UploadStatusFailed, err)
		observability.UploadsTotal.WithLabelValues(fileTypeLabel(input.FileName, input.MimeType), "failed").Inc()
		return nil, fmt.Errorf("failed to parse upload: %w", err)
	}

	cfg.Normalize()

	cols := newColumnIndex(table.Headers, cfg)
	var numberHint, dateHint string
	if cfg.Options != nil {
		numberHint = cfg.Options.NumberFormatHint
		dateHint = cfg.Options.DateFormatHint
	}

	result := &ApplyResult{
		TotalUsage:      decimal.Zero,
		TotalCommission: decimal.Zero,
	}

	for i, row := range table.Rows {
		item, err := buildLineItem(row, cols, numberHint, dateHint)
		if err != nil {
			result.RowsSkipped++
			result.RowErrors = append(result.RowErrors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		result.TotalUsage = result.TotalUsage.Add(item.Usage)
		result.TotalCommission = result.TotalCommission.Add(item.Commission)
		result.Items = append(result.Items, *item)
	}

	result.UploadID = s.auditUpload(ctx, input, table, repository.UploadStatusApplied, nil)
	observability.UploadsTotal.WithLabelValues(fileTypeLabel(input.FileName, input.MimeType), "applied").Inc()

	s.logger.Info("mapping applied",
		"file", input.FileName,
		"rows", len(table.Rows),
		"items", len(result.Items),
		"skipped", result.RowsSkipped,
	)
	return result, nil
}

// auditUpload closes out the record opened at analyze time when the caller
// supplied its id, otherwise opens a fresh one.
func (s *DepositService) auditUpload(ctx context.Context, input UploadInput, table *parser.ParsedTable, status string, cause error) uuid.UUID {
	if input.UploadID == uuid.Nil {
		rec := s.recordUpload(ctx, input, table, status, nil, cause)
		if rec == nil {
			return uuid.Nil
		}
		return rec.ID
	}

	var msg *string
	if cause != nil {
		m := cause.Error()
		msg = &m
	}
	if err := s.repo.FinishUploadRecord(ctx, input.UploadID, status, nil, msg); err != nil {
		s.logger.Warn("failed to finish upload record", "upload_id", input.UploadID, "error", err)
		return uuid.Nil
	}
	return input.UploadID
}

// columnIndex resolves the mapping's header names to positions in one
// concrete upload.
type columnIndex struct {
	targets    map[string]int // target id -> column
	additional map[string]int // header -> column
}

func newColumnIndex(headers []string, cfg *mapping.Config) *columnIndex {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}

	idx := &columnIndex{
		targets:    make(map[string]int),
		additional: make(map[string]int),
	}
	for targetID, headerName := range cfg.Targets {
		if col, ok := pos[headerName]; ok {
			idx.targets[targetID] = col
		}
	}
	for headerName, sel := range cfg.Columns {
		if sel.Mode != mapping.ModeAdditional && sel.Mode != mapping.ModeCustom {
			continue
		}
		if col, ok := pos[headerName]; ok {
			idx.additional[headerName] = col
		}
	}
	return idx
}

func (c *columnIndex) cell(row []string, targetID string) (string, bool) {
	col, ok := c.targets[targetID]
	if !ok || col >= len(row) {
		return "", false
	}
	return row[col], true
}

func buildLineItem(row []string, cols *columnIndex, numberHint, dateHint string) (*LineItem, error) {
	item := &LineItem{}

	if raw, ok := cols.cell(row, catalog.TargetUsage); ok {
		d, err := values.ParseDecimal(raw, numberHint)
		if err != nil {
			return nil, fmt.Errorf("invalid usage %q: %w", raw, err)
		}
		item.Usage = d
	}
	if raw, ok := cols.cell(row, catalog.TargetCommission); ok {
		d, err := values.ParseDecimal(raw, numberHint)
		if err != nil {
			return nil, fmt.Errorf("invalid commission %q: %w", raw, err)
		}
		item.Commission = d
	}
	if raw, ok := cols.cell(row, catalog.TargetCommissionRate); ok {
		d, err := values.ParseRate(raw, numberHint)
		if err != nil {
			return nil, fmt.Errorf("invalid commission rate %q: %w", raw, err)
		}
		item.CommissionRate = d
	}
	if raw, ok := cols.cell(row, catalog.TargetInvoiceDate); ok && raw != "" {
		t, err := values.ParseFlexibleDate(raw, dateHint, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid invoice date %q: %w", raw, err)
		}
		item.InvoiceDate = &t
	}

	if raw, ok := cols.cell(row, catalog.TargetAccountNumber); ok {
		item.AccountNumber = values.CleanText(raw)
	}
	if raw, ok := cols.cell(row, catalog.TargetCustomerName); ok {
		item.CustomerName = values.CleanText(raw)
	}
	if raw, ok := cols.cell(row, catalog.TargetProductName); ok {
		item.ProductName = values.CleanText(raw)
	}
	if raw, ok := cols.cell(row, catalog.TargetOrderNumber); ok {
		item.OrderNumber = values.CleanText(raw)
	}
	if raw, ok := cols.cell(row, catalog.TargetDescription); ok {
		item.Description = values.CleanText(raw)
	}

	for headerName, col := range cols.additional {
		if col >= len(row) {
			continue
		}
		if item.Additional == nil {
			item.Additional = make(map[string]string)
		}
		item.Additional[headerName] = row[col]
	}

	return item, nil
}

func fileTypeLabel(fileName, mimeType string) string {
	switch kind := parser.DetectKind(fileName, mimeType); kind {
	case parser.KindCSV:
		return "csv"
	case parser.KindXLSX:
		return "xlsx"
	case parser.KindXLS:
		return "xls"
	case parser.KindPDF:
		return "pdf"
	default:
		return "unknown"
	}
}
