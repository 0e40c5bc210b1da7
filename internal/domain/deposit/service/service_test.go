package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/mapping"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/repository"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/telarus"
)

// fakeRepo is an in-memory DepositRepository for service tests.
type fakeRepo struct {
	templates map[string]*repository.DepositTemplate
	fields    []*repository.OpportunityField
	uploads   []*repository.UploadRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{templates: make(map[string]*repository.DepositTemplate)}
}

func pairKey(distributor, vendor string) string {
	return strings.ToLower(distributor) + "|" + strings.ToLower(vendor)
}

func (f *fakeRepo) GetTemplateByVendor(_ context.Context, distributor, vendor string) (*repository.DepositTemplate, error) {
	return f.templates[pairKey(distributor, vendor)], nil
}

func (f *fakeRepo) GetTemplateByID(_ context.Context, id uuid.UUID) (*repository.DepositTemplate, error) {
	for _, tpl := range f.templates {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) UpsertTemplate(_ context.Context, tpl *repository.DepositTemplate) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	f.templates[pairKey(tpl.DistributorName, tpl.VendorName)] = tpl
	return nil
}

func (f *fakeRepo) ListTemplates(_ context.Context) ([]*repository.DepositTemplate, error) {
	var out []*repository.DepositTemplate
	for _, tpl := range f.templates {
		out = append(out, tpl)
	}
	return out, nil
}

func (f *fakeRepo) ListOpportunityFields(_ context.Context) ([]*repository.OpportunityField, error) {
	return f.fields, nil
}

func (f *fakeRepo) CreateUploadRecord(_ context.Context, rec *repository.UploadRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	f.uploads = append(f.uploads, rec)
	return nil
}

func (f *fakeRepo) FinishUploadRecord(_ context.Context, id uuid.UUID, status string, templateID *uuid.UUID, errorMessage *string) error {
	for _, rec := range f.uploads {
		if rec.ID == id {
			rec.Status = status
			if templateID != nil {
				rec.TemplateID = templateID
			}
			rec.ErrorMessage = errorMessage
		}
	}
	return nil
}

var _ repository.DepositRepository = (*fakeRepo)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMatcher(t *testing.T) *telarus.Matcher {
	t.Helper()
	master := strings.Join([]string{
		"Common Fields",
		"Origin,Telarus Header Name,Field Label,Field ID,Commission Type",
		"Telarus,Customer Name,Customer Name,customer_name,recurring",
		"Template Fields",
		"Origin,Company,Template Map Name,Template ID,Telarus Header Name,Field Label,Field ID,Commission Type",
		"Telarus,Lumen,Lumen Standard,tpl-lumen-001,Net Billed,Usage,usage,recurring",
		"Telarus,Lumen,Lumen Standard,tpl-lumen-001,Agent Comp,Commission,commission,recurring",
		"",
	}, "\n")
	m, err := telarus.LoadReader(strings.NewReader(master))
	require.NoError(t, err)
	return m
}

func TestAnalyzeUpload_ReferenceMatch(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, testMatcher(t), testLogger())

	csvData := "Customer Name,Net Billed,Agent Comp,Region\nAcme,100.00,20.00,East\n"
	result, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName:        "lumen_march.csv",
		MimeType:        "text/csv",
		Data:            []byte(csvData),
		DistributorName: "Telarus",
		VendorName:      "Lumen",
	})
	require.NoError(t, err)

	require.NotNil(t, result.Match)
	assert.Equal(t, "reference", result.Match.Source)
	assert.Equal(t, "tpl-lumen-001", result.Match.TemplateID)

	usageHeader, ok := result.Mapping.HeaderFor(catalog.TargetUsage)
	require.True(t, ok)
	assert.Equal(t, "Net Billed", usageHeader)

	// Region is unmapped but too unlike any canonical field to suggest.
	assert.False(t, result.Mapping.IsClaimed("Region"))

	assert.Equal(t, 1, result.RowCount)
	require.Len(t, repo.uploads, 1)
	assert.Equal(t, repository.UploadStatusAnalyzed, repo.uploads[0].Status)
	assert.Equal(t, 4, repo.uploads[0].HeaderCount)
}

func TestAnalyzeUpload_SavedTemplateWins(t *testing.T) {
	repo := newFakeRepo()

	saved := mapping.New()
	saved.SetTarget(catalog.TargetUsage, "Net Billed")
	saved.SetTarget(catalog.TargetDescription, "Region")
	blob, err := mapping.EncodeTemplateConfig(saved)
	require.NoError(t, err)

	name := "Custom Lumen"
	require.NoError(t, repo.UpsertTemplate(context.Background(), &repository.DepositTemplate{
		DistributorName: "Telarus",
		VendorName:      "Lumen",
		TemplateMapName: &name,
		Config:          blob,
	}))

	svc := NewDepositService(repo, testMatcher(t), testLogger())
	csvData := "Customer Name,Net Billed,Agent Comp,Region\nAcme,100.00,20.00,East\n"
	result, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName:        "lumen_march.csv",
		MimeType:        "text/csv",
		Data:            []byte(csvData),
		DistributorName: "Telarus",
		VendorName:      "Lumen",
	})
	require.NoError(t, err)

	require.NotNil(t, result.Match)
	assert.Equal(t, "saved", result.Match.Source)
	assert.Equal(t, "Custom Lumen", result.Match.TemplateMapName)

	descHeader, ok := result.Mapping.HeaderFor(catalog.TargetDescription)
	require.True(t, ok)
	assert.Equal(t, "Region", descHeader)
}

func TestAnalyzeUpload_SuggestionsForUnmapped(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	csvData := "Customer Id,Commission Rate (%),Zzz\n123,20,x\n"
	result, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName: "report.csv",
		MimeType: "text/csv",
		Data:     []byte(csvData),
	})
	require.NoError(t, err)
	assert.Nil(t, result.Match)

	// Auto-mapping claims the exact synonym headers; nothing suggests Zzz.
	assert.NotContains(t, result.Suggestions, "Zzz")
}

func TestAnalyzeUpload_ParseFailureIsAudited(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	_, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName: "report.docx",
		Data:     []byte("whatever"),
	})
	require.Error(t, err)

	require.Len(t, repo.uploads, 1)
	assert.Equal(t, repository.UploadStatusFailed, repo.uploads[0].Status)
	require.NotNil(t, repo.uploads[0].ErrorMessage)
	assert.Contains(t, *repo.uploads[0].ErrorMessage, "unsupported file type")
}

func TestAnalyzeUpload_CustomOpportunityFields(t *testing.T) {
	repo := newFakeRepo()
	repo.fields = []*repository.OpportunityField{
		{ID: uuid.New(), DataType: "text", FieldCode: "region_code", Label: "Region Code"},
	}
	svc := NewDepositService(repo, nil, testLogger())

	csvData := "Region Code,Usage\nEast,100\n"
	result, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName: "report.csv",
		MimeType: "text/csv",
		Data:     []byte(csvData),
	})
	require.NoError(t, err)

	if result.Mapping.IsClaimed("Region Code") {
		return
	}
	matches, ok := result.Suggestions["Region Code"]
	require.True(t, ok, "expected suggestions for the injected custom field")
	assert.Equal(t, "opportunity.region_code", matches[0].Target.ID)
}

func TestSaveTemplateThenAnalyze_RoundTrip(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	cfg := mapping.New()
	cfg.SetTarget(catalog.TargetUsage, "Monthly Billed")
	cfg.SetTarget(catalog.TargetCommission, "Comp Amount")

	id, err := svc.SaveTemplate(context.Background(), "Telarus", "Spectrum", "Spectrum Custom", cfg)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	csvData := "Monthly Billed,Comp Amount\n100.00,20.00\n"
	result, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName:        "spectrum.csv",
		MimeType:        "text/csv",
		Data:            []byte(csvData),
		DistributorName: "Telarus",
		VendorName:      "Spectrum",
	})
	require.NoError(t, err)

	require.NotNil(t, result.Match)
	assert.Equal(t, "saved", result.Match.Source)
	got, ok := result.Mapping.HeaderFor(catalog.TargetCommission)
	require.True(t, ok)
	assert.Equal(t, "Comp Amount", got)
}

func TestSaveTemplate_CaseInsensitivePair(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	cfg := mapping.New()
	cfg.SetTarget(catalog.TargetUsage, "Net Billed")

	first, err := svc.SaveTemplate(context.Background(), "Telarus", "Lumen", "", cfg)
	require.NoError(t, err)

	second, err := svc.SaveTemplate(context.Background(), "telarus", "lumen", "", cfg)
	require.NoError(t, err)

	// The second save updates the existing row instead of shadowing it.
	assert.Equal(t, first, second)
	assert.Len(t, repo.templates, 1)
}

func TestSaveTemplate_PreservesForeignConfigKeys(t *testing.T) {
	repo := newFakeRepo()
	require.NoError(t, repo.UpsertTemplate(context.Background(), &repository.DepositTemplate{
		DistributorName: "Telarus",
		VendorName:      "Lumen",
		Config:          []byte(`{"displaySettings":{"theme":"dark"},"depositMapping":{"version":2}}`),
	}))

	svc := NewDepositService(repo, nil, testLogger())
	cfg := mapping.New()
	cfg.SetTarget(catalog.TargetUsage, "Net Billed")
	_, err := svc.SaveTemplate(context.Background(), "Telarus", "Lumen", "", cfg)
	require.NoError(t, err)

	stored := repo.templates[pairKey("Telarus", "Lumen")]
	require.NotNil(t, stored)
	assert.Contains(t, string(stored.Config), `"theme":"dark"`)

	got, err := mapping.DecodeTemplateConfig(stored.Config)
	require.NoError(t, err)
	assert.Equal(t, "Net Billed", got.Targets[catalog.TargetUsage])
}

func TestSaveTemplate_RequiresNames(t *testing.T) {
	svc := NewDepositService(newFakeRepo(), nil, testLogger())
	_, err := svc.SaveTemplate(context.Background(), "", "Lumen", "", mapping.New())
	assert.Error(t, err)
}

func TestApplyMapping_ConvertsRows(t *testing.T) {
	svc := NewDepositService(newFakeRepo(), nil, testLogger())

	cfg := mapping.New()
	cfg.SetTarget(catalog.TargetUsage, "Net Billed")
	cfg.SetTarget(catalog.TargetCommission, "Agent Comp")
	cfg.SetTarget(catalog.TargetCommissionRate, "Rate")
	cfg.SetTarget(catalog.TargetCustomerName, "Customer")
	cfg.SetTarget(catalog.TargetInvoiceDate, "Invoice Date")
	cfg.SetColumnSelection("Region", mapping.ColumnSelection{Mode: mapping.ModeAdditional})

	csvData := strings.Join([]string{
		"Customer,Net Billed,Agent Comp,Rate,Invoice Date,Region",
		"Acme  Corp,\"$1,200.50\",240.10,20%,03/15/2026,East",
		"Beta LLC,100.00,20.00,0.20,03/16/2026,West",
		"Bad Row,not-a-number,5.00,0.20,03/17/2026,North",
		"",
	}, "\n")

	result, err := svc.ApplyMapping(context.Background(), UploadInput{
		FileName: "march.csv",
		MimeType: "text/csv",
		Data:     []byte(csvData),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, result.Items, 2)
	assert.Equal(t, 1, result.RowsSkipped)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0], "invalid usage")

	first := result.Items[0]
	assert.Equal(t, "Acme Corp", first.CustomerName)
	assert.True(t, first.Usage.Equal(decimal.RequireFromString("1200.50")), "usage %s", first.Usage)
	assert.True(t, first.CommissionRate.Equal(decimal.RequireFromString("0.2")), "rate %s", first.CommissionRate)
	require.NotNil(t, first.InvoiceDate)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *first.InvoiceDate)
	assert.Equal(t, "East", first.Additional["Region"])

	assert.True(t, result.TotalUsage.Equal(decimal.RequireFromString("1300.50")), "total usage %s", result.TotalUsage)
	assert.True(t, result.TotalCommission.Equal(decimal.RequireFromString("260.10")), "total commission %s", result.TotalCommission)
}

func TestApplyMapping_AuditsApplied(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	cfg := mapping.New()
	cfg.SetTarget(catalog.TargetUsage, "Usage")

	result, err := svc.ApplyMapping(context.Background(), UploadInput{
		FileName: "march.csv",
		MimeType: "text/csv",
		Data:     []byte("Usage\n100\n"),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, repo.uploads, 1)
	assert.Equal(t, repository.UploadStatusApplied, repo.uploads[0].Status)
	assert.Equal(t, "csv", repo.uploads[0].FileType)
	assert.Equal(t, repo.uploads[0].ID, result.UploadID)
}

func TestApplyMapping_FinishesAnalyzeRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	cfg := mapping.New()
	cfg.SetTarget(catalog.TargetUsage, "Net Billed")
	_, err := svc.SaveTemplate(context.Background(), "Telarus", "Lumen", "", cfg)
	require.NoError(t, err)

	csvData := "Net Billed\n100.00\n"
	analyzed, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName:        "lumen.csv",
		MimeType:        "text/csv",
		Data:            []byte(csvData),
		DistributorName: "Telarus",
		VendorName:      "Lumen",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, analyzed.UploadID)

	result, err := svc.ApplyMapping(context.Background(), UploadInput{
		FileName: "lumen.csv",
		MimeType: "text/csv",
		Data:     []byte(csvData),
		UploadID: analyzed.UploadID,
	}, analyzed.Mapping)
	require.NoError(t, err)

	// The analyze record is closed out, not duplicated, and keeps its
	// template link.
	require.Len(t, repo.uploads, 1)
	assert.Equal(t, analyzed.UploadID, result.UploadID)
	assert.Equal(t, repository.UploadStatusApplied, repo.uploads[0].Status)
	assert.NotNil(t, repo.uploads[0].TemplateID)
}

func TestApplyMapping_ParseFailureIsAudited(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	_, err := svc.ApplyMapping(context.Background(), UploadInput{
		FileName: "report.docx",
		Data:     []byte("whatever"),
	}, mapping.New())
	require.Error(t, err)

	require.Len(t, repo.uploads, 1)
	assert.Equal(t, repository.UploadStatusFailed, repo.uploads[0].Status)
}

func TestUploadAudit_FileTypeFromMimeType(t *testing.T) {
	repo := newFakeRepo()
	svc := NewDepositService(repo, nil, testLogger())

	// Extensionless upload identified only by its declared content type.
	_, err := svc.AnalyzeUpload(context.Background(), UploadInput{
		FileName: "upload",
		MimeType: "text/csv",
		Data:     []byte("Usage\n100\n"),
	})
	require.NoError(t, err)

	require.Len(t, repo.uploads, 1)
	assert.Equal(t, "csv", repo.uploads[0].FileType)
}

func TestApplyMapping_EuropeanHint(t *testing.T) {
	svc := NewDepositService(newFakeRepo(), nil, testLogger())

	cfg := mapping.New()
	cfg.SetTarget(catalog.TargetUsage, "Betrag")
	cfg.Options = &mapping.ConfigOptions{NumberFormatHint: "european"}

	csvData := "Betrag\n\"1.234,56\"\n"
	result, err := svc.ApplyMapping(context.Background(), UploadInput{
		FileName: "de.csv",
		MimeType: "text/csv",
		Data:     []byte(csvData),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].Usage.Equal(decimal.RequireFromString("1234.56")))
}
