// Package telarus matches a distributor/vendor pair against the master
// reference table of known report layouts and turns the winning entry
// into a seed mapping that needs no user input.
package telarus

import (
	"strings"
	"sync"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/header"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/mapping"
)

// Block labels for template field provenance.
const (
	BlockCommon   = "common"
	BlockTemplate = "template"
)

// TemplateField is one reference row surfaced for audit display.
type TemplateField struct {
	TelarusHeaderName string
	CanonicalLabel    string
	FieldID           string
	CommissionType    string
	Block             string
}

// TemplateMatch is the read-only outcome of a reference lookup. It seeds a
// new mapping and is never mutated.
type TemplateMatch struct {
	TemplateMapName string
	Origin          string
	Company         string
	TemplateID      string
	Mapping         *mapping.Config
	TemplateFields  []TemplateField
}

// labelTargets translates a reference row's canonical label into a mapping
// target.
var labelTargets = map[string]string{
	"usage":                   catalog.TargetUsage,
	"usage amount":            catalog.TargetUsage,
	"commission":              catalog.TargetCommission,
	"commission amount":       catalog.TargetCommission,
	"commission rate":         catalog.TargetCommissionRate,
	"account number":          catalog.TargetAccountNumber,
	"provider account number": catalog.TargetAccountNumber,
	"customer name":           catalog.TargetCustomerName,
	"invoice date":            catalog.TargetInvoiceDate,
	"product":                 catalog.TargetProductName,
	"order number":            catalog.TargetOrderNumber,
	"description":             catalog.TargetDescription,
}

// referenceRow is one parsed line of the master table.
type referenceRow struct {
	origin          string
	company         string
	templateMapName string
	templateID      string
	headerName      string
	label           string
	fieldID         string
	commissionType  string
	common          bool
}

type companyGroup struct {
	name string
	rows []referenceRow
}

type originGroup struct {
	name      string
	common    []referenceRow
	companies map[string]*companyGroup
}

// Matcher holds the reference table. Loaded once, immutable afterwards;
// safe for concurrent Match calls.
type Matcher struct {
	origins map[string]*originGroup
}

// Match finds the reference template for a distributor/vendor pair, or nil
// when nothing matches unambiguously. Origin groups qualify when the
// normalized origin key equals, contains, or is contained in the
// normalized distributor name; company keys are then scored against the
// vendor name and the single best score wins. A tie for the top score is
// ambiguous and rejected rather than guessed.
func (m *Matcher) Match(distributorName, vendorName string) *TemplateMatch {
	distributor := header.Normalize(distributorName)
	vendor := header.Normalize(vendorName)
	if distributor == "" || vendor == "" {
		return nil
	}

	var (
		best       *companyGroup
		bestOrigin *originGroup
		bestScore  float64
		tied       bool
	)

	for originKey, origin := range m.origins {
		if !originQualifies(originKey, distributor) {
			continue
		}
		for companyKey, company := range origin.companies {
			score := scoreCompany(companyKey, vendor)
			switch {
			case score > bestScore:
				best, bestOrigin, bestScore, tied = company, origin, score, false
			case score == bestScore && score > 0 && company != best:
				tied = true
			}
		}
	}

	if best == nil || tied {
		return nil
	}
	return buildMatch(bestOrigin, best)
}

func originQualifies(originKey, distributor string) bool {
	return originKey == distributor ||
		strings.Contains(distributor, originKey) ||
		strings.Contains(originKey, distributor)
}

// scoreCompany ranks a reference company key against the vendor name:
// exact beats prefix beats substring beats token overlap, and overlap
// below 0.6 does not count at all.
func scoreCompany(companyKey, vendor string) float64 {
	if companyKey == vendor {
		return 1.0
	}
	if strings.HasPrefix(vendor, companyKey) || strings.HasPrefix(companyKey, vendor) {
		return 0.9
	}
	if strings.Contains(vendor, companyKey) || strings.Contains(companyKey, vendor) {
		return 0.8
	}

	companyTokens := strings.Fields(companyKey)
	vendorTokens := strings.Fields(vendor)
	if len(companyTokens) == 0 || len(vendorTokens) == 0 {
		return 0
	}

	vendorSet := make(map[string]struct{}, len(vendorTokens))
	for _, t := range vendorTokens {
		vendorSet[t] = struct{}{}
	}
	shared := 0
	for _, t := range companyTokens {
		if _, ok := vendorSet[t]; ok {
			shared++
		}
	}

	longest := len(companyTokens)
	if len(vendorTokens) > longest {
		longest = len(vendorTokens)
	}
	ratio := float64(shared) / float64(longest)
	if ratio < 0.6 {
		return 0
	}
	// Scaled under the substring tier so structural matches always win.
	return 0.6 * ratio
}

// buildMatch combines the origin's common-block rows with the company's
// template-block rows into a seed mapping plus audit entries. The first
// occurrence of a raw header wins; a match yielding no template fields is
// treated as no match.
func buildMatch(origin *originGroup, company *companyGroup) *TemplateMatch {
	rows := make([]referenceRow, 0, len(origin.common)+len(company.rows))
	rows = append(rows, origin.common...)
	rows = append(rows, company.rows...)

	match := &TemplateMatch{
		Origin:  origin.name,
		Company: company.name,
		Mapping: mapping.New(),
	}

	seenHeaders := make(map[string]bool)
	for _, row := range rows {
		if row.headerName == "" {
			continue
		}
		if !row.common {
			if match.TemplateMapName == "" {
				match.TemplateMapName = row.templateMapName
			}
			if match.TemplateID == "" {
				match.TemplateID = row.templateID
			}
		}

		if targetID, known := labelTargets[header.Normalize(row.label)]; known {
			if _, taken := match.Mapping.HeaderFor(targetID); !taken && !match.Mapping.IsClaimed(row.headerName) {
				match.Mapping.SetTarget(targetID, row.headerName)
			}
		}

		if seenHeaders[row.headerName] {
			continue
		}
		seenHeaders[row.headerName] = true

		block := BlockTemplate
		if row.common {
			block = BlockCommon
		}
		match.TemplateFields = append(match.TemplateFields, TemplateField{
			TelarusHeaderName: row.headerName,
			CanonicalLabel:    row.label,
			FieldID:           row.fieldID,
			CommissionType:    row.commissionType,
			Block:             block,
		})
	}

	if len(match.TemplateFields) == 0 {
		return nil
	}
	match.Mapping.Normalize()
	return match
}

// Shared returns the process-wide matcher for the configured master file,
// loading it at most once. The table is immutable after load.
var (
	sharedOnce    sync.Once
	sharedMatcher *Matcher
	sharedErr     error
)

func Shared(path string) (*Matcher, error) {
	sharedOnce.Do(func() {
		sharedMatcher, sharedErr = Load(path)
	})
	return sharedMatcher, sharedErr
}
