package mapping

import "github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"

// LegacyFieldID is the closed enum of line-item fields the v1 schema knew
// about. Retained only so stored v1 blobs can be migrated.
type LegacyFieldID string

const (
	LegacyUsage          LegacyFieldID = "usage"
	LegacyCommission     LegacyFieldID = "commission"
	LegacyCommissionRate LegacyFieldID = "commissionRate"
	LegacyAccountNumber  LegacyFieldID = "accountNumber"
	LegacyCustomerName   LegacyFieldID = "customerName"
	LegacyInvoiceDate    LegacyFieldID = "invoiceDate"
	LegacyProductName    LegacyFieldID = "productName"
	LegacyOrderNumber    LegacyFieldID = "orderNumber"
	LegacyDescription    LegacyFieldID = "description"
)

// LegacyColumnMode includes the retired "product" mode, which v2 folds
// into "additional".
type LegacyColumnMode string

const (
	LegacyModeField      LegacyColumnMode = "field"
	LegacyModeCustom     LegacyColumnMode = "custom"
	LegacyModeProduct    LegacyColumnMode = "product"
	LegacyModeAdditional LegacyColumnMode = "additional"
	LegacyModeIgnore     LegacyColumnMode = "ignore"
)

// LegacyColumn is a v1 column disposition.
type LegacyColumn struct {
	Mode      LegacyColumnMode `json:"mode"`
	FieldID   LegacyFieldID    `json:"fieldId,omitempty"`
	CustomKey string           `json:"customKey,omitempty"`
}

// LegacyConfig is the v1 mapping schema.
type LegacyConfig struct {
	Version      int                         `json:"version"`
	Fields       map[LegacyFieldID]string    `json:"fields"`
	Columns      map[string]LegacyColumn     `json:"columns"`
	CustomFields map[string]CustomField      `json:"customFields,omitempty"`
	Header       *HeaderInfo                 `json:"header,omitempty"`
	Options      *ConfigOptions              `json:"options,omitempty"`
}

// legacyTargetIDs translates the closed v1 enum into open-ended v2 target
// ids. Versions are never inferred from shape; this table is the whole
// transition.
var legacyTargetIDs = map[LegacyFieldID]string{
	LegacyUsage:          catalog.TargetUsage,
	LegacyCommission:     catalog.TargetCommission,
	LegacyCommissionRate: catalog.TargetCommissionRate,
	LegacyAccountNumber:  catalog.TargetAccountNumber,
	LegacyCustomerName:   catalog.TargetCustomerName,
	LegacyInvoiceDate:    catalog.TargetInvoiceDate,
	LegacyProductName:    catalog.TargetProductName,
	LegacyOrderNumber:    catalog.TargetOrderNumber,
	LegacyDescription:    catalog.TargetDescription,
}

// MigrateLegacy translates a v1 mapping into the v2 schema. Field ids go
// through the static lookup table, product-mode columns become
// additional-mode, and custom fields, header, and options pass through
// unchanged. The result ends with a Normalize pass so the target↔column
// mirror is re-derived rather than trusted.
func MigrateLegacy(legacy *LegacyConfig) *Config {
	out := New()
	if legacy == nil {
		return out
	}

	for fieldID, headerName := range legacy.Fields {
		targetID, known := legacyTargetIDs[fieldID]
		if !known || headerName == "" {
			continue
		}
		out.Targets[targetID] = headerName
	}

	for headerName, col := range legacy.Columns {
		switch col.Mode {
		case LegacyModeField:
			// Re-derived from Fields by the Normalize pass.
		case LegacyModeCustom:
			out.Columns[headerName] = ColumnSelection{Mode: ModeCustom, CustomKey: col.CustomKey}
		case LegacyModeProduct, LegacyModeAdditional:
			out.Columns[headerName] = ColumnSelection{Mode: ModeAdditional}
		case LegacyModeIgnore:
			out.Columns[headerName] = ColumnSelection{Mode: ModeIgnore}
		}
	}

	if len(legacy.CustomFields) > 0 {
		out.CustomFields = make(map[string]CustomField, len(legacy.CustomFields))
		for key, field := range legacy.CustomFields {
			out.CustomFields[key] = field
		}
	}
	out.Header = legacy.Header
	out.Options = legacy.Options

	out.Normalize()
	return out
}
