// Package mapping holds the versioned configuration describing how one
// vendor report's columns correspond to canonical commission fields. A
// mapping is edited by one interactive session at a time; callers must not
// share a mutable Config across goroutines without external locking.
package mapping

import (
	"fmt"
	"strings"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/header"
)

// CurrentVersion is the persisted schema version this package writes.
const CurrentVersion = 2

// ColumnMode says what happens to a column during extraction.
type ColumnMode string

const (
	// ModeTarget maps the column onto a canonical field.
	ModeTarget ColumnMode = "target"
	// ModeCustom maps the column onto a user-declared custom field.
	ModeCustom ColumnMode = "custom"
	// ModeAdditional keeps the column's raw values without mapping them.
	ModeAdditional ColumnMode = "additional"
	// ModeIgnore drops the column.
	ModeIgnore ColumnMode = "ignore"
)

// ColumnSelection records the disposition of one raw column.
type ColumnSelection struct {
	Mode      ColumnMode `json:"mode"`
	TargetID  string     `json:"targetId,omitempty"`
	CustomKey string     `json:"customKey,omitempty"`
}

// CustomSection says where a custom field's values surface.
type CustomSection string

const (
	SectionAdditional CustomSection = "additional"
	SectionProduct    CustomSection = "product"
)

// CustomField is a user-declared field a column can map to instead of a
// catalog target.
type CustomField struct {
	Label   string        `json:"label"`
	Section CustomSection `json:"section"`
}

// HeaderInfo carries deposit-level choices made on the mapping screen.
type HeaderInfo struct {
	DepositName           string `json:"depositName,omitempty"`
	PaymentDateColumn     string `json:"paymentDateColumn,omitempty"`
	CustomerAccountColumn string `json:"customerAccountColumn,omitempty"`
}

// ConfigOptions are parse-time hints stored with the mapping.
type ConfigOptions struct {
	HasHeaderRow     *bool  `json:"hasHeaderRow,omitempty"`
	DateFormatHint   string `json:"dateFormatHint,omitempty"`
	NumberFormatHint string `json:"numberFormatHint,omitempty"`
}

// Config is the current (v2) mapping configuration.
//
// Two invariants hold after every mutation: each entry in Targets has a
// mirrored ModeTarget entry in Columns, a header maps to at most one
// target, and a target maps to at most one header.
type Config struct {
	Version      int                        `json:"version"`
	Targets      map[string]string          `json:"targets"`
	Columns      map[string]ColumnSelection `json:"columns"`
	CustomFields map[string]CustomField     `json:"customFields,omitempty"`
	Header       *HeaderInfo                `json:"header,omitempty"`
	Options      *ConfigOptions             `json:"options,omitempty"`
}

// New returns an empty v2 mapping.
func New() *Config {
	return &Config{
		Version: CurrentVersion,
		Targets: make(map[string]string),
		Columns: make(map[string]ColumnSelection),
	}
}

// Normalize re-derives the Columns side of the target↔column mirror from
// Targets, making the invariant structural instead of trusting every
// mutation site. Safe to call repeatedly; a second call is a no-op.
func (c *Config) Normalize() {
	c.Version = CurrentVersion
	if c.Targets == nil {
		c.Targets = make(map[string]string)
	}
	if c.Columns == nil {
		c.Columns = make(map[string]ColumnSelection)
	}

	// Drop stale target-mode column entries not backed by Targets.
	for headerName, sel := range c.Columns {
		if sel.Mode != ModeTarget {
			continue
		}
		if backed, ok := c.Targets[sel.TargetID]; !ok || backed != headerName {
			delete(c.Columns, headerName)
		}
	}

	// Mirror every target assignment into Columns.
	for targetID, headerName := range c.Targets {
		if headerName == "" {
			delete(c.Targets, targetID)
			continue
		}
		c.Columns[headerName] = ColumnSelection{Mode: ModeTarget, TargetID: targetID}
	}
}

// SetTarget assigns a header to a target, displacing any prior claim in
// either direction: a header holds at most one target and a target holds
// at most one header.
func (c *Config) SetTarget(targetID, headerName string) {
	c.SetColumnSelection(headerName, ColumnSelection{Mode: ModeTarget, TargetID: targetID})
}

// SetColumnSelection records the disposition of one column, keeping the
// target↔column mirror intact.
func (c *Config) SetColumnSelection(headerName string, sel ColumnSelection) {
	if c.Targets == nil {
		c.Targets = make(map[string]string)
	}
	if c.Columns == nil {
		c.Columns = make(map[string]ColumnSelection)
	}

	// Any prior target pointing at this header loses it.
	for targetID, assigned := range c.Targets {
		if assigned == headerName {
			delete(c.Targets, targetID)
		}
	}

	switch sel.Mode {
	case ModeTarget:
		// The target itself gives up any other header it held.
		if prior, ok := c.Targets[sel.TargetID]; ok && prior != headerName {
			delete(c.Columns, prior)
		}
		c.Targets[sel.TargetID] = headerName
		c.Columns[headerName] = ColumnSelection{Mode: ModeTarget, TargetID: sel.TargetID}
	case ModeCustom, ModeAdditional, ModeIgnore:
		c.Columns[headerName] = sel
	default:
		delete(c.Columns, headerName)
	}
}

// ClearColumn removes any disposition for a header.
func (c *Config) ClearColumn(headerName string) {
	for targetID, assigned := range c.Targets {
		if assigned == headerName {
			delete(c.Targets, targetID)
		}
	}
	delete(c.Columns, headerName)
}

// AddCustomField declares a new custom field and returns its generated
// key, unique within this mapping. The key derives from the normalized
// label; collisions append an incrementing counter.
func (c *Config) AddCustomField(label string, section CustomSection) string {
	if c.CustomFields == nil {
		c.CustomFields = make(map[string]CustomField)
	}

	base := strings.ReplaceAll(header.Normalize(label), " ", "_")
	if base == "" {
		base = "custom_field"
	}

	key := base
	for n := 2; ; n++ {
		if _, taken := c.CustomFields[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s_%d", base, n)
	}

	c.CustomFields[key] = CustomField{Label: label, Section: section}
	return key
}

// HeaderFor returns the header currently assigned to a target.
func (c *Config) HeaderFor(targetID string) (string, bool) {
	h, ok := c.Targets[targetID]
	return h, ok
}

// IsClaimed reports whether a header already has any disposition.
func (c *Config) IsClaimed(headerName string) bool {
	_, ok := c.Columns[headerName]
	return ok
}
