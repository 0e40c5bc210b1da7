package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"
)

// assertMirror checks the structural invariant: every target assignment is
// mirrored by a target-mode column entry, and no header is claimed twice.
func assertMirror(t *testing.T, c *Config) {
	t.Helper()
	for targetID, headerName := range c.Targets {
		sel, ok := c.Columns[headerName]
		require.True(t, ok, "target %s header %q missing column entry", targetID, headerName)
		assert.Equal(t, ModeTarget, sel.Mode)
		assert.Equal(t, targetID, sel.TargetID)
	}
	seen := make(map[string]string)
	for targetID, headerName := range c.Targets {
		if prior, dup := seen[headerName]; dup {
			t.Errorf("header %q claimed by both %s and %s", headerName, prior, targetID)
		}
		seen[headerName] = targetID
	}
}

func TestSetTarget_MirrorInvariant(t *testing.T) {
	c := New()

	c.SetTarget(catalog.TargetUsage, "Net Billed")
	c.SetTarget(catalog.TargetCommission, "Comm Paid")
	assertMirror(t, c)

	sel := c.Columns["Net Billed"]
	assert.Equal(t, ModeTarget, sel.Mode)
	assert.Equal(t, catalog.TargetUsage, sel.TargetID)
}

func TestSetTarget_HeaderStealsFromPriorTarget(t *testing.T) {
	c := New()
	c.SetTarget(catalog.TargetUsage, "Amount")

	// Assigning the same header to another target removes the first claim.
	c.SetTarget(catalog.TargetCommission, "Amount")
	assertMirror(t, c)

	_, usageMapped := c.HeaderFor(catalog.TargetUsage)
	assert.False(t, usageMapped)
	h, _ := c.HeaderFor(catalog.TargetCommission)
	assert.Equal(t, "Amount", h)
}

func TestSetTarget_TargetReleasesPriorHeader(t *testing.T) {
	c := New()
	c.SetTarget(catalog.TargetUsage, "Amount")

	// Re-assigning the target clears its prior header's column entry.
	c.SetTarget(catalog.TargetUsage, "Net Billed")
	assertMirror(t, c)

	assert.False(t, c.IsClaimed("Amount"))
	h, _ := c.HeaderFor(catalog.TargetUsage)
	assert.Equal(t, "Net Billed", h)
}

func TestSetColumnSelection_NonTargetClearsTarget(t *testing.T) {
	c := New()
	c.SetTarget(catalog.TargetUsage, "Amount")

	c.SetColumnSelection("Amount", ColumnSelection{Mode: ModeIgnore})
	assertMirror(t, c)

	_, mapped := c.HeaderFor(catalog.TargetUsage)
	assert.False(t, mapped)
	assert.Equal(t, ModeIgnore, c.Columns["Amount"].Mode)
}

func TestAddCustomField_KeyCollisions(t *testing.T) {
	c := New()

	first := c.AddCustomField("Region Code", SectionAdditional)
	second := c.AddCustomField("Region Code", SectionProduct)
	third := c.AddCustomField("Region Code", SectionAdditional)

	assert.Equal(t, "region_code", first)
	assert.Equal(t, "region_code_2", second)
	assert.Equal(t, "region_code_3", third)
	assert.Len(t, c.CustomFields, 3)

	empty := c.AddCustomField("!!", SectionAdditional)
	assert.Equal(t, "custom_field", empty)
}

func TestNormalize_RederivesColumns(t *testing.T) {
	c := New()
	c.Targets[catalog.TargetUsage] = "Net Billed"
	// Stale column entry pointing at a target that no longer owns it.
	c.Columns["Old Header"] = ColumnSelection{Mode: ModeTarget, TargetID: catalog.TargetUsage}

	c.Normalize()
	assertMirror(t, c)

	assert.False(t, c.IsClaimed("Old Header"))
	assert.True(t, c.IsClaimed("Net Billed"))

	// Idempotent.
	before := len(c.Columns)
	c.Normalize()
	assert.Len(t, c.Columns, before)
}
