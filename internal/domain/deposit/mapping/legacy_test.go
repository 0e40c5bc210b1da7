package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"
)

func legacyFixture() *LegacyConfig {
	return &LegacyConfig{
		Version: 1,
		Fields: map[LegacyFieldID]string{
			LegacyUsage:      "Net Billed",
			LegacyCommission: "Comm Paid",
		},
		Columns: map[string]LegacyColumn{
			"Net Billed": {Mode: LegacyModeField, FieldID: LegacyUsage},
			"Comm Paid":  {Mode: LegacyModeField, FieldID: LegacyCommission},
			"SKU":        {Mode: LegacyModeProduct},
			"Region":     {Mode: LegacyModeCustom, CustomKey: "region"},
			"Junk":       {Mode: LegacyModeIgnore},
		},
		CustomFields: map[string]CustomField{
			"region": {Label: "Region", Section: SectionAdditional},
		},
		Header:  &HeaderInfo{DepositName: "March Deposit"},
		Options: &ConfigOptions{NumberFormatHint: "american"},
	}
}

func TestMigrateLegacy(t *testing.T) {
	got := MigrateLegacy(legacyFixture())

	assert.Equal(t, CurrentVersion, got.Version)
	assert.Equal(t, "Net Billed", got.Targets[catalog.TargetUsage])
	assert.Equal(t, "Comm Paid", got.Targets[catalog.TargetCommission])

	// v1 product-mode columns fold into v2 additional-mode.
	assert.Equal(t, ModeAdditional, got.Columns["SKU"].Mode)
	assert.Equal(t, ModeCustom, got.Columns["Region"].Mode)
	assert.Equal(t, "region", got.Columns["Region"].CustomKey)
	assert.Equal(t, ModeIgnore, got.Columns["Junk"].Mode)

	// Custom fields, header, and options pass through unchanged.
	assert.Equal(t, "Region", got.CustomFields["region"].Label)
	require.NotNil(t, got.Header)
	assert.Equal(t, "March Deposit", got.Header.DepositName)
	require.NotNil(t, got.Options)
	assert.Equal(t, "american", got.Options.NumberFormatHint)

	assertMirror(t, got)
}

func TestMigrateLegacy_UnknownFieldDropped(t *testing.T) {
	legacy := &LegacyConfig{
		Version: 1,
		Fields:  map[LegacyFieldID]string{"bogusField": "Some Column"},
	}
	got := MigrateLegacy(legacy)
	assert.Empty(t, got.Targets)
}

func TestMigration_IdempotentThroughCodec(t *testing.T) {
	// Migrating a stored v1 blob and re-decoding the encoded result must
	// be a no-op: the second pass sees a v2 document.
	legacy := legacyFixture()
	inner, err := json.Marshal(legacy)
	require.NoError(t, err)
	blob, err := json.Marshal(map[string]json.RawMessage{"depositMapping": inner})
	require.NoError(t, err)

	first, err := DecodeTemplateConfig(blob)
	require.NoError(t, err)

	encoded, err := EncodeTemplateConfig(first)
	require.NoError(t, err)

	second, err := DecodeTemplateConfig(encoded)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEncodeTemplateConfigInto_PreservesSiblingKeys(t *testing.T) {
	existing := []byte(`{"displaySettings":{"theme":"dark"},"depositMapping":{"version":2,"targets":{}}}`)

	cfg := New()
	cfg.SetTarget(catalog.TargetUsage, "Net Billed")

	blob, err := EncodeTemplateConfigInto(existing, cfg)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &doc))
	assert.JSONEq(t, `{"theme":"dark"}`, string(doc["displaySettings"]))

	got, err := DecodeTemplateConfig(blob)
	require.NoError(t, err)
	assert.Equal(t, "Net Billed", got.Targets[catalog.TargetUsage])
}

func TestDecodeTemplateConfig_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty blob", nil},
		{"no depositMapping key", []byte(`{"other":{"a":1}}`)},
		{"missing version", []byte(`{"depositMapping":{"targets":{}}}`)},
		{"unknown version", []byte(`{"depositMapping":{"version":9}}`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeTemplateConfig(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, CurrentVersion, got.Version)
			assert.Empty(t, got.Targets)
		})
	}
}

func TestDecodeTemplateConfig_MalformedJSON(t *testing.T) {
	_, err := DecodeTemplateConfig([]byte(`{not json`))
	assert.Error(t, err)
}
