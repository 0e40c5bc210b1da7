package values

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		hint    string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: "1234.56", want: "1234.56"},
		{name: "american grouping", raw: "1,234.56", want: "1234.56"},
		{name: "currency symbol", raw: "$1,234.56", want: "1234.56"},
		{name: "european grouping", raw: "1.234,56", hint: NumberFormatEuropean, want: "1234.56"},
		{name: "negative", raw: "-42.10", want: "-42.1"},
		{name: "accounting negative", raw: "($42.10)", want: "-42.1"},
		{name: "empty is zero", raw: "", want: "0"},
		{name: "symbols only is zero", raw: "$ ", want: "0"},
		{name: "garbage", raw: "1.2.3.4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.raw, tt.hint)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"0.20", "0.2"},
		{"20%", "0.2"},
		{"20", "0.2"},
		{"1", "1"},
		{"0.5", "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRate(tt.raw, "")
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		hint string
		want time.Time
	}{
		{name: "iso", raw: "2026-03-15", want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "us slashes", raw: "03/15/2026", want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{name: "hint wins ambiguity", raw: "03/04/2026", hint: "DD/MM/YYYY", want: time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)},
		{name: "month name", raw: "Mar 15, 2026", want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlexibleDate(tt.raw, tt.hint, time.UTC)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}

	_, err := ParseFlexibleDate("not a date", "", nil)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDetectDateFormat(t *testing.T) {
	tests := []struct {
		sample string
		want   string
	}{
		{"2026-03-15", "YYYY-MM-DD"},
		{"2026/03/15", "YYYY/MM/DD"},
		{"25/03/2026", "DD/MM/YYYY"},
		{"25-03-2026", "DD-MM-YYYY"},
		{"03/15/2026", "MM/DD/YYYY"},
		{"", "MM/DD/YYYY"},
	}
	for _, tt := range tests {
		t.Run(tt.sample, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDateFormat([]string{tt.sample}))
		})
	}
	assert.Equal(t, "MM/DD/YYYY", DetectDateFormat(nil))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Acme Corp East", CleanText("  Acme   Corp\tEast "))
	assert.Equal(t, "", CleanText("   "))
}
