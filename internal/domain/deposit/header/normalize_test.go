package header

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Total Bill", "total bill"},
		{"  Total Bill  ", "total bill"},
		{"Total Bill ($)", "total bill"},
		{"customerAccountNumber", "customer account number"},
		{"Customer_Account-Number", "customer account number"},
		{"commission.rate/net", "commission rate net"},
		{"Usage\\Amount", "usage amount"},
		{"NET   BILLED", "net billed"},
		{"Sales Comm. %", "sales comm"},
		{"§±!!", ""},
		{"", ""},
	}

	for _, tc := range tests {
		got := Normalize(tc.input)
		if got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Total Bill ($)",
		"customerAccountNumber",
		"Commission Rate (%)",
		"  NET__Billed.Amount  ",
		"",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Commission Rate (%)")
	if strings.Join(got, "|") != "commission|rate" {
		t.Errorf("unexpected tokens: %v", got)
	}
	if Tokens("!!") != nil {
		t.Errorf("expected nil tokens for symbol-only input")
	}
}

func TestResolve_Exact(t *testing.T) {
	live := []string{"Usage", "Commission", "Notes"}
	res := Resolve(live, "Commission")
	if res.Outcome != Resolved || res.Index != 1 || res.Header != "Commission" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolve_AmbiguousAfterTrim(t *testing.T) {
	live := []string{" Total Bill ", "Total Bill", "Other"}
	res := Resolve(live, "Total Bill ")
	if res.Outcome != Ambiguous {
		t.Fatalf("expected ambiguous, got %+v", res)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", res.Candidates)
	}
}

func TestResolve_NormalizedFallback(t *testing.T) {
	live := []string{"Total Bill ($)", "Total Commission"}
	res := Resolve(live, "Total Bill")
	if res.Outcome != Resolved || res.Header != "Total Bill ($)" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolve_ExactBeatsNormalized(t *testing.T) {
	// An exact match must win even when a looser stage would be ambiguous.
	live := []string{"Total Bill", "Total Bill ($)"}
	res := Resolve(live, "Total Bill")
	if res.Outcome != Resolved || res.Index != 0 {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolve_NotFound(t *testing.T) {
	live := []string{"Usage", "Commission"}
	res := Resolve(live, "Provider Account")
	if res.Outcome != NotFound {
		t.Fatalf("expected not found, got %+v", res)
	}
}

func TestResolve_EmptyRecordedNeverNormalizes(t *testing.T) {
	// A recorded header that normalizes to "" must not match symbol-only
	// live headers through the normalized stage.
	live := []string{"($)", "Usage"}
	res := Resolve(live, "!!")
	if res.Outcome != NotFound {
		t.Fatalf("expected not found, got %+v", res)
	}
}
