package header

import "strings"

// Outcome classifies the result of resolving a recorded header name.
type Outcome int

const (
	// Resolved means exactly one live header matched.
	Resolved Outcome = iota
	// Ambiguous means a matching stage found more than one candidate.
	Ambiguous
	// NotFound means no stage produced any candidate.
	NotFound
)

// Resolution is the result of matching a recorded header against the live
// header row. Ambiguity and absence are reported as data, not errors, so
// callers can route them to a human instead of aborting.
type Resolution struct {
	Outcome    Outcome
	Index      int
	Header     string
	Candidates []string // populated when Outcome is Ambiguous
}

// Resolve finds the live header corresponding to a previously recorded
// header name. Matching stages run strict to loose: exact, trimmed,
// case-insensitive trimmed, fully normalized. A looser stage only runs when
// the stricter one found zero candidates, so a fuzzy match can never
// override an exact one. A stage with more than one candidate stops
// resolution and reports Ambiguous.
func Resolve(liveHeaders []string, recorded string) Resolution {
	stages := []func(live, recorded string) bool{
		func(live, recorded string) bool {
			return live == recorded
		},
		func(live, recorded string) bool {
			return strings.TrimSpace(live) == strings.TrimSpace(recorded)
		},
		func(live, recorded string) bool {
			return strings.EqualFold(strings.TrimSpace(live), strings.TrimSpace(recorded))
		},
		func(live, recorded string) bool {
			key := Normalize(recorded)
			return key != "" && Normalize(live) == key
		},
	}

	for _, match := range stages {
		var indices []int
		for i, live := range liveHeaders {
			if match(live, recorded) {
				indices = append(indices, i)
			}
		}
		switch len(indices) {
		case 0:
			continue
		case 1:
			return Resolution{Outcome: Resolved, Index: indices[0], Header: liveHeaders[indices[0]]}
		default:
			candidates := make([]string, len(indices))
			for i, idx := range indices {
				candidates[i] = liveHeaders[idx]
			}
			return Resolution{Outcome: Ambiguous, Index: -1, Candidates: candidates}
		}
	}

	return Resolution{Outcome: NotFound, Index: -1}
}
