package catalog

import (
	"sort"
	"strings"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/header"
)

// Scoring policy. These thresholds are tuning knobs, not physics; revisit
// them against a corpus of real vendor files before changing.
const (
	DefaultMinScore    = 0.82
	DefaultMaxResults  = 3
	scoreExact         = 1.0
	scoreTokenSubset   = 0.92
	scoreSubstring     = 0.86
	amountRatePenalty  = 0.25
	usageRatePenalty   = 0.3
	overlapWeight      = 0.55
	jaccardWeight      = 0.45
)

// Suggestion is one ranked candidate target for a raw header.
type Suggestion struct {
	Target FieldTarget
	Score  float64
}

// LooksLikeRate reports whether a raw header reads as a percentage rather
// than an amount. Checked against the raw text because normalization
// strips the percent sign.
func LooksLikeRate(rawHeader string) bool {
	lower := strings.ToLower(rawHeader)
	return strings.Contains(lower, "rate") ||
		strings.Contains(lower, "percent") ||
		strings.Contains(lower, "%")
}

// MentionsRate reports whether a raw header contains the word "rate".
func MentionsRate(rawHeader string) bool {
	return strings.Contains(strings.ToLower(rawHeader), "rate")
}

// SuggestFields scores a raw header against every catalog target and
// returns the ranked candidates, best first.
func (c *Catalog) SuggestFields(rawHeader string) []Suggestion {
	return c.SuggestFieldsN(rawHeader, DefaultMinScore, DefaultMaxResults)
}

// SuggestFieldsN is SuggestFields with an explicit score floor and result
// limit.
func (c *Catalog) SuggestFieldsN(rawHeader string, minScore float64, limit int) []Suggestion {
	headerKey := header.Normalize(rawHeader)
	if headerKey == "" {
		return nil
	}
	headerTokens := strings.Fields(headerKey)

	var results []Suggestion
	for _, target := range c.targets {
		score := scoreTarget(headerKey, headerTokens, target)
		if score <= 0 {
			continue
		}

		// An amount field must not be suggested for a rate-looking header,
		// and vice versa for usage.
		if target.ID == TargetCommission && LooksLikeRate(rawHeader) {
			score *= amountRatePenalty
		}
		if target.ID == TargetUsage && MentionsRate(rawHeader) {
			score *= usageRatePenalty
		}

		if score < minScore {
			continue
		}
		results = append(results, Suggestion{Target: target, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Target.Label < results[j].Target.Label
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// scoreTarget returns the best score of the header key against the
// target's label, id, and synonyms.
func scoreTarget(headerKey string, headerTokens []string, target FieldTarget) float64 {
	best := 0.0
	for _, candidateKey := range SynonymKeys(target) {
		s := scoreKeys(headerKey, headerTokens, candidateKey)
		if s > best {
			best = s
		}
	}
	return best
}

func scoreKeys(headerKey string, headerTokens []string, candidateKey string) float64 {
	if headerKey == candidateKey {
		return scoreExact
	}

	candidateTokens := strings.Fields(candidateKey)
	headerSet := tokenSet(headerTokens)
	candidateSet := tokenSet(candidateTokens)

	if len(headerSet) > 0 && len(candidateSet) > 0 {
		if isSubset(headerSet, candidateSet) || isSubset(candidateSet, headerSet) {
			return scoreTokenSubset
		}
	}

	if strings.Contains(headerKey, candidateKey) || strings.Contains(candidateKey, headerKey) {
		return scoreSubstring
	}

	shared := 0
	for token := range headerSet {
		if _, ok := candidateSet[token]; ok {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}

	union := len(headerSet) + len(candidateSet) - shared
	overlap := float64(shared) / float64(len(candidateSet))
	jaccard := float64(shared) / float64(union)
	return overlapWeight*overlap + jaccardWeight*jaccard
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func isSubset(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for token := range a {
		if _, ok := b[token]; !ok {
			return false
		}
	}
	return true
}
