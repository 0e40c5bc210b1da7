package mapping

import (
	"sort"

	"github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/header"
)

// SeedFromTemplate builds a mapping for a fresh upload from a prior
// mapping (a migrated saved template or a reference-table seed). Every
// recorded header is re-resolved against the live headers; headers that
// resolve ambiguously or not at all are dropped rather than guessed.
// Remaining gaps are then filled by AutoMap. Deterministic for a given
// (liveHeaders, prior) pair.
func SeedFromTemplate(cat *catalog.Catalog, liveHeaders []string, prior *Config) *Config {
	out := New()
	if prior != nil {
		out.seedTargets(liveHeaders, prior)
		out.seedColumns(liveHeaders, prior)
		out.seedPassthrough(prior)
	}
	out.AutoMap(cat, liveHeaders)
	out.Normalize()
	return out
}

func (c *Config) seedTargets(liveHeaders []string, prior *Config) {
	targetIDs := make([]string, 0, len(prior.Targets))
	for targetID := range prior.Targets {
		targetIDs = append(targetIDs, targetID)
	}
	sort.Strings(targetIDs)

	for _, targetID := range targetIDs {
		res := header.Resolve(liveHeaders, prior.Targets[targetID])
		if res.Outcome != header.Resolved {
			continue
		}
		c.SetTarget(targetID, res.Header)
	}
}

func (c *Config) seedColumns(liveHeaders []string, prior *Config) {
	recorded := make([]string, 0, len(prior.Columns))
	for headerName := range prior.Columns {
		recorded = append(recorded, headerName)
	}
	sort.Strings(recorded)

	for _, headerName := range recorded {
		sel := prior.Columns[headerName]
		if sel.Mode == ModeTarget {
			continue // handled through Targets
		}
		res := header.Resolve(liveHeaders, headerName)
		if res.Outcome != header.Resolved {
			continue
		}
		if c.IsClaimed(res.Header) {
			continue
		}
		c.SetColumnSelection(res.Header, sel)
	}
}

func (c *Config) seedPassthrough(prior *Config) {
	if len(prior.CustomFields) > 0 {
		c.CustomFields = make(map[string]CustomField, len(prior.CustomFields))
		for key, field := range prior.CustomFields {
			c.CustomFields[key] = field
		}
	}
	c.Header = prior.Header
	c.Options = prior.Options
}
