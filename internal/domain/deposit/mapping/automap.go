package mapping

import (
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/catalog"
	"github.com/mastanley13/commissable-crm/internal/domain/deposit/header"
)

// autoMapPriority is the order canonical line fields compete for headers:
// the money columns first, then identifiers, dates, and descriptive
// columns. A header claimed by an earlier field is unavailable to later
// ones within the same pass.
var autoMapPriority = []string{
	catalog.TargetUsage,
	catalog.TargetCommission,
	catalog.TargetCommissionRate,
	catalog.TargetAccountNumber,
	catalog.TargetCustomerName,
	catalog.TargetInvoiceDate,
	catalog.TargetProductName,
	catalog.TargetOrderNumber,
	catalog.TargetDescription,
}

// AutoMap assigns unmapped priority fields to live headers by exact
// normalized synonym match. Existing assignments are never overwritten,
// at most one header is assigned per field per pass, and the scorer's
// amount/rate disambiguation applies so a rate-looking header cannot
// auto-map to an amount field. Output is deterministic for a given
// (headers, mapping) pair.
func (c *Config) AutoMap(cat *catalog.Catalog, liveHeaders []string) {
	claimed := make(map[string]bool, len(liveHeaders))
	for _, h := range liveHeaders {
		if c.IsClaimed(h) {
			claimed[h] = true
		}
	}

	for _, targetID := range autoMapPriority {
		if _, mapped := c.Targets[targetID]; mapped {
			continue
		}
		target, ok := cat.Target(targetID)
		if !ok {
			continue
		}

		synonyms := make(map[string]bool)
		for _, key := range catalog.SynonymKeys(target) {
			synonyms[key] = true
		}

		for _, liveHeader := range liveHeaders {
			if claimed[liveHeader] {
				continue
			}
			if !synonyms[header.Normalize(liveHeader)] {
				continue
			}
			if targetID == catalog.TargetCommission && catalog.LooksLikeRate(liveHeader) {
				continue
			}
			if targetID == catalog.TargetUsage && catalog.MentionsRate(liveHeader) {
				continue
			}

			c.SetTarget(targetID, liveHeader)
			claimed[liveHeader] = true
			break
		}
	}
}
