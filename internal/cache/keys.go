package cache

import (
	"fmt"
	"time"

	"github.com/tempohq/tempo/api/internal/model"
)

// versionKey holds the creator's namespace version counter.
func versionKey(creatorID string) string {
	return "events:ver:" + creatorID
}

// listingKey builds the cache key for one listing variant. The filter
// parameters are canonicalized so that logically identical requests hit the
// same entry, and the creator's version is embedded so a bump invalidates
// every variant.
func listingKey(creatorID string, version int64, filters *model.EventFilters) string {
	return fmt.Sprintf("events:%s:%d:%s", creatorID, version, canonicalFilters(filters))
}

func canonicalFilters(filters *model.EventFilters) string {
	if filters == nil {
		return "all"
	}
	from, to, participant := "-", "-", "-"
	if filters.From != nil {
		from = filters.From.UTC().Format(time.RFC3339)
	}
	if filters.To != nil {
		to = filters.To.UTC().Format(time.RFC3339)
	}
	if filters.Participant != nil {
		participant = *filters.Participant
	}
	if from == "-" && to == "-" && participant == "-" {
		return "all"
	}
	return "from=" + from + "&to=" + to + "&participant=" + participant
}
