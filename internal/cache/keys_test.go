package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tempohq/tempo/api/internal/model"
)

func TestListingKey_EmbedsVersion(t *testing.T) {
	t.Parallel()

	k1 := listingKey("user:alice", 0, nil)
	k2 := listingKey("user:alice", 1, nil)

	assert.NotEqual(t, k1, k2, "version bump must change the key")
}

func TestListingKey_NilAndEmptyFiltersMatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		listingKey("user:alice", 3, nil),
		listingKey("user:alice", 3, &model.EventFilters{}),
	)
}

func TestCanonicalFilters_EquivalentTimesMatch(t *testing.T) {
	t.Parallel()

	utc := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("CET", 3600))

	a := canonicalFilters(&model.EventFilters{From: &utc})
	b := canonicalFilters(&model.EventFilters{From: &offset})

	assert.Equal(t, a, b, "same instant in different zones must produce the same key")
}

func TestCanonicalFilters_DistinctParamsDistinctKeys(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alice := "alice@example.com"
	bob := "bob@example.com"

	variants := []*model.EventFilters{
		nil,
		{From: &from},
		{To: &from},
		{Participant: &alice},
		{Participant: &bob},
		{From: &from, To: &from},
	}

	keys := make(map[string]bool)
	for _, f := range variants {
		keys[canonicalFilters(f)] = true
	}

	assert.Len(t, keys, len(variants), "each filter combination must get its own key")
}
