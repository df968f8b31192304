package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

func TestMergeEntries_SmallestPriorityWins(t *testing.T) {
	entries := []models.CatalogEntry{
		{SourceID: "A", Manifest: models.Manifest{ID: "pdf", Version: "2.0.0"}},
		{SourceID: "B", Manifest: models.Manifest{ID: "pdf", Version: "1.0.0"}},
	}
	priorities := map[string]int{"A": 10, "B": 5}

	merged := mergeEntries(entries, priorities)
	assert.Len(t, merged, 1)
	assert.Equal(t, "B", merged[0].SourceID)
	assert.Equal(t, "1.0.0", merged[0].Manifest.Version)
}

func TestMergeEntries_DistinctManifestIDsBothSurvive(t *testing.T) {
	entries := []models.CatalogEntry{
		{SourceID: "A", Manifest: models.Manifest{ID: "pdf"}},
		{SourceID: "A", Manifest: models.Manifest{ID: "ocr"}},
	}
	merged := mergeEntries(entries, map[string]int{"A": 1})
	assert.Len(t, merged, 2)
}

func TestSortEntries_FeaturedFirstThenDownloads(t *testing.T) {
	entries := []models.CatalogEntry{
		{Manifest: models.Manifest{ID: "low-featured"}, Featured: true, Downloads: 5},
		{Manifest: models.Manifest{ID: "unfeatured-high"}, Featured: false, Downloads: 1000},
		{Manifest: models.Manifest{ID: "high-featured"}, Featured: true, Downloads: 500},
	}
	sortEntries(entries)

	assert.Equal(t, "high-featured", entries[0].Manifest.ID)
	assert.Equal(t, "low-featured", entries[1].Manifest.ID)
	assert.Equal(t, "unfeatured-high", entries[2].Manifest.ID)
}
