package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

func newTestEngine() *Engine {
	return New(Deps{})
}

func TestIndexPutAndGet(t *testing.T) {
	e := newTestEngine()
	instance := &models.PluginInstance{PluginKey: "k1", ManifestID: "m1", Status: models.StatusInstalled}

	e.indexPut(instance)

	got := e.Get("k1")
	assert.NotNil(t, got)
	assert.Equal(t, "m1", got.ManifestID)

	// Get returns a copy, not a pointer into the index.
	got.ManifestID = "mutated"
	assert.Equal(t, "m1", e.Get("k1").ManifestID)
}

func TestIndexPut_TerminatedDropsManifestIDLookup(t *testing.T) {
	e := newTestEngine()
	instance := &models.PluginInstance{PluginKey: "k1", ManifestID: "m1", Status: models.StatusInstalled}
	e.indexPut(instance)
	assert.NotNil(t, e.findByManifestID("m1"))

	instance.Status = models.StatusUninstalling
	e.indexPut(instance)
	assert.Nil(t, e.findByManifestID("m1"))
}

func TestIndexRemove(t *testing.T) {
	e := newTestEngine()
	instance := &models.PluginInstance{PluginKey: "k1", ManifestID: "m1", Status: models.StatusInstalled}
	e.indexPut(instance)

	e.indexRemove("k1", "m1")
	assert.Nil(t, e.Get("k1"))
	assert.Nil(t, e.findByManifestID("m1"))
}

func TestList_FiltersByStatusAndManifestIDs(t *testing.T) {
	e := newTestEngine()
	e.indexPut(&models.PluginInstance{PluginKey: "k1", ManifestID: "m1", Status: models.StatusRunning, InstalledAt: time.Now()})
	e.indexPut(&models.PluginInstance{PluginKey: "k2", ManifestID: "m2", Status: models.StatusStopped, InstalledAt: time.Now()})

	running := e.List(models.PluginFilter{Status: models.StatusRunning})
	assert.Len(t, running, 1)
	assert.Equal(t, "k1", running[0].PluginKey)

	filtered := e.List(models.PluginFilter{ManifestIDs: []string{"m2"}})
	assert.Len(t, filtered, 1)
	assert.Equal(t, "k2", filtered[0].PluginKey)
}

func TestSortByInstalledAt(t *testing.T) {
	now := time.Now()
	instances := []*models.PluginInstance{
		{PluginKey: "newest", InstalledAt: now.Add(2 * time.Hour)},
		{PluginKey: "oldest", InstalledAt: now},
		{PluginKey: "middle", InstalledAt: now.Add(time.Hour)},
	}
	sortByInstalledAt(instances)

	assert.Equal(t, "oldest", instances[0].PluginKey)
	assert.Equal(t, "middle", instances[1].PluginKey)
	assert.Equal(t, "newest", instances[2].PluginKey)
}

func TestContainsString(t *testing.T) {
	assert.True(t, containsString([]string{"a", "b"}, "b"))
	assert.False(t, containsString([]string{"a", "b"}, "c"))
}
