package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

func baseTestManifest() models.Manifest {
	return models.Manifest{
		ID:      "sentiment-analyzer",
		Version: "1.0.0",
		Image:   models.ImageRef{Repository: "flowforge/sentiment-analyzer", Tag: "1.0.0"},
		Network: models.NetworkSpec{ContainerPort: 8080},
		Dependencies: models.Dependencies{
			PlatformServices: []string{models.PlatformServiceCache},
		},
	}
}

func TestIsCompatibleImageUpdate_TagOnlyChangeIsCompatible(t *testing.T) {
	old := baseTestManifest()
	updated := old
	updated.Image.Tag = "1.1.0"
	updated.Version = "1.1.0"

	assert.True(t, isCompatibleImageUpdate(old, updated))
}

func TestIsCompatibleImageUpdate_PortChangeIsNotCompatible(t *testing.T) {
	old := baseTestManifest()
	updated := old
	updated.Network.ContainerPort = 9090

	assert.False(t, isCompatibleImageUpdate(old, updated))
}

func TestIsCompatibleImageUpdate_DependencyChangeIsNotCompatible(t *testing.T) {
	old := baseTestManifest()
	updated := old
	updated.Dependencies.PlatformServices = []string{models.PlatformServiceCache, models.PlatformServiceVector}

	assert.False(t, isCompatibleImageUpdate(old, updated))
}

func TestIsCompatibleImageUpdate_RepositoryChangeIsNotCompatible(t *testing.T) {
	old := baseTestManifest()
	updated := old
	updated.Image.Repository = "flowforge/sentiment-analyzer-v2"

	assert.False(t, isCompatibleImageUpdate(old, updated))
}
