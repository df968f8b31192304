package lifecycle

import (
	"github.com/flowforge/plugin-orchestrator/internal/container"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// containerCreateSpec translates a manifest plus resolved port/env into the
// container driver's creation spec.
func containerCreateSpec(pluginKey, containerName, imageRef string, hostPort int, manifest models.Manifest, env models.StringMap) container.CreateSpec {
	return container.CreateSpec{
		PluginKey:     pluginKey,
		ContainerName: containerName,
		Image:         imageRef,
		ContainerPort: manifest.Network.ContainerPort,
		HostPort:      hostPort,
		Env:           containerEnvSlice(env),
		Resources:     manifest.Resources,
		Volumes:       manifest.Volumes,

		HealthPath:            manifest.EffectiveHealthPath(),
		HealthIntervalSeconds: manifest.Health.IntervalSeconds,
		HealthTimeoutSeconds:  manifest.Health.TimeoutSeconds,
		HealthRetries:         manifest.Health.Retries,
	}
}
