package lifecycle

import (
	"context"
	"fmt"

	"github.com/flowforge/plugin-orchestrator/internal/container"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// Reconcile runs once at startup, after the store connection and runtime
// ping succeed and before the API surface starts serving (§4.7). It seeds
// the in-memory index and the port allocator from the store, then
// cross-checks every managed container against that index: known
// containers are adopted back into their instance, containers with no
// matching instance are adopted as new ones, and instances whose
// container has disappeared are marked stopped. It is idempotent and
// safe to run again.
func (e *Engine) Reconcile(ctx context.Context) error {
	instances, err := e.store.ListPlugins(ctx, models.PluginFilter{})
	if err != nil {
		return fmt.Errorf("reconcile: load plugin rows: %w", err)
	}
	e.loadIndex(instances)
	for _, p := range instances {
		if p.AllocatedHostPort > 0 {
			e.ports.Reserve(p.AllocatedHostPort)
		}
	}

	managed, err := e.driver.ListManagedContainers(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: list managed containers: %w", err)
	}

	byManifestID := make(map[string]bool, len(managed))
	for _, mc := range managed {
		byManifestID[mc.ManifestID] = true

		if instance := e.findByManifestID(mc.ManifestID); instance != nil {
			e.reconcileKnownContainer(ctx, instance, mc)
			continue
		}
		e.adoptOrphanContainer(ctx, mc)
	}

	for _, p := range instances {
		if p.Status.Terminated() {
			continue
		}
		if !byManifestID[p.ManifestID] && p.ContainerHandle != "" {
			p.Status = models.StatusStopped
			p.ContainerHandle = ""
			e.indexPut(p)
			e.persist(ctx, p, events.SubjectStopped, map[string]interface{}{"reason": "container_missing_on_reconcile"})
		}
	}

	return nil
}

// reconcileKnownContainer updates a PluginInstance's container handle and
// status to match what the runtime actually reports.
func (e *Engine) reconcileKnownContainer(ctx context.Context, instance *models.PluginInstance, mc container.ManagedContainer) {
	changed := false
	if instance.ContainerHandle != mc.ID {
		instance.ContainerHandle = mc.ID
		changed = true
	}

	observed := models.StatusStopped
	if mc.Running {
		observed = models.StatusRunning
	}
	if instance.Status != observed && !instance.Status.Terminated() &&
		(instance.Status == models.StatusRunning || instance.Status == models.StatusStopped || instance.Status == models.StatusStarting || instance.Status == models.StatusStopping) {
		instance.Status = observed
		changed = true
	}

	if changed {
		e.indexPut(instance)
		e.persist(ctx, instance, events.SubjectHealth, map[string]interface{}{"reason": "reconciled_on_startup"})
	}

	if instance.Status == models.StatusRunning {
		e.startHealthLoop(instance.PluginKey)
	}
}

// adoptOrphanContainer synthesizes a minimal PluginInstance for a managed
// container this process has no record of, per §4.7 step 3's adopt path.
func (e *Engine) adoptOrphanContainer(ctx context.Context, mc container.ManagedContainer) {
	inspect, err := e.driver.InspectContainer(ctx, mc.ID)
	if err != nil {
		log.Warn().Err(err).Str("container", mc.Name).Msg("failed to inspect orphaned container during reconcile")
		return
	}

	if inspect.HostPort > 0 {
		e.ports.Reserve(inspect.HostPort)
	}

	status := models.StatusStopped
	if mc.Running {
		status = models.StatusRunning
	}

	instance := &models.PluginInstance{
		PluginKey:  mc.ManifestID,
		ManifestID: mc.ManifestID,
		Manifest: models.Manifest{
			ID:      mc.ManifestID,
			Version: "unknown",
			Network: models.NetworkSpec{HostPort: inspect.HostPort},
		},
		Status:            status,
		ContainerHandle:   mc.ID,
		ContainerName:     mc.Name,
		AllocatedHostPort: inspect.HostPort,
		EffectiveConfig:   models.StringMap{},
		EffectiveEnv:      models.StringMap{},
		InstalledAt:       nowOrStamped(),
		HealthState:       models.HealthUnknown,
	}

	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectInstalled, map[string]interface{}{"reason": "adopted_orphan"})

	if instance.Status == models.StatusRunning {
		e.startHealthLoop(instance.PluginKey)
	}
}
