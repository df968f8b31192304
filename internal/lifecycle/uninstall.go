package lifecycle

import (
	"context"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// Uninstall runs the best-effort §4.4.5 teardown sequence. On success the
// PluginInstance disappears entirely (index and store row both removed);
// on partial failure the row is kept with status error so the caller can retry.
func (e *Engine) Uninstall(ctx context.Context, pluginKey string) error {
	if !e.locks.TryLock(pluginKey) {
		return apperrors.Busy(pluginKey)
	}
	defer e.locks.Unlock(pluginKey)

	instance := e.Get(pluginKey)
	if instance == nil {
		return apperrors.NotFound("plugin")
	}

	e.stopHealthLoop(pluginKey)

	instance.Status = models.StatusUninstalling
	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectUninstalling, nil)
	e.emit(events.SubjectUninstalling, instance, nil)

	if instance.ContainerHandle != "" {
		inspect, err := e.driver.InspectContainer(ctx, instance.ContainerHandle)
		if err == nil && inspect.Running {
			if err := e.driver.StopContainer(ctx, instance.ContainerHandle, 10); err != nil {
				appErr := apperrors.RuntimeUnavailable(err)
				e.errorOut(ctx, instance, appErr)
				return appErr
			}
		}

		if err := e.driver.RemoveContainer(ctx, instance.ContainerHandle); err != nil {
			appErr := apperrors.RuntimeUnavailable(err)
			e.errorOut(ctx, instance, appErr)
			return appErr
		}
	}

	e.ports.Release(instance.AllocatedHostPort)
	e.unpublishRoute(ctx, instance)

	if err := e.store.DeletePlugin(ctx, pluginKey); err != nil {
		log.Error().Err(err).Str("pluginKey", pluginKey).Msg("failed to delete plugin row after uninstall")
	}

	e.indexRemove(pluginKey, instance.ManifestID)
	e.emit(events.SubjectUninstalled, instance, nil)

	return nil
}
