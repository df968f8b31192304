package lifecycle

import (
	"context"
	"time"

	"github.com/flowforge/plugin-orchestrator/internal/container"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

const (
	healthInitialGrace = 10 * time.Second
	healthTickInterval = 30 * time.Second
)

// startHealthLoop launches a per-plugin observer goroutine if one is not
// already running. Safe to call more than once for the same key.
func (e *Engine) startHealthLoop(pluginKey string) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	if _, ok := e.healthCancel[pluginKey]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.healthCancel[pluginKey] = cancel
	go e.healthLoop(ctx, pluginKey)
}

// stopHealthLoop cancels a plugin's observer goroutine, if any. Called on
// uninstall so no orphaned goroutine outlives the plugin row.
func (e *Engine) stopHealthLoop(pluginKey string) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	if cancel, ok := e.healthCancel[pluginKey]; ok {
		cancel()
		delete(e.healthCancel, pluginKey)
	}
}

// healthLoop implements §4.4.7: an initial grace period, then a 30s tick
// that inspects the container, translates its state into a healthState,
// persists, and emits plugin:health. It exits on its own once the plugin
// leaves running, so Stop/Restart/Uninstall never need to race it.
func (e *Engine) healthLoop(ctx context.Context, pluginKey string) {
	defer e.clearHealthCancel(pluginKey)

	timer := time.NewTimer(healthInitialGrace)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		instance := e.Get(pluginKey)
		if instance == nil || instance.Status != models.StatusRunning {
			return
		}

		e.probeOnce(ctx, instance)

		timer.Reset(healthTickInterval)
	}
}

func (e *Engine) clearHealthCancel(pluginKey string) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()
	delete(e.healthCancel, pluginKey)
}

// probeOnce runs a single health tick. Inspect errors are logged and
// swallowed; the observer keeps running so a transient daemon blip does
// not tear down monitoring for a healthy plugin.
func (e *Engine) probeOnce(ctx context.Context, instance *models.PluginInstance) {
	inspect, err := e.driver.InspectContainer(ctx, instance.ContainerHandle)
	if err != nil {
		log.Warn().Err(err).Str("pluginKey", instance.PluginKey).Msg("health probe inspect failed")
		return
	}

	health := translateHealth(inspect)
	now := nowOrStamped()

	current := e.Get(instance.PluginKey)
	if current == nil || current.Status != models.StatusRunning {
		return
	}
	current.HealthState = health
	current.LastProbeAt = &now
	e.indexPut(current)

	if err := e.store.PatchStatus(ctx, current.PluginKey, current.Status, health, current.LastError); err != nil {
		log.Error().Err(err).Str("pluginKey", current.PluginKey).Msg("failed to persist health probe")
	}
	e.emit(events.SubjectHealth, current, map[string]interface{}{"healthState": string(health)})
}

// translateHealth maps the runtime's observed container state into the
// plugin's closed healthState set.
func translateHealth(inspect *container.InspectResult) models.HealthState {
	switch inspect.Health {
	case "healthy":
		return models.HealthHealthy
	case "unhealthy":
		return models.HealthUnhealthy
	case "starting":
		return models.HealthUnknown
	}
	if inspect.Running {
		return models.HealthHealthy
	}
	return models.HealthUnhealthy
}
