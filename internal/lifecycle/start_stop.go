package lifecycle

import (
	"context"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/gateway"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// Start transitions a plugin from installed/stopped/error to running.
func (e *Engine) Start(ctx context.Context, pluginKey string) (*models.PluginInstance, error) {
	if !e.locks.TryLock(pluginKey) {
		return nil, apperrors.Busy(pluginKey)
	}
	defer e.locks.Unlock(pluginKey)

	instance := e.Get(pluginKey)
	if instance == nil {
		return nil, apperrors.NotFound("plugin")
	}

	if instance.Status == models.StatusRunning {
		return instance, nil
	}
	if instance.Status != models.StatusInstalled && instance.Status != models.StatusStopped && instance.Status != models.StatusError {
		return nil, apperrors.InvalidTransition(string(instance.Status), "start")
	}

	return e.startLocked(ctx, instance)
}

// startLocked performs the starting -> running transition; the caller must
// already hold the plugin's keyed lock.
func (e *Engine) startLocked(ctx context.Context, instance *models.PluginInstance) (*models.PluginInstance, error) {
	instance.Status = models.StatusStarting
	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectStarting, nil)
	e.emit(events.SubjectStarting, instance, nil)

	if err := e.driver.StartContainer(ctx, instance.ContainerHandle); err != nil {
		appErr := apperrors.RuntimeUnavailable(err)
		e.errorOut(ctx, instance, appErr)
		return instance, appErr
	}

	now := nowOrStamped()
	instance.Status = models.StatusRunning
	instance.StartedAt = &now
	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectStarted, nil)
	e.emit(events.SubjectStarted, instance, nil)

	e.publishRoute(ctx, instance)
	e.startHealthLoop(instance.PluginKey)

	return instance, nil
}

// Stop transitions a running/starting plugin to stopped.
func (e *Engine) Stop(ctx context.Context, pluginKey string) (*models.PluginInstance, error) {
	if !e.locks.TryLock(pluginKey) {
		return nil, apperrors.Busy(pluginKey)
	}
	defer e.locks.Unlock(pluginKey)

	instance := e.Get(pluginKey)
	if instance == nil {
		return nil, apperrors.NotFound("plugin")
	}

	return e.stopLocked(ctx, instance, 30)
}

func (e *Engine) stopLocked(ctx context.Context, instance *models.PluginInstance, graceSeconds int) (*models.PluginInstance, error) {
	if instance.Status != models.StatusRunning && instance.Status != models.StatusStarting {
		return nil, apperrors.InvalidTransition(string(instance.Status), "stop")
	}

	instance.Status = models.StatusStopping
	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectStopping, nil)
	e.emit(events.SubjectStopping, instance, nil)

	e.unpublishRoute(ctx, instance)

	if err := e.driver.StopContainer(ctx, instance.ContainerHandle, graceSeconds); err != nil {
		appErr := apperrors.RuntimeUnavailable(err)
		e.errorOut(ctx, instance, appErr)
		return instance, appErr
	}

	now := nowOrStamped()
	instance.Status = models.StatusStopped
	instance.StoppedAt = &now
	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectStopped, nil)
	e.emit(events.SubjectStopped, instance, nil)

	return instance, nil
}

// Restart is defined as Stop then Start; a failing Stop aborts before Start runs.
func (e *Engine) Restart(ctx context.Context, pluginKey string) (*models.PluginInstance, error) {
	if !e.locks.TryLock(pluginKey) {
		return nil, apperrors.Busy(pluginKey)
	}
	defer e.locks.Unlock(pluginKey)

	instance := e.Get(pluginKey)
	if instance == nil {
		return nil, apperrors.NotFound("plugin")
	}

	if instance.Status == models.StatusRunning || instance.Status == models.StatusStarting {
		stopped, err := e.stopLocked(ctx, instance, 30)
		if err != nil {
			return stopped, err
		}
		instance = stopped
	}

	return e.startLocked(ctx, instance)
}

// publishRoute registers the plugin's gateway route; failures never block
// the lifecycle and surface only as a plugin:warning event (§4.5).
func (e *Engine) publishRoute(ctx context.Context, instance *models.PluginInstance) {
	err := e.gateway.RegisterRoute(ctx, gateway.RouteSpec{
		Name:         e.ContainerName(instance.ManifestID),
		UpstreamHost: instance.ContainerName,
		UpstreamPort: instance.Manifest.Network.ContainerPort,
		BasePath:     instance.Manifest.EffectiveBasePath(),
		Endpoints:    instance.Manifest.Endpoints,
		RateLimit:    gateway.EffectiveRateLimit(instance.Manifest.Endpoints),
		CORS:         gateway.DefaultCORSPolicy(),
	})
	if err != nil {
		log.Warn().Err(err).Str("pluginKey", instance.PluginKey).Msg("gateway route registration failed")
		e.emit(events.SubjectWarning, instance, map[string]interface{}{"reason": "gateway_register_failed", "message": err.Error()})
	}
}

func (e *Engine) unpublishRoute(ctx context.Context, instance *models.PluginInstance) {
	if err := e.gateway.UnregisterRoute(ctx, e.ContainerName(instance.ManifestID)); err != nil {
		log.Warn().Err(err).Str("pluginKey", instance.PluginKey).Msg("gateway route unregistration failed")
		e.emit(events.SubjectWarning, instance, map[string]interface{}{"reason": "gateway_unregister_failed", "message": err.Error()})
	}
}
