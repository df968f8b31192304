package lifecycle

import (
	"context"
	"fmt"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/manifestfetch"
	"github.com/flowforge/plugin-orchestrator/internal/models"
	"github.com/flowforge/plugin-orchestrator/internal/validator"
)

// UpdateRequest is the normalized input to Update; exactly one of its
// fields is expected to be set by the caller.
type UpdateRequest struct {
	NewManifest *models.Manifest
	NewImageTag string
	BundleURL   string
}

// Update runs the §4.4.6 update sequence: snapshot the current manifest,
// compute the target manifest, and replace the running container either
// via the image-tag fast path or a full replace-in-place. A failure after
// the old container was torn down triggers an automatic rollback to the
// previous version; an earlier failure leaves the old container in place
// with status error.
func (e *Engine) Update(ctx context.Context, pluginKey string, req UpdateRequest) (*models.PluginInstance, error) {
	if !e.locks.TryLock(pluginKey) {
		return nil, apperrors.Busy(pluginKey)
	}
	defer e.locks.Unlock(pluginKey)

	instance := e.Get(pluginKey)
	if instance == nil {
		return nil, apperrors.NotFound("plugin")
	}

	target, imageOnly, err := e.resolveUpdateTarget(ctx, instance, req)
	if err != nil {
		return nil, err
	}

	// The pre-update snapshot and its history row are recorded unconditionally,
	// before the container is touched, so a failed update still leaves a
	// PreviousManifest an explicit Rollback can target and an update-history
	// row reflecting the attempt.
	previous := instance.Manifest
	prevCopy := previous
	instance.PreviousManifest = &prevCopy

	if err := e.store.RecordUpdate(ctx, models.UpdateHistoryEntry{
		PluginKey:   pluginKey,
		FromVersion: previous.Version,
		ToVersion:   target.Version,
		Action:      models.UpdateActionUpdate,
		Timestamp:   nowOrStamped(),
	}); err != nil {
		log.Error().Err(err).Str("pluginKey", pluginKey).Msg("failed to record update history")
	}

	tornDown, err := e.replaceContainer(ctx, instance, target, imageOnly)
	if err != nil {
		if !tornDown {
			// The old container was never touched (e.g. the image pull
			// failed before any teardown started): leave it registered and
			// status=error rather than destroying a healthy container to
			// "recover" to the state it was already in.
			return instance, err
		}
		rollbackErr := e.recoverPrevious(ctx, instance, previous)
		if rollbackErr != nil {
			return instance, fmt.Errorf("update failed (%w); automatic recovery also failed: %v", err, rollbackErr)
		}
		return instance, err
	}

	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectInstalled, map[string]interface{}{"action": "update"})

	return instance, nil
}

// Rollback reverts a plugin to its retained previous manifest version.
func (e *Engine) Rollback(ctx context.Context, pluginKey string) (*models.PluginInstance, error) {
	if !e.locks.TryLock(pluginKey) {
		return nil, apperrors.Busy(pluginKey)
	}
	defer e.locks.Unlock(pluginKey)

	instance := e.Get(pluginKey)
	if instance == nil {
		return nil, apperrors.NotFound("plugin")
	}
	if instance.PreviousManifest == nil {
		return nil, apperrors.NewWithDetails(apperrors.CodeInvalidManifest, "no previous version retained for rollback", pluginKey)
	}

	current := instance.Manifest
	target := *instance.PreviousManifest

	if _, err := e.replaceContainer(ctx, instance, &target, false); err != nil {
		return instance, err
	}

	instance.PreviousManifest = &current
	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectInstalled, map[string]interface{}{"action": "rollback"})

	if err := e.store.RecordUpdate(ctx, models.UpdateHistoryEntry{
		PluginKey:   pluginKey,
		FromVersion: current.Version,
		ToVersion:   target.Version,
		Action:      models.UpdateActionRollback,
		Timestamp:   nowOrStamped(),
	}); err != nil {
		log.Error().Err(err).Str("pluginKey", pluginKey).Msg("failed to record rollback history")
	}

	return instance, nil
}

// resolveUpdateTarget normalizes the request into a validated target
// manifest and reports whether the change qualifies for the image-only
// fast path (same containerPort, dependencies, and ports as the current
// manifest).
func (e *Engine) resolveUpdateTarget(ctx context.Context, instance *models.PluginInstance, req UpdateRequest) (*models.Manifest, bool, error) {
	current := instance.Manifest

	switch {
	case req.NewManifest != nil:
		if verr := validator.ValidateManifest(req.NewManifest); verr != nil {
			return nil, false, apperrors.NewWithDetails(apperrors.CodeInvalidManifest, "manifest failed validation", fmt.Sprintf("%+v", verr.Problems))
		}
		if req.NewManifest.ID != instance.ManifestID {
			return nil, false, apperrors.InvalidManifest("update manifest id must match the installed plugin")
		}
		return req.NewManifest, isCompatibleImageUpdate(current, *req.NewManifest), nil

	case req.NewImageTag != "":
		updated := current
		updated.Image.Tag = req.NewImageTag
		return &updated, true, nil

	case req.BundleURL != "":
		fetched, err := manifestfetch.Fetch(ctx, req.BundleURL)
		if err != nil {
			return nil, false, apperrors.InvalidManifest(fmt.Sprintf("failed to fetch bundle manifest: %v", err))
		}
		if verr := validator.ValidateManifest(fetched); verr != nil {
			return nil, false, apperrors.NewWithDetails(apperrors.CodeInvalidManifest, "manifest failed validation", fmt.Sprintf("%+v", verr.Problems))
		}
		if fetched.ID != instance.ManifestID {
			return nil, false, apperrors.InvalidManifest("update manifest id must match the installed plugin")
		}
		return fetched, isCompatibleImageUpdate(current, *fetched), nil

	default:
		return nil, false, apperrors.InvalidManifest("update requires newManifest, newImageTag, or bundleUrl")
	}
}

// isCompatibleImageUpdate reports whether two manifest versions share
// containerPort, hostPort, platform-service dependencies and image
// repository, making the lighter image-only replace path (§4.4.6 step 2)
// applicable. Other manifest fields are not compared.
func isCompatibleImageUpdate(old, updated models.Manifest) bool {
	if old.Network.ContainerPort != updated.Network.ContainerPort {
		return false
	}
	if old.Network.HostPort != updated.Network.HostPort {
		return false
	}
	if len(old.Dependencies.PlatformServices) != len(updated.Dependencies.PlatformServices) {
		return false
	}
	for i, svc := range old.Dependencies.PlatformServices {
		if updated.Dependencies.PlatformServices[i] != svc {
			return false
		}
	}
	return old.Image.Repository == updated.Image.Repository
}

// replaceContainer tears down the existing container and recreates it
// from target at the instance's already-allocated host port, pulling the
// image first when imageOnly is set (§4.4.6 steps 2-3). It leaves the
// instance in status error on failure, since the caller is responsible
// for attempting automatic recovery. The returned bool reports whether
// the previous container was actually torn down: when it is false (the
// image pull failed before anything was stopped or removed), the old
// container is still intact and the caller must not attempt a recreate
// "recovery" against it.
func (e *Engine) replaceContainer(ctx context.Context, instance *models.PluginInstance, target *models.Manifest, imageOnly bool) (bool, error) {
	e.stopHealthLoop(instance.PluginKey)

	imageRef := target.Image.Repository + ":" + target.EffectiveTag()
	if imageOnly || !e.driver.ImageExists(ctx, imageRef) {
		if err := e.driver.PullImage(ctx, imageRef); err != nil {
			appErr := apperrors.ImagePullFailed(err)
			e.errorOut(ctx, instance, appErr)
			return false, appErr
		}
	}

	if instance.ContainerHandle != "" {
		inspect, err := e.driver.InspectContainer(ctx, instance.ContainerHandle)
		if err == nil && inspect.Running {
			if err := e.driver.StopContainer(ctx, instance.ContainerHandle, 30); err != nil {
				appErr := apperrors.RuntimeUnavailable(err)
				e.errorOut(ctx, instance, appErr)
				return false, appErr
			}
		}
		if err := e.driver.RemoveContainer(ctx, instance.ContainerHandle); err != nil {
			appErr := apperrors.RuntimeUnavailable(err)
			e.errorOut(ctx, instance, appErr)
			return false, appErr
		}
	}

	// The old container (if any) is gone from here on; any later failure
	// leaves nothing worth preserving, so recovery is always appropriate.
	tornDown := true

	envMap := e.buildEnv(*target, instance.AllocatedHostPort, instance.EffectiveEnv)
	containerID, err := e.driver.CreateContainer(ctx, containerCreateSpec(instance.PluginKey, instance.ContainerName, imageRef, instance.AllocatedHostPort, *target, envMap))
	if err != nil {
		appErr := apperrors.RuntimeUnavailable(err)
		e.errorOut(ctx, instance, appErr)
		return tornDown, appErr
	}

	instance.ContainerHandle = containerID
	instance.Manifest = *target
	instance.EffectiveEnv = envMap

	_, err = e.startLocked(ctx, instance)
	return tornDown, err
}

// recoverPrevious attempts to restore the container from the manifest
// that was active before a failed update, per the automatic-rollback
// requirement of §4.4.9. It is only called once the caller has confirmed
// the failed attempt actually tore down the prior container.
func (e *Engine) recoverPrevious(ctx context.Context, instance *models.PluginInstance, previous models.Manifest) error {
	instance.Status = models.StatusError
	_, err := e.replaceContainer(ctx, instance, &previous, false)
	return err
}
