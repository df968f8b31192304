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

// InstallRequest is the normalized input to Install, combining the two
// accepted shapes (inline manifest or manifestUrl) into one struct.
type InstallRequest struct {
	ManifestURL string
	Manifest    *models.Manifest
	Config      map[string]string
	Environment map[string]string
	AutoStart   *bool
}

func (r InstallRequest) autoStart() bool {
	if r.AutoStart == nil {
		return true
	}
	return *r.AutoStart
}

// Install runs the full §4.4.1 install sequence.
func (e *Engine) Install(ctx context.Context, req InstallRequest) (*models.PluginInstance, error) {
	manifest := req.Manifest
	if manifest == nil {
		if req.ManifestURL == "" {
			return nil, apperrors.InvalidManifest("manifest or manifestUrl is required")
		}
		fetched, err := manifestfetch.Fetch(ctx, req.ManifestURL)
		if err != nil {
			return nil, apperrors.InvalidManifest(fmt.Sprintf("failed to fetch manifest: %v", err))
		}
		manifest = fetched
	}

	if verr := validator.ValidateManifest(manifest); verr != nil {
		details := ""
		if len(verr.Problems) > 0 {
			details = fmt.Sprintf("%+v", verr.Problems)
		}
		return nil, apperrors.NewWithDetails(apperrors.CodeInvalidManifest, "manifest failed validation", details)
	}

	if existing := e.findByManifestID(manifest.ID); existing != nil {
		return nil, apperrors.AlreadyInstalled(manifest.ID)
	}

	hostPort, err := e.resolveHostPort(manifest)
	if err != nil {
		return nil, err
	}

	pluginKey := newPluginKey()
	now := nowOrStamped()
	instance := &models.PluginInstance{
		PluginKey:         pluginKey,
		ManifestID:        manifest.ID,
		Manifest:          *manifest,
		Status:            models.StatusInstalling,
		ContainerName:     e.ContainerName(manifest.ID),
		AllocatedHostPort: hostPort,
		EffectiveConfig:   buildEffectiveConfig(*manifest, req.Config),
		EffectiveEnv:      models.StringMap{},
		InstalledAt:       now,
		HealthState:       models.HealthUnknown,
	}

	// Acquire the plugin's lock for the rest of the sequence; no prior
	// holder can exist since pluginKey was just generated.
	if !e.locks.TryLock(pluginKey) {
		return nil, apperrors.Busy(pluginKey)
	}
	defer e.locks.Unlock(pluginKey)

	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectInstalling, nil)
	e.emit(events.SubjectInstalling, instance, nil)

	if err := e.driver.EnsureNetwork(ctx); err != nil {
		e.errorOut(ctx, instance, apperrors.RuntimeUnavailable(err))
		return instance, apperrors.RuntimeUnavailable(err)
	}

	imageRef := manifest.Image.Repository + ":" + manifest.EffectiveTag()
	if !e.driver.ImageExists(ctx, imageRef) {
		if err := e.driver.PullImage(ctx, imageRef); err != nil {
			appErr := apperrors.ImagePullFailed(err)
			e.errorOut(ctx, instance, appErr)
			return instance, appErr
		}
	}

	for _, v := range manifest.Volumes {
		volName := e.driver.VolumeName(pluginKey, v.LogicalName)
		if err := e.driver.EnsureVolume(ctx, volName); err != nil {
			appErr := apperrors.RuntimeUnavailable(err)
			e.errorOut(ctx, instance, appErr)
			return instance, appErr
		}
	}

	envMap := e.buildEnv(*manifest, hostPort, req.Environment)
	instance.EffectiveEnv = envMap

	containerID, err := e.driver.CreateContainer(ctx, containerCreateSpec(pluginKey, instance.ContainerName, imageRef, hostPort, *manifest, envMap))
	if err != nil {
		appErr := apperrors.RuntimeUnavailable(err)
		e.errorOut(ctx, instance, appErr)
		return instance, appErr
	}

	instance.ContainerHandle = containerID
	instance.Status = models.StatusInstalled
	e.indexPut(instance)
	e.persist(ctx, instance, events.SubjectInstalled, nil)
	e.emit(events.SubjectInstalled, instance, nil)

	if err := e.store.RecordUpdate(ctx, models.UpdateHistoryEntry{
		PluginKey: pluginKey,
		ToVersion: manifest.Version,
		Action:    models.UpdateActionInstall,
		Timestamp: now,
	}); err != nil {
		log.Error().Err(err).Str("pluginKey", pluginKey).Msg("failed to record install history")
	}

	if req.autoStart() {
		// startLocked reuses the lock we already hold for this pluginKey.
		return e.startLocked(ctx, instance)
	}

	return instance, nil
}

// resolveHostPort allocates a port unless the manifest fixes one, in which
// case it verifies that port is not already taken.
func (e *Engine) resolveHostPort(manifest *models.Manifest) (int, error) {
	if manifest.Network.HostPort != 0 {
		if e.ports.InUse(manifest.Network.HostPort) {
			return 0, apperrors.PortInUse(manifest.Network.HostPort)
		}
		e.ports.Reserve(manifest.Network.HostPort)
		return manifest.Network.HostPort, nil
	}
	port, err := e.ports.Allocate()
	if err != nil {
		return 0, err
	}
	return port, nil
}

func buildEffectiveConfig(manifest models.Manifest, overrides map[string]string) models.StringMap {
	out := models.StringMap{}
	for k, v := range manifest.Config.Defaults {
		out[k] = fmt.Sprintf("%v", v)
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// buildEnv assembles the container's environment following the documented
// override order: user > manifest default > platform service.
func (e *Engine) buildEnv(manifest models.Manifest, hostPort int, userOverrides map[string]string) models.StringMap {
	env := models.StringMap{
		"CONTAINER_PORT": fmt.Sprintf("%d", manifest.Network.ContainerPort),
		"ENVIRONMENT":    "production",
	}

	for _, svc := range manifest.Dependencies.PlatformServices {
		for k, v := range e.platform.EnvFor(svc) {
			env[k] = v
		}
	}

	for _, ev := range manifest.Environment {
		if ev.Default != "" {
			env[ev.Name] = ev.Default
		}
	}

	for k, v := range userOverrides {
		env[k] = v
	}

	return env
}

func containerEnvSlice(env models.StringMap) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
