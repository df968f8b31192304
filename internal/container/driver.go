// Package container wraps the Docker Go SDK to expose the narrow set of
// operations the lifecycle engine needs to run plugin containers: image
// pull, network/volume ensure-if-absent, create/start/stop/remove, inspect,
// log tailing, and enumeration of everything this process manages. Grounded
// on the docker-agent's agent_docker_operations.go, generalized from
// per-session containers to per-plugin-instance containers.
package container

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/logger"
	"github.com/flowforge/plugin-orchestrator/internal/models"
	"github.com/flowforge/plugin-orchestrator/internal/resources"
)

// managedLabel marks the network/volume/container resources this process
// created. Containers also carry a "plugin-key" label, but enumeration for
// reconciliation filters by container name prefix instead (see
// ListManagedContainers), so a container that predates this process and
// carries neither label is still found and can be adopted.
const managedLabel = "flowforge.plugin-orchestrator/managed"

var log = logger.Component("container")

// Driver talks to one container daemon over the Docker Engine API.
type Driver struct {
	client              *client.Client
	networkName         string
	volumePrefix        string
	containerNamePrefix string
}

// New connects to the container daemon at host and verifies it with a ping.
func New(host, networkName, volumePrefix, containerNamePrefix string) (*Driver, error) {
	cli, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create container client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping container daemon: %w", err)
	}

	return &Driver{
		client:              cli,
		networkName:         networkName,
		volumePrefix:        volumePrefix,
		containerNamePrefix: containerNamePrefix,
	}, nil
}

// Close releases the client's connections.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ping reports whether the container daemon is reachable, for the /health endpoint.
func (d *Driver) Ping(ctx context.Context) error {
	_, err := d.client.Ping(ctx)
	return err
}

// EnsureNetwork creates the managed bridge network if it does not exist yet.
func (d *Driver) EnsureNetwork(ctx context.Context) error {
	networks, err := d.client.NetworkList(ctx, types.NetworkListOptions{})
	if err != nil {
		return fmt.Errorf("list networks: %w", err)
	}
	for _, n := range networks {
		if n.Name == d.networkName {
			return nil
		}
	}

	log.Info().Str("network", d.networkName).Msg("creating managed network")
	_, err = d.client.NetworkCreate(ctx, d.networkName, types.NetworkCreate{
		Driver: "bridge",
		Labels: map[string]string{managedLabel: "true"},
	})
	if err != nil {
		return fmt.Errorf("create network %s: %w", d.networkName, err)
	}
	return nil
}

// EnsureVolume creates a named volume for a plugin's logical volume if absent.
func (d *Driver) EnsureVolume(ctx context.Context, name string) error {
	_, err := d.client.VolumeInspect(ctx, name)
	if err == nil {
		return nil
	}

	log.Info().Str("volume", name).Msg("creating managed volume")
	_, err = d.client.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Labels: map[string]string{managedLabel: "true"},
	})
	if err != nil {
		return fmt.Errorf("create volume %s: %w", name, err)
	}
	return nil
}

// VolumeName derives the daemon-level volume name for one of a plugin's
// logical volumes, namespaced under the configured prefix.
func (d *Driver) VolumeName(pluginKey, logicalName string) string {
	return fmt.Sprintf("%s%s-%s", d.volumePrefix, pluginKey, logicalName)
}

// ImageExists reports whether image is already present locally.
func (d *Driver) ImageExists(ctx context.Context, image string) bool {
	_, _, err := d.client.ImageInspectWithRaw(ctx, image)
	return err == nil
}

// PullImage pulls image if it is not already present locally.
func (d *Driver) PullImage(ctx context.Context, image string) error {
	if d.ImageExists(ctx, image) {
		return nil
	}

	log.Info().Str("image", image).Msg("pulling image")
	reader, err := d.client.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return apperrors.ImagePullFailed(err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return apperrors.ImagePullFailed(err)
	}
	return nil
}

// CreateSpec is everything CreateContainer needs to stand up one plugin instance.
type CreateSpec struct {
	PluginKey     string
	ContainerName string
	Image         string
	ContainerPort int
	HostPort      int
	Env           []string
	Resources     models.ResourceSpec
	Volumes       []models.VolumeSpec

	// HealthPath is the HTTP path the daemon's native healthcheck probes;
	// empty gives the container no Healthcheck config, leaving
	// inspect.State.Health unset. The lifecycle engine always sets it from
	// Manifest.EffectiveHealthPath, which defaults when the manifest has none.
	HealthPath            string
	HealthIntervalSeconds int
	HealthTimeoutSeconds  int
	HealthRetries         int
}

// CreateContainer creates (but does not start) a container for a plugin instance.
func (d *Driver) CreateContainer(ctx context.Context, spec CreateSpec) (string, error) {
	cfg := &container.Config{
		Image: spec.Image,
		Env:   spec.Env,
		Labels: map[string]string{
			managedLabel:  "true",
			"plugin-key":  spec.PluginKey,
		},
	}

	if spec.HealthPath != "" {
		cfg.Healthcheck = healthConfigFor(spec)
	}

	natPort := nat.Port(fmt.Sprintf("%d/tcp", spec.ContainerPort))
	cfg.ExposedPorts = nat.PortSet{natPort: struct{}{}}

	hostBinding := nat.PortBinding{HostIP: "0.0.0.0"}
	if spec.HostPort > 0 {
		hostBinding.HostPort = fmt.Sprintf("%d", spec.HostPort)
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{natPort: []nat.PortBinding{hostBinding}},
		RestartPolicy: container.RestartPolicy{
			Name: "unless-stopped",
		},
	}

	if spec.Resources.Memory != "" {
		hostConfig.Resources.Memory = resources.ParseMemory(spec.Resources.Memory)
	}
	if spec.Resources.CPU != "" {
		hostConfig.Resources.NanoCPUs = resources.ParseCPU(spec.Resources.CPU)
	}

	var mounts []mount.Mount
	for _, v := range spec.Volumes {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeVolume,
			Source:   d.VolumeName(spec.PluginKey, v.LogicalName),
			Target:   v.ContainerPath,
			ReadOnly: v.ReadOnly,
		})
	}
	hostConfig.Mounts = mounts

	networkConfig := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			d.networkName: {},
		},
	}

	log.Info().Str("container", spec.ContainerName).Str("image", spec.Image).Msg("creating container")
	resp, err := d.client.ContainerCreate(ctx, cfg, hostConfig, networkConfig, nil, spec.ContainerName)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.ContainerName, err)
	}
	return resp.ID, nil
}

const (
	defaultHealthIntervalSeconds = 30
	defaultHealthTimeoutSeconds  = 5
	defaultHealthRetries         = 3
)

// healthConfigFor translates a manifest's declared HTTP health probe into
// the daemon's native healthcheck, per §4.3: a curl against the container's
// own port/path, on the probe's interval/timeout/retries (or this package's
// defaults when the manifest leaves them at zero).
func healthConfigFor(spec CreateSpec) *container.HealthConfig {
	interval := spec.HealthIntervalSeconds
	if interval <= 0 {
		interval = defaultHealthIntervalSeconds
	}
	timeout := spec.HealthTimeoutSeconds
	if timeout <= 0 {
		timeout = defaultHealthTimeoutSeconds
	}
	retries := spec.HealthRetries
	if retries <= 0 {
		retries = defaultHealthRetries
	}

	healthURL := fmt.Sprintf("http://localhost:%d%s", spec.ContainerPort, spec.HealthPath)
	return &container.HealthConfig{
		Test:     []string{"CMD", "curl", "-f", healthURL},
		Interval: time.Duration(interval) * time.Second,
		Timeout:  time.Duration(timeout) * time.Second,
		Retries:  retries,
	}
}

// StartContainer starts a previously-created container.
func (d *Driver) StartContainer(ctx context.Context, containerID string) error {
	if err := d.client.ContainerStart(ctx, containerID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", shortID(containerID), err)
	}
	return nil
}

// StopContainer stops a running container, allowing graceTimeoutSeconds for
// a clean shutdown before SIGKILL.
func (d *Driver) StopContainer(ctx context.Context, containerID string, graceTimeoutSeconds int) error {
	timeout := graceTimeoutSeconds
	if err := d.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("stop container %s: %w", shortID(containerID), err)
	}
	return nil
}

// RemoveContainer force-removes a container, leaving its volumes intact so
// update/rollback can reuse stateful data.
func (d *Driver) RemoveContainer(ctx context.Context, containerID string) error {
	err := d.client.ContainerRemove(ctx, containerID, types.ContainerRemoveOptions{
		Force:         true,
		RemoveVolumes: false,
	})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("remove container %s: %w", shortID(containerID), err)
	}
	return nil
}

// InspectResult is the subset of container state the health monitor and
// reconciler need.
type InspectResult struct {
	Running  bool
	Status   string
	ExitCode int
	HostPort int
	// Health is the daemon's own healthcheck status ("healthy", "unhealthy",
	// "starting") when the container has a healthcheck, empty otherwise.
	Health string
}

// InspectContainer reports a container's current runtime state.
func (d *Driver) InspectContainer(ctx context.Context, containerID string) (*InspectResult, error) {
	inspect, err := d.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("inspect container %s: %w", shortID(containerID), err)
	}

	result := &InspectResult{
		Running: inspect.State.Running,
		Status:  inspect.State.Status,
	}
	if inspect.State.ExitCode != 0 {
		result.ExitCode = inspect.State.ExitCode
	}
	if inspect.State.Health != nil {
		result.Health = inspect.State.Health.Status
	}
	for _, bindings := range inspect.NetworkSettings.Ports {
		for _, b := range bindings {
			if b.HostPort != "" {
				fmt.Sscanf(b.HostPort, "%d", &result.HostPort)
			}
		}
	}
	return result, nil
}

// TailLogs returns the last tailLines lines of combined stdout/stderr.
func (d *Driver) TailLogs(ctx context.Context, containerID string, tailLines int) (string, error) {
	reader, err := d.client.ContainerLogs(ctx, containerID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       fmt.Sprintf("%d", tailLines),
	})
	if err != nil {
		return "", fmt.Errorf("tail logs for %s: %w", shortID(containerID), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read logs for %s: %w", shortID(containerID), err)
	}
	return string(data), nil
}

// ManagedContainer is one row of ListManagedContainers, used by the
// reconciler to adopt containers that survived a process restart or that
// predate this orchestrator entirely.
type ManagedContainer struct {
	ID   string
	Name string
	// PluginKey is this process's internal instance key, from the
	// "plugin-key" label CreateContainer sets; empty for a container this
	// process never created.
	PluginKey string
	// ManifestID is derived from Name by stripping containerNamePrefix,
	// per the containerName = prefix + manifestId invariant (§3). It is
	// populated for every managed container, label or no label.
	ManifestID string
	Running    bool
}

// ListManagedContainers returns every container whose name carries the
// configured container name prefix, per §4.3 — this is a name-based filter
// rather than the managed label, so containers that predate this process
// (never created via CreateContainer, and so never labeled) are still
// found and can be adopted on reconcile.
func (d *Driver) ListManagedContainers(ctx context.Context) ([]ManagedContainer, error) {
	f := filters.NewArgs()
	f.Add("name", "^/?"+d.containerNamePrefix)

	containers, err := d.client.ContainerList(ctx, types.ContainerListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("list managed containers: %w", err)
	}

	out := make([]ManagedContainer, 0, len(containers))
	for _, c := range containers {
		name := strings.TrimPrefix(firstOrEmpty(c.Names), "/")
		out = append(out, ManagedContainer{
			ID:         c.ID,
			Name:       name,
			PluginKey:  c.Labels["plugin-key"],
			ManifestID: strings.TrimPrefix(name, d.containerNamePrefix),
			Running:    c.State == "running",
		})
	}
	return out, nil
}

func firstOrEmpty(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
