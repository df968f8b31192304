package models

import "time"

// Status is the closed set of lifecycle states (§4.4.8).
type Status string

const (
	StatusInstalling   Status = "installing"
	StatusInstalled    Status = "installed"
	StatusStarting     Status = "starting"
	StatusRunning      Status = "running"
	StatusStopping     Status = "stopping"
	StatusStopped      Status = "stopped"
	StatusError        Status = "error"
	StatusUninstalling Status = "uninstalling"
)

// Terminated reports whether the status represents an instance that is no
// longer a candidate for lifecycle operations other than reinstall.
func (s Status) Terminated() bool {
	return s == StatusUninstalling
}

// HealthState is the plugin's most recently observed health.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
	HealthUnknown   HealthState = "unknown"
)

// PluginInstance is the installed occurrence of a Manifest.
type PluginInstance struct {
	PluginKey         string      `json:"pluginKey"`
	ManifestID        string      `json:"manifestId"`
	Manifest          Manifest    `json:"manifest"`
	PreviousManifest  *Manifest   `json:"previousManifest,omitempty"`
	Status            Status      `json:"status"`
	ContainerHandle   string      `json:"containerHandle,omitempty"`
	ContainerName     string      `json:"containerName"`
	AllocatedHostPort int         `json:"allocatedHostPort"`
	EffectiveConfig   StringMap   `json:"effectiveConfig,omitempty"`
	EffectiveEnv      StringMap   `json:"effectiveEnv,omitempty"`
	InstalledAt       time.Time   `json:"installedAt"`
	StartedAt         *time.Time  `json:"startedAt,omitempty"`
	StoppedAt         *time.Time  `json:"stoppedAt,omitempty"`
	LastProbeAt       *time.Time  `json:"lastProbeAt,omitempty"`
	HealthState       HealthState `json:"healthState"`
	LastError         string      `json:"lastError,omitempty"`
}

// PluginSummary is the trimmed shape returned from list endpoints.
type PluginSummary struct {
	PluginKey         string      `json:"pluginKey"`
	ManifestID        string      `json:"manifestId"`
	Name              string      `json:"name"`
	Version           string      `json:"version"`
	Category          string      `json:"category,omitempty"`
	Status            Status      `json:"status"`
	AllocatedHostPort int         `json:"allocatedHostPort"`
	HealthState       HealthState `json:"healthState"`
	InstalledAt       time.Time   `json:"installedAt"`
}

// Summary projects a PluginInstance to its list-view shape.
func (p *PluginInstance) Summary() PluginSummary {
	return PluginSummary{
		PluginKey:         p.PluginKey,
		ManifestID:        p.ManifestID,
		Name:              p.Manifest.Name,
		Version:           p.Manifest.Version,
		Category:          p.Manifest.Category,
		Status:            p.Status,
		AllocatedHostPort: p.AllocatedHostPort,
		HealthState:       p.HealthState,
		InstalledAt:       p.InstalledAt,
	}
}

// PluginFilter narrows a listPlugins query.
type PluginFilter struct {
	Status      Status
	ManifestIDs []string
}

// LifecycleEvent is one append-only transition record.
type LifecycleEvent struct {
	ID        int64                  `json:"id,omitempty"`
	PluginKey string                 `json:"pluginKey"`
	Kind      string                 `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// UpdateAction is the closed set of UpdateHistoryEntry actions.
type UpdateAction string

const (
	UpdateActionInstall  UpdateAction = "install"
	UpdateActionUpdate   UpdateAction = "update"
	UpdateActionRollback UpdateAction = "rollback"
)

// UpdateHistoryEntry records one manifest transition for a plugin.
type UpdateHistoryEntry struct {
	ID          int64        `json:"id,omitempty"`
	PluginKey   string       `json:"pluginKey"`
	FromVersion string       `json:"fromVersion,omitempty"`
	ToVersion   string       `json:"toVersion"`
	Action      UpdateAction `json:"action"`
	Actor       string       `json:"actor,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// UpdateHistoryRetention is the number of most-recent entries kept per plugin (§9).
const UpdateHistoryRetention = 4
