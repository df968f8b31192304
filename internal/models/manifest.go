// Package models holds the orchestrator's data model: the immutable
// plugin Manifest, the mutable PluginInstance record, and the supporting
// append-only/registry types.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Closed category taxonomy (§3).
const (
	CategorySecurity      = "security"
	CategoryAI            = "ai"
	CategoryData          = "data"
	CategoryMedia         = "media"
	CategoryIntegration   = "integration"
	CategoryUtility       = "utility"
	CategoryAnalytics     = "analytics"
	CategoryCommunication = "communication"
)

// ValidCategories enumerates the closed category set.
var ValidCategories = map[string]bool{
	CategorySecurity:      true,
	CategoryAI:            true,
	CategoryData:          true,
	CategoryMedia:         true,
	CategoryIntegration:   true,
	CategoryUtility:       true,
	CategoryAnalytics:     true,
	CategoryCommunication: true,
}

// Closed platform-service dependency taxonomy (§3).
const (
	PlatformServiceCache      = "cache"
	PlatformServiceRelational = "relational"
	PlatformServiceVector     = "vector"
)

// ImageRef identifies the container image for a plugin version.
type ImageRef struct {
	Repository string `json:"repository" validate:"required"`
	Tag        string `json:"tag"`
	Digest     string `json:"digest,omitempty"`
}

// NetworkSpec describes how the plugin is exposed.
type NetworkSpec struct {
	ContainerPort int    `json:"containerPort" validate:"required,min=1,max=65535"`
	HostPort      int    `json:"hostPort,omitempty" validate:"omitempty,min=1,max=65535"`
	BasePath      string `json:"basePath,omitempty"`
}

// HealthProbe describes the plugin's HTTP health endpoint.
type HealthProbe struct {
	Path            string `json:"path,omitempty"`
	IntervalSeconds int    `json:"intervalSeconds,omitempty"`
	TimeoutSeconds  int    `json:"timeoutSeconds,omitempty"`
	Retries         int    `json:"retries,omitempty"`
}

// Endpoint is one informational route the plugin serves.
type Endpoint struct {
	Method      string `json:"method" validate:"required"`
	Path        string `json:"path" validate:"required"`
	Description string `json:"description,omitempty"`
	RateLimit   int    `json:"rateLimit,omitempty"`
}

// ConfigContract is a JSON schema plus defaults for the plugin's config surface.
type ConfigContract struct {
	Schema   json.RawMessage        `json:"schema,omitempty"`
	Defaults map[string]interface{} `json:"defaults,omitempty"`
}

// EnvVar declares one environment variable the plugin expects.
type EnvVar struct {
	Name     string `json:"name" validate:"required"`
	Required bool   `json:"required,omitempty"`
	Secret   bool   `json:"secret,omitempty"`
	Default  string `json:"default,omitempty"`
}

// VolumeSpec declares one named volume mount.
type VolumeSpec struct {
	LogicalName   string `json:"logicalName" validate:"required"`
	ContainerPath string `json:"containerPath" validate:"required"`
	ReadOnly      bool   `json:"readOnly,omitempty"`
}

// ResourceSpec caps the container's resource usage.
type ResourceSpec struct {
	Memory string  `json:"memory,omitempty"`
	CPU    string  `json:"cpu,omitempty"`
	GPU    string  `json:"gpu,omitempty"`
}

// PluginDependency references another installed plugin.
type PluginDependency struct {
	PluginID string `json:"pluginId"`
	Optional bool   `json:"optional,omitempty"`
}

// Dependencies is the manifest's full dependency declaration.
type Dependencies struct {
	Plugins          []PluginDependency `json:"plugins,omitempty"`
	PlatformServices []string           `json:"platformServices,omitempty"`
}

// Manifest is the immutable descriptor of one plugin version.
type Manifest struct {
	ID          string         `json:"id" validate:"required"`
	Name        string         `json:"name,omitempty"`
	Version     string         `json:"version" validate:"required"`
	Description string         `json:"description,omitempty"`
	Author      string         `json:"author,omitempty"`
	License     string         `json:"license,omitempty"`
	IconRef     string         `json:"iconRef,omitempty"`
	Category    string         `json:"category,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Image       ImageRef       `json:"image"`
	Network     NetworkSpec    `json:"network"`
	Health      HealthProbe    `json:"health"`
	Endpoints   []Endpoint     `json:"endpoints,omitempty"`
	Config      ConfigContract `json:"config"`
	Environment []EnvVar       `json:"environment,omitempty"`
	Volumes     []VolumeSpec   `json:"volumes,omitempty"`
	Resources   ResourceSpec   `json:"resources"`
	Dependencies Dependencies  `json:"dependencies"`
}

// EffectiveTag returns the image tag to pull, defaulting to "latest".
func (m Manifest) EffectiveTag() string {
	if m.Image.Tag == "" {
		return "latest"
	}
	return m.Image.Tag
}

// EffectiveBasePath returns the gateway path the plugin is published under.
func (m Manifest) EffectiveBasePath() string {
	if m.Network.BasePath != "" {
		return m.Network.BasePath
	}
	return "/api/v1/" + m.ID
}

// EffectiveHealthPath defaults the probe path to "/health".
func (m Manifest) EffectiveHealthPath() string {
	if m.Health.Path != "" {
		return m.Health.Path
	}
	return "/health"
}

// Value implements driver.Valuer so Manifest can be stored as JSONB.
func (m Manifest) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading a JSONB manifest column back.
func (m *Manifest) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for Manifest: %T", src)
	}
	return json.Unmarshal(raw, m)
}

// StringMap is a map[string]string that round-trips through JSONB columns.
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(src interface{}) error {
	if src == nil {
		*m = StringMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for StringMap: %T", src)
	}
	if len(raw) == 0 {
		*m = StringMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}
