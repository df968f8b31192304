package container

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVolumeName(t *testing.T) {
	d := &Driver{volumePrefix: "plugin-vol-"}
	assert.Equal(t, "plugin-vol-sentiment-analyzer-1-data", d.VolumeName("sentiment-analyzer-1", "data"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abcdef012345", shortID("abcdef012345678901234567890"))
	assert.Equal(t, "short", shortID("short"))
}

func TestFirstOrEmpty(t *testing.T) {
	assert.Equal(t, "/plugin-x", firstOrEmpty([]string{"/plugin-x", "/other"}))
	assert.Equal(t, "", firstOrEmpty(nil))
}

func TestHealthConfigFor_UsesManifestValues(t *testing.T) {
	cfg := healthConfigFor(CreateSpec{
		ContainerPort:         8080,
		HealthPath:            "/status",
		HealthIntervalSeconds: 10,
		HealthTimeoutSeconds:  2,
		HealthRetries:         5,
	})

	assert.Equal(t, []string{"CMD", "curl", "-f", "http://localhost:8080/status"}, cfg.Test)
	assert.Equal(t, 10*time.Second, cfg.Interval)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retries)
}

func TestHealthConfigFor_DefaultsWhenUnset(t *testing.T) {
	cfg := healthConfigFor(CreateSpec{ContainerPort: 8080, HealthPath: "/health"})

	assert.Equal(t, time.Duration(defaultHealthIntervalSeconds)*time.Second, cfg.Interval)
	assert.Equal(t, time.Duration(defaultHealthTimeoutSeconds)*time.Second, cfg.Timeout)
	assert.Equal(t, defaultHealthRetries, cfg.Retries)
}
