package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/config"
	"github.com/flowforge/plugin-orchestrator/internal/models"
	"github.com/flowforge/plugin-orchestrator/internal/platformservices"
	"github.com/flowforge/plugin-orchestrator/internal/ports"
)

func TestBuildEffectiveConfig_OverridesWinOverDefaults(t *testing.T) {
	manifest := models.Manifest{
		Config: models.ConfigContract{
			Defaults: map[string]interface{}{"threshold": 0.5, "mode": "fast"},
		},
	}

	out := buildEffectiveConfig(manifest, map[string]string{"mode": "accurate"})
	assert.Equal(t, "accurate", out["mode"])
	assert.Equal(t, "0.5", out["threshold"])
}

func TestResolveHostPort_FixedPortAlreadyInUse(t *testing.T) {
	e := &Engine{ports: ports.New(20000, 20010, []int{20005})}
	manifest := &models.Manifest{Network: models.NetworkSpec{HostPort: 20005}}

	_, err := e.resolveHostPort(manifest)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodePortInUse, apperrors.AsAppError(err).Code)
}

func TestResolveHostPort_FixedPortFree(t *testing.T) {
	e := &Engine{ports: ports.New(20000, 20010, nil)}
	manifest := &models.Manifest{Network: models.NetworkSpec{HostPort: 20005}}

	port, err := e.resolveHostPort(manifest)
	require.NoError(t, err)
	assert.Equal(t, 20005, port)
}

func TestResolveHostPort_AllocatesFromRangeWhenUnset(t *testing.T) {
	e := &Engine{ports: ports.New(20000, 20010, nil)}
	manifest := &models.Manifest{}

	port, err := e.resolveHostPort(manifest)
	require.NoError(t, err)
	assert.Equal(t, 20000, port)
}

func TestBuildEnv_OverrideOrder(t *testing.T) {
	cfg := &config.Config{CacheHost: "cache.internal", CachePort: "6379"}
	e := &Engine{platform: platformservices.New(cfg)}

	manifest := models.Manifest{
		Network: models.NetworkSpec{ContainerPort: 8080},
		Dependencies: models.Dependencies{
			PlatformServices: []string{models.PlatformServiceCache},
		},
		Environment: []models.EnvVar{
			{Name: "CACHE_HOST", Default: "manifest-default-host"},
			{Name: "LOG_LEVEL", Default: "info"},
		},
	}

	env := e.buildEnv(manifest, 20001, map[string]string{"CACHE_HOST": "user-override-host"})

	assert.Equal(t, "user-override-host", env["CACHE_HOST"], "user override must win over manifest default and platform value")
	assert.Equal(t, "info", env["LOG_LEVEL"])
	assert.Equal(t, "8080", env["CONTAINER_PORT"])
}

func TestContainerEnvSlice(t *testing.T) {
	env := models.StringMap{"A": "1"}
	slice := containerEnvSlice(env)
	require.Len(t, slice, 1)
	assert.Equal(t, "A=1", slice[0])
}
