package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "plugin-", cfg.ContainerNamePrefix)
	assert.Equal(t, 20000, cfg.PortRangeStart)
	assert.Equal(t, 21000, cfg.PortRangeEnd)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PORT_RANGE_START", "30000")
	t.Setenv("PORT_RANGE_END", "30100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30000, cfg.PortRangeStart)
	assert.Equal(t, 30100, cfg.PortRangeEnd)
}

func TestLoad_RejectsInvertedPortRange(t *testing.T) {
	t.Setenv("PORT_RANGE_START", "30100")
	t.Setenv("PORT_RANGE_END", "30000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsZeroPortRange(t *testing.T) {
	t.Setenv("PORT_RANGE_START", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetEnvInt_FallsBackOnUnparseableValue(t *testing.T) {
	t.Setenv("PORT_RANGE_START", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20000, cfg.PortRangeStart)
}
