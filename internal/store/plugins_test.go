package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

func setupStoreTest(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	s := NewForTesting(mockDB)
	cleanup := func() { mockDB.Close() }
	return s, mock, cleanup
}

func samplePlugin() *models.PluginInstance {
	return &models.PluginInstance{
		PluginKey:         "sentiment-analyzer-1",
		ManifestID:        "sentiment-analyzer",
		Manifest:          models.Manifest{ID: "sentiment-analyzer", Version: "1.0.0"},
		Status:            models.StatusInstalled,
		ContainerName:     "plugin-sentiment-analyzer-1",
		AllocatedHostPort: 20001,
		EffectiveConfig:   models.StringMap{},
		EffectiveEnv:      models.StringMap{},
		InstalledAt:       time.Now(),
		HealthState:       models.HealthUnknown,
	}
}

func TestUpsertPlugin(t *testing.T) {
	s, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO plugins").WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpsertPlugin(context.Background(), samplePlugin())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPlugin_Found(t *testing.T) {
	s, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"plugin_key", "manifest_id", "manifest", "previous_manifest", "status", "container_handle", "container_name",
		"allocated_host_port", "effective_config", "effective_env", "installed_at", "started_at",
		"stopped_at", "last_probe_at", "health_state", "last_error",
	}).AddRow(
		"sentiment-analyzer-1", "sentiment-analyzer", `{"id":"sentiment-analyzer","version":"1.0.0"}`, nil,
		"installed", "", "plugin-sentiment-analyzer-1", 20001, `{}`, `{}`, now, nil, nil, nil, "unknown", nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM plugins WHERE plugin_key = \\$1").
		WithArgs("sentiment-analyzer-1").
		WillReturnRows(rows)

	p, err := s.GetPlugin(context.Background(), "sentiment-analyzer-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.StatusInstalled, p.Status)
	assert.Equal(t, 20001, p.AllocatedHostPort)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPlugin_NotFound(t *testing.T) {
	s, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM plugins WHERE plugin_key = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"plugin_key", "manifest_id", "manifest", "previous_manifest", "status", "container_handle", "container_name",
			"allocated_host_port", "effective_config", "effective_env", "installed_at", "started_at",
			"stopped_at", "last_probe_at", "health_state", "last_error",
		}))

	p, err := s.GetPlugin(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetUsedHostPorts(t *testing.T) {
	s, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectQuery("SELECT allocated_host_port FROM plugins").
		WillReturnRows(sqlmock.NewRows([]string{"allocated_host_port"}).AddRow(20001).AddRow(20002))

	ports, err := s.GetUsedHostPorts(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{20001, 20002}, ports)
}

func TestAppendEvent(t *testing.T) {
	s, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO plugin_events").WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.AppendEvent(context.Background(), models.LifecycleEvent{
		PluginKey: "sentiment-analyzer-1",
		Kind:      "plugin:installed",
		Timestamp: time.Now(),
		Payload:   map[string]interface{}{"manifestId": "sentiment-analyzer"},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatchStatus(t *testing.T) {
	s, mock, cleanup := setupStoreTest(t)
	defer cleanup()

	mock.ExpectExec("UPDATE plugins SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PatchStatus(context.Background(), "sentiment-analyzer-1", models.StatusRunning, models.HealthHealthy, "")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
