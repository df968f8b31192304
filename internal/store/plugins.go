package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// UpsertPlugin inserts a new plugin instance or replaces an existing row with
// the same plugin key, used on install and on every lifecycle transition.
func (s *Store) UpsertPlugin(ctx context.Context, p *models.PluginInstance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plugins (
			plugin_key, manifest_id, manifest, previous_manifest, status, container_handle, container_name,
			allocated_host_port, effective_config, effective_env, installed_at, started_at,
			stopped_at, last_probe_at, health_state, last_error
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (plugin_key) DO UPDATE SET
			manifest_id = EXCLUDED.manifest_id,
			manifest = EXCLUDED.manifest,
			previous_manifest = EXCLUDED.previous_manifest,
			status = EXCLUDED.status,
			container_handle = EXCLUDED.container_handle,
			container_name = EXCLUDED.container_name,
			allocated_host_port = EXCLUDED.allocated_host_port,
			effective_config = EXCLUDED.effective_config,
			effective_env = EXCLUDED.effective_env,
			started_at = EXCLUDED.started_at,
			stopped_at = EXCLUDED.stopped_at,
			last_probe_at = EXCLUDED.last_probe_at,
			health_state = EXCLUDED.health_state,
			last_error = EXCLUDED.last_error
	`,
		p.PluginKey, p.ManifestID, p.Manifest, nullManifest{p.PreviousManifest}, string(p.Status), p.ContainerHandle, p.ContainerName,
		p.AllocatedHostPort, p.EffectiveConfig, p.EffectiveEnv, p.InstalledAt, p.StartedAt,
		p.StoppedAt, p.LastProbeAt, string(p.HealthState), nullableString(p.LastError),
	)
	if err != nil {
		return fmt.Errorf("upsert plugin %s: %w", p.PluginKey, err)
	}
	return nil
}

// PatchStatus updates only the status, health, and error fields of a plugin
// row, used by the health monitor after each probe.
func (s *Store) PatchStatus(ctx context.Context, pluginKey string, status models.Status, health models.HealthState, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE plugins SET status = $2, health_state = $3, last_error = $4, last_probe_at = NOW()
		WHERE plugin_key = $1
	`, pluginKey, string(status), string(health), nullableString(lastError))
	if err != nil {
		return fmt.Errorf("patch plugin status %s: %w", pluginKey, err)
	}
	return nil
}

// GetPlugin fetches one plugin instance by its key.
func (s *Store) GetPlugin(ctx context.Context, pluginKey string) (*models.PluginInstance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT plugin_key, manifest_id, manifest, previous_manifest, status, container_handle, container_name,
			allocated_host_port, effective_config, effective_env, installed_at, started_at,
			stopped_at, last_probe_at, health_state, last_error
		FROM plugins WHERE plugin_key = $1
	`, pluginKey)
	p, err := scanPlugin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plugin %s: %w", pluginKey, err)
	}
	return p, nil
}

// ListPlugins returns every plugin matching the filter, newest installation first.
func (s *Store) ListPlugins(ctx context.Context, filter models.PluginFilter) ([]*models.PluginInstance, error) {
	query := `
		SELECT plugin_key, manifest_id, manifest, previous_manifest, status, container_handle, container_name,
			allocated_host_port, effective_config, effective_env, installed_at, started_at,
			stopped_at, last_probe_at, health_state, last_error
		FROM plugins WHERE 1=1
	`
	var args []interface{}
	argN := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, string(filter.Status))
		argN++
	}
	if len(filter.ManifestIDs) > 0 {
		query += fmt.Sprintf(" AND manifest_id = ANY($%d)", argN)
		args = append(args, pqStringArray(filter.ManifestIDs))
		argN++
	}
	query += " ORDER BY installed_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	defer rows.Close()

	var out []*models.PluginInstance
	for rows.Next() {
		p, err := scanPlugin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plugin row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePlugin removes a plugin row, used once uninstall has fully completed.
func (s *Store) DeletePlugin(ctx context.Context, pluginKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plugins WHERE plugin_key = $1`, pluginKey)
	if err != nil {
		return fmt.Errorf("delete plugin %s: %w", pluginKey, err)
	}
	return nil
}

// GetUsedHostPorts returns every host port currently allocated to a plugin,
// used by the port allocator to seed its in-memory set at startup.
func (s *Store) GetUsedHostPorts(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT allocated_host_port FROM plugins WHERE allocated_host_port > 0`)
	if err != nil {
		return nil, fmt.Errorf("list used host ports: %w", err)
	}
	defer rows.Close()

	var ports []int
	for rows.Next() {
		var port int
		if err := rows.Scan(&port); err != nil {
			return nil, fmt.Errorf("scan host port: %w", err)
		}
		ports = append(ports, port)
	}
	return ports, rows.Err()
}

// AppendEvent records one lifecycle transition in the append-only log.
func (s *Store) AppendEvent(ctx context.Context, ev models.LifecycleEvent) error {
	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plugin_events (plugin_key, kind, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.PluginKey, ev.Kind, payload, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("append event for %s: %w", ev.PluginKey, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPlugin(row scanner) (*models.PluginInstance, error) {
	var p models.PluginInstance
	var status, health string
	var lastError sql.NullString
	var prev nullManifest
	err := row.Scan(
		&p.PluginKey, &p.ManifestID, &p.Manifest, &prev, &status, &p.ContainerHandle, &p.ContainerName,
		&p.AllocatedHostPort, &p.EffectiveConfig, &p.EffectiveEnv, &p.InstalledAt, &p.StartedAt,
		&p.StoppedAt, &p.LastProbeAt, &health, &lastError,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.Status(status)
	p.HealthState = models.HealthState(health)
	p.LastError = lastError.String
	p.PreviousManifest = prev.Manifest
	return &p, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
