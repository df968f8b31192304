package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// RecordUpdate appends one update-history entry and trims the plugin's
// history down to UpdateHistoryRetention rows, per the §9 retention decision.
func (s *Store) RecordUpdate(ctx context.Context, entry models.UpdateHistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update-history tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO plugin_updates (plugin_key, from_version, to_version, action, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.PluginKey, nullableString(entry.FromVersion), entry.ToVersion, string(entry.Action),
		nullableString(entry.Actor), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert update-history entry for %s: %w", entry.PluginKey, err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM plugin_updates
		WHERE plugin_key = $1 AND id NOT IN (
			SELECT id FROM plugin_updates WHERE plugin_key = $1 ORDER BY created_at DESC LIMIT $2
		)
	`, entry.PluginKey, models.UpdateHistoryRetention)
	if err != nil {
		return fmt.Errorf("trim update-history for %s: %w", entry.PluginKey, err)
	}

	return tx.Commit()
}

// ListHistory returns a plugin's most recent update-history entries, newest first.
func (s *Store) ListHistory(ctx context.Context, pluginKey string) ([]models.UpdateHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, plugin_key, from_version, to_version, action, actor, created_at
		FROM plugin_updates WHERE plugin_key = $1 ORDER BY created_at DESC LIMIT $2
	`, pluginKey, models.UpdateHistoryRetention)
	if err != nil {
		return nil, fmt.Errorf("list update history for %s: %w", pluginKey, err)
	}
	defer rows.Close()

	var out []models.UpdateHistoryEntry
	for rows.Next() {
		var e models.UpdateHistoryEntry
		var fromVersion, actor sql.NullString
		if err := rows.Scan(&e.ID, &e.PluginKey, &fromVersion, &e.ToVersion, &e.Action, &actor, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan update history row: %w", err)
		}
		e.FromVersion = fromVersion.String
		e.Actor = actor.String
		out = append(out, e)
	}
	return out, rows.Err()
}
