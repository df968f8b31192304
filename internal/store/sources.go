package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// UpsertSource inserts or replaces a configured marketplace source.
func (s *Store) UpsertSource(ctx context.Context, src models.SourceRegistration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plugin_sources (source_id, name, url, kind, enabled, priority, is_default, last_fetched_at, last_error)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (source_id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			kind = EXCLUDED.kind,
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority,
			is_default = EXCLUDED.is_default,
			last_fetched_at = EXCLUDED.last_fetched_at,
			last_error = EXCLUDED.last_error
	`, src.SourceID, src.Name, src.URL, src.Kind, src.Enabled, src.Priority, src.IsDefault,
		src.LastFetchedAt, nullableString(src.LastError))
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", src.SourceID, err)
	}
	return nil
}

// DeleteSource removes a configured source registration.
func (s *Store) DeleteSource(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plugin_sources WHERE source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("delete source %s: %w", sourceID, err)
	}
	return nil
}

// ListSources returns every configured source ordered by priority.
func (s *Store) ListSources(ctx context.Context) ([]models.SourceRegistration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, name, url, kind, enabled, priority, is_default, last_fetched_at, last_error
		FROM plugin_sources ORDER BY priority DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []models.SourceRegistration
	for rows.Next() {
		var src models.SourceRegistration
		var lastError sql.NullString
		if err := rows.Scan(&src.SourceID, &src.Name, &src.URL, &src.Kind, &src.Enabled,
			&src.Priority, &src.IsDefault, &src.LastFetchedAt, &lastError); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		src.LastError = lastError.String
		out = append(out, src)
	}
	return out, rows.Err()
}

// ReplaceCatalogEntries swaps one source's catalog entries inside a
// transaction, used after every successful fetch.
func (s *Store) ReplaceCatalogEntries(ctx context.Context, sourceID string, entries []models.CatalogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog replace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("clear catalog entries for %s: %w", sourceID, err)
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_entries (source_id, manifest_id, manifest, downloads, rating, verified, featured, published_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, sourceID, e.Manifest.ID, e.Manifest, e.Downloads, e.Rating, e.Verified, e.Featured, e.PublishedAt, e.UpdatedAt); err != nil {
			return fmt.Errorf("insert catalog entry %s/%s: %w", sourceID, e.Manifest.ID, err)
		}
	}

	return tx.Commit()
}

// ListCatalog returns aggregated catalog entries across all sources matching the filter.
func (s *Store) ListCatalog(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogEntry, error) {
	query := `SELECT source_id, manifest, downloads, rating, verified, featured, published_at, updated_at FROM catalog_entries WHERE 1=1`
	var args []interface{}
	argN := 1

	if filter.Verified != nil {
		query += fmt.Sprintf(" AND verified = $%d", argN)
		args = append(args, *filter.Verified)
		argN++
	}
	if filter.Featured != nil {
		query += fmt.Sprintf(" AND featured = $%d", argN)
		args = append(args, *filter.Featured)
		argN++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (manifest->>'name' ILIKE $%[1]d OR manifest->>'description' ILIKE $%[1]d OR manifest->>'tags' ILIKE $%[1]d)", argN)
		args = append(args, "%"+filter.Search+"%")
		argN++
	}
	query += " ORDER BY published_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var out []models.CatalogEntry
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.SourceID, &e.Manifest, &e.Downloads, &e.Rating, &e.Verified,
			&e.Featured, &e.PublishedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan catalog row: %w", err)
		}
		if filter.Category != "" && e.Manifest.Category != filter.Category {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CategoryCounts returns the distinct categories present in the aggregated catalog.
func (s *Store) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT manifest->>'category' AS category, COUNT(*)
		FROM catalog_entries
		WHERE manifest->>'category' IS NOT NULL
		GROUP BY category ORDER BY category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	defer rows.Close()

	var out []models.CategoryCount
	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}
