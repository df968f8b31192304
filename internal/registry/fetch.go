// Package registry implements the Marketplace Aggregation Engine (§4.8):
// periodic fetch-and-merge of remote plugin catalogs from a configurable
// set of sources, plus offline package inspection. Grounded on the
// teacher's PluginMarketplace (raw-GitHub-content fetch, in-memory
// catalog cache, SyncCatalog-on-a-timer shape), generalized to a
// polymorphic http-index/source-hosting fetcher set and moved onto a
// real cron schedule instead of a TTL check on every call.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flowforge/plugin-orchestrator/internal/manifestfetch"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

const fetchTimeout = 30 * time.Second

var httpClient = &http.Client{Timeout: fetchTimeout}

// fetchSource dispatches to the fetcher for src.Kind and returns the
// catalog entries it produced.
func fetchSource(ctx context.Context, src models.SourceRegistration) ([]models.CatalogEntry, error) {
	switch src.Kind {
	case models.SourceKindHTTPIndex:
		return fetchHTTPIndex(ctx, src)
	case models.SourceKindSourceHosting:
		return fetchSourceHosting(ctx, src)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// fetchHTTPIndex retrieves a single JSON document listing many plugins.
// Unknown fields are ignored by json.Unmarshal; malformed entries (those
// missing a manifest id) are dropped with a per-entry warning rather than
// failing the whole fetch.
func fetchHTTPIndex(ctx context.Context, src models.SourceRegistration) ([]models.CatalogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch index from %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch index from %s: status %d", src.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read index body from %s: %w", src.URL, err)
	}

	var doc models.HTTPIndexDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse index document from %s: %w", src.URL, err)
	}

	now := time.Now()
	out := make([]models.CatalogEntry, 0, len(doc.Plugins))
	for i, entry := range doc.Plugins {
		if entry.Manifest.ID == "" {
			log.Warn().Str("sourceId", src.SourceID).Int("index", i).Msg("dropping malformed catalog entry: missing manifest id")
			continue
		}
		entry.SourceID = src.SourceID
		if entry.UpdatedAt.IsZero() {
			entry.UpdatedAt = now
		}
		out = append(out, entry)
	}
	return out, nil
}

// fetchSourceHosting resolves a source-hosting URL to its repository
// root and fetches a single manifest.json at the default branch,
// producing a one-entry catalog, grounded on the teacher's
// raw.githubusercontent.com/{repo}/main/{file} URL convention.
func fetchSourceHosting(ctx context.Context, src models.SourceRegistration) ([]models.CatalogEntry, error) {
	manifestURL := strings.TrimSuffix(src.URL, "/") + "/main/manifest.json"
	manifest, err := manifestfetch.Fetch(ctx, manifestURL)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest for source-hosting source %s: %w", src.SourceID, err)
	}

	return []models.CatalogEntry{{
		SourceID:    src.SourceID,
		Manifest:    *manifest,
		UpdatedAt:   time.Now(),
		PublishedAt: time.Now(),
	}}, nil
}
