package store

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// pqStringArray adapts a plain []string for use as a Postgres text[] bind
// argument (ANY($n) queries), via lib/pq's array helper.
func pqStringArray(values []string) interface{} {
	return pq.Array(values)
}

func marshalPayload(payload map[string]interface{}) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(payload)
}

// nullManifest adapts a *models.Manifest for a nullable JSONB column: the
// previous_manifest column is absent until a plugin has gone through its
// first update.
type nullManifest struct {
	Manifest *models.Manifest
}

func (n nullManifest) Value() (driver.Value, error) {
	if n.Manifest == nil {
		return nil, nil
	}
	return n.Manifest.Value()
}

func (n *nullManifest) Scan(src interface{}) error {
	if src == nil {
		n.Manifest = nil
		return nil
	}
	var m models.Manifest
	if err := m.Scan(src); err != nil {
		return err
	}
	n.Manifest = &m
	return nil
}
