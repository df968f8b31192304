package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// seedDocument is the on-disk shape of the default registry entries file
// (config.DefaultRegistryPath).
type seedDocument struct {
	Sources []models.SourceRegistration `json:"sources"`
}

// LoadSeed reads the default source list from path. A missing file is not
// an error: a fresh install with no seed configured starts with zero
// sources and relies on the sources API to add them.
func LoadSeed(path string) ([]models.SourceRegistration, error) {
	body, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed registry file %s: %w", path, err)
	}

	var doc seedDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse seed registry file %s: %w", path, err)
	}
	for i := range doc.Sources {
		doc.Sources[i].IsDefault = true
		if doc.Sources[i].Priority == 0 {
			doc.Sources[i].Priority = 100
		}
	}
	return doc.Sources, nil
}
