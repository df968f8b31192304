package registry

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// MaxPackageBytes is the §4.8 package-inspection size cap (2 GiB).
const MaxPackageBytes = 2 * 1024 * 1024 * 1024

// PackageInspection is the result of opening an offline .pkg archive:
// a gzipped tar containing manifest.json at its root and an optional
// image.tar image bundle.
type PackageInspection struct {
	Manifest                  models.Manifest
	ImageByteSize             int64
	ImagePresent              bool
	AlreadyInstalledForManifestID bool
}

// alreadyInstalledCheck reports whether a manifest id is already
// installed; Inspect takes it as a function so callers can pass the
// lifecycle engine's lookup without this package importing lifecycle.
type alreadyInstalledCheck func(manifestID string) bool

// Inspect opens a package archive (tar+gzip), enforcing the 2 GiB cap,
// and locates manifest.json and an optional image.tar at its root.
func Inspect(r io.Reader, sizeHint int64, isInstalled alreadyInstalledCheck) (*PackageInspection, error) {
	if sizeHint > MaxPackageBytes {
		return nil, apperrors.PackageTooLarge()
	}

	limited := io.LimitReader(r, MaxPackageBytes+1)
	gzr, err := gzip.NewReader(limited)
	if err != nil {
		return nil, fmt.Errorf("open package archive: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	result := &PackageInspection{}
	var manifestFound bool
	var totalRead int64

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read package archive entry: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		totalRead += header.Size
		if totalRead > MaxPackageBytes {
			return nil, apperrors.PackageTooLarge()
		}

		switch header.Name {
		case "manifest.json":
			body, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read manifest.json from package: %w", err)
			}
			if err := json.Unmarshal(body, &result.Manifest); err != nil {
				return nil, apperrors.InvalidManifest(fmt.Sprintf("package manifest.json is invalid: %v", err))
			}
			manifestFound = true
		case "image.tar":
			result.ImagePresent = true
			result.ImageByteSize = header.Size
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return nil, fmt.Errorf("read image.tar from package: %w", err)
			}
		}
	}

	if !manifestFound {
		return nil, apperrors.InvalidManifest("package archive does not contain a manifest.json at its root")
	}

	if isInstalled != nil {
		result.AlreadyInstalledForManifestID = isInstalled(result.Manifest.ID)
	}

	return result, nil
}
