// Package validator applies Manifest Validation (§4.9) on install, update,
// adoption, and catalog ingestion.
//
// Struct-level constraints that go-playground/validator can express (required
// fields, numeric ranges) are declared as tags on models.Manifest; rules that
// need custom logic (slug grammar, semver, per-manifest endpoint uniqueness,
// env var naming, absolute paths, resource-string grammar) are hand-written
// here, following the teacher's internal/validator package shape of wrapping
// go-playground/validator behind a small first-class API.
package validator

import (
	"fmt"
	"regexp"

	playground "github.com/go-playground/validator/v10"

	"github.com/flowforge/plugin-orchestrator/internal/models"
	"github.com/flowforge/plugin-orchestrator/internal/resources"
)

var structValidate = playground.New()

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
var envNamePattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// semverPattern is intentionally permissive: major.minor.patch with optional
// pre-release/build metadata, matching what real manifests in the wild use.
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z-.]+)?(\+[0-9A-Za-z-.]+)?$`)

// FieldProblem is one failed validation rule, per the InvalidManifest error shape.
type FieldProblem struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
}

// ValidationError aggregates every FieldProblem found for one manifest.
type ValidationError struct {
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed with %d problem(s)", len(e.Problems))
}

// ValidateManifest runs every §4.9 rule and returns nil if the manifest is valid.
func ValidateManifest(m *models.Manifest) *ValidationError {
	var problems []FieldProblem
	add := func(field, problem string) {
		problems = append(problems, FieldProblem{Field: field, Problem: problem})
	}

	if err := structValidate.Struct(m); err != nil {
		if verrs, ok := err.(playground.ValidationErrors); ok {
			for _, fe := range verrs {
				add(fe.Namespace(), fmt.Sprintf("failed rule %q", fe.Tag()))
			}
		} else {
			add("manifest", err.Error())
		}
	}

	if m.ID != "" {
		if len(m.ID) > 64 || !slugPattern.MatchString(m.ID) {
			add("id", "must be a slug of [a-z0-9][a-z0-9-]* with length 1-64")
		}
	}

	if m.Version != "" && !semverPattern.MatchString(m.Version) {
		add("version", "must be a valid semver string")
	}

	if m.Network.ContainerPort < 1 || m.Network.ContainerPort > 65535 {
		add("network.containerPort", "must be in range 1..65535")
	}
	if m.Network.HostPort != 0 && (m.Network.HostPort < 1 || m.Network.HostPort > 65535) {
		add("network.hostPort", "must be in range 1..65535")
	}

	if m.Category != "" && !models.ValidCategories[m.Category] {
		add("category", "must belong to the closed category set")
	}

	seenEndpoints := make(map[string]bool, len(m.Endpoints))
	for i, ep := range m.Endpoints {
		key := ep.Method + " " + ep.Path
		if seenEndpoints[key] {
			add(fmt.Sprintf("endpoints[%d]", i), "duplicate (method, path) pair")
		}
		seenEndpoints[key] = true
	}

	for i, ev := range m.Environment {
		if !envNamePattern.MatchString(ev.Name) {
			add(fmt.Sprintf("environment[%d].name", i), "must match [A-Z_][A-Z0-9_]*")
		}
	}

	for i, v := range m.Volumes {
		if len(v.ContainerPath) == 0 || v.ContainerPath[0] != '/' {
			add(fmt.Sprintf("volumes[%d].containerPath", i), "must be an absolute path")
		}
	}

	if m.Resources.Memory != "" && !resources.ValidMemoryString(m.Resources.Memory) {
		add("resources.memory", `must match \d+[mg]`)
	}
	if m.Resources.CPU != "" && !resources.ValidCPUString(m.Resources.CPU) {
		add("resources.cpu", "must be a positive decimal number of cores")
	}

	for _, svc := range m.Dependencies.PlatformServices {
		switch svc {
		case models.PlatformServiceCache, models.PlatformServiceRelational, models.PlatformServiceVector:
		default:
			add("dependencies.platformServices", fmt.Sprintf("unknown platform service %q", svc))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
