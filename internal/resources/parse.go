// Package resources parses the memory/CPU strings used in a plugin
// manifest's ResourceSpec, grounded in the docker-agent template resource
// parser but following the spec's own, stricter grammar (§4.3) rather than
// the agent's Gi/Mi/G/M Kubernetes-style suffixes.
package resources

import (
	"regexp"
	"strconv"
)

const (
	// DefaultMemoryBytes is the fallback when a memory string fails to parse.
	DefaultMemoryBytes int64 = 512 * 1024 * 1024
	// DefaultCPUNanos is the fallback when a CPU string fails to parse (1 core).
	DefaultCPUNanos int64 = 1_000_000_000
)

var memoryPattern = regexp.MustCompile(`^(\d+)([mg])$`)

// ParseMemory parses a manifest memory string ("512m", "1g") to bytes.
// m = MiB, g = GiB; anything else falls back to the 512 MiB default.
func ParseMemory(s string) int64 {
	m := memoryPattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultMemoryBytes
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return DefaultMemoryBytes
	}
	switch m[2] {
	case "m":
		return n * 1024 * 1024
	case "g":
		return n * 1024 * 1024 * 1024
	default:
		return DefaultMemoryBytes
	}
}

// ValidMemoryString reports whether s parses under the §4.3 grammar.
func ValidMemoryString(s string) bool {
	return memoryPattern.MatchString(s)
}

var cpuPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseCPU parses a manifest CPU string (decimal fractional cores, e.g.
// "0.5", "2") into nanocores. Invalid strings fall back to 1 core.
func ParseCPU(s string) int64 {
	if !cpuPattern.MatchString(s) {
		return DefaultCPUNanos
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return DefaultCPUNanos
	}
	return int64(f * 1_000_000_000)
}

// ValidCPUString reports whether s parses under the §4.3 grammar.
func ValidCPUString(s string) bool {
	if !cpuPattern.MatchString(s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}
