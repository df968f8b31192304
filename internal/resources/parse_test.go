package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMemory(t *testing.T) {
	assert.Equal(t, int64(512*1024*1024), ParseMemory("512m"))
	assert.Equal(t, int64(2*1024*1024*1024), ParseMemory("2g"))
	assert.Equal(t, DefaultMemoryBytes, ParseMemory("not-a-size"))
	assert.Equal(t, DefaultMemoryBytes, ParseMemory("512Mi"))
}

func TestValidMemoryString(t *testing.T) {
	assert.True(t, ValidMemoryString("256m"))
	assert.True(t, ValidMemoryString("1g"))
	assert.False(t, ValidMemoryString("1gb"))
	assert.False(t, ValidMemoryString(""))
}

func TestParseCPU(t *testing.T) {
	assert.Equal(t, int64(500_000_000), ParseCPU("0.5"))
	assert.Equal(t, int64(2_000_000_000), ParseCPU("2"))
	assert.Equal(t, DefaultCPUNanos, ParseCPU("not-a-number"))
	assert.Equal(t, DefaultCPUNanos, ParseCPU("-1"))
	assert.Equal(t, DefaultCPUNanos, ParseCPU("0"))
}

func TestValidCPUString(t *testing.T) {
	assert.True(t, ValidCPUString("0.5"))
	assert.True(t, ValidCPUString("4"))
	assert.False(t, ValidCPUString("-1"))
	assert.False(t, ValidCPUString("0"))
	assert.False(t, ValidCPUString("abc"))
}
