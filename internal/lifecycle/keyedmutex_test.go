package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SecondTryLockFailsFast(t *testing.T) {
	k := newKeyedMutex()

	assert.True(t, k.TryLock("plugin-a"))
	assert.False(t, k.TryLock("plugin-a"))

	k.Unlock("plugin-a")
	assert.True(t, k.TryLock("plugin-a"))
}

func TestKeyedMutex_DifferentKeysDoNotContend(t *testing.T) {
	k := newKeyedMutex()

	assert.True(t, k.TryLock("plugin-a"))
	assert.True(t, k.TryLock("plugin-b"))

	k.Unlock("plugin-a")
	k.Unlock("plugin-b")
}
