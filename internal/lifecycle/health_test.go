package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/plugin-orchestrator/internal/container"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

func TestTranslateHealth_DockerHealthcheckWins(t *testing.T) {
	assert.Equal(t, models.HealthHealthy, translateHealth(&container.InspectResult{Health: "healthy", Running: true}))
	assert.Equal(t, models.HealthUnhealthy, translateHealth(&container.InspectResult{Health: "unhealthy", Running: true}))
	assert.Equal(t, models.HealthUnknown, translateHealth(&container.InspectResult{Health: "starting", Running: true}))
}

func TestTranslateHealth_FallsBackToRunningState(t *testing.T) {
	assert.Equal(t, models.HealthHealthy, translateHealth(&container.InspectResult{Running: true}))
	assert.Equal(t, models.HealthUnhealthy, translateHealth(&container.InspectResult{Running: false}))
}

func TestHealthLoop_StartStopBookkeeping(t *testing.T) {
	e := New(Deps{})

	e.startHealthLoop("plugin-a")
	e.healthMu.Lock()
	_, running := e.healthCancel["plugin-a"]
	e.healthMu.Unlock()
	assert.True(t, running)

	// calling start again for the same key must not replace the existing observer
	e.startHealthLoop("plugin-a")
	e.healthMu.Lock()
	assert.Len(t, e.healthCancel, 1)
	e.healthMu.Unlock()

	e.stopHealthLoop("plugin-a")
	// stopHealthLoop removes the map entry itself; the loop goroutine's own
	// deferred cleanup also runs once it observes the cancel.
	assert.Eventually(t, func() bool {
		e.healthMu.Lock()
		defer e.healthMu.Unlock()
		_, ok := e.healthCancel["plugin-a"]
		return !ok
	}, time.Second, 10*time.Millisecond)
}
