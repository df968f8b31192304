// Package lifecycle is the orchestrator's central component: it drives
// every PluginInstance through the §4.4.8 state machine, serializes
// operations per plugin key, and coordinates the Persistent Store, Port
// Allocator, Container Driver, Gateway Publisher, and Event Bus on every
// transition. Grounded in the teacher's general "one struct holding every
// collaborator, explicit constructor, context-scoped calls" shape used
// throughout its db and handlers packages, generalized to a state machine
// the teacher itself does not have.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowforge/plugin-orchestrator/internal/apperrors"
	"github.com/flowforge/plugin-orchestrator/internal/config"
	"github.com/flowforge/plugin-orchestrator/internal/container"
	"github.com/flowforge/plugin-orchestrator/internal/events"
	"github.com/flowforge/plugin-orchestrator/internal/gateway"
	"github.com/flowforge/plugin-orchestrator/internal/logger"
	"github.com/flowforge/plugin-orchestrator/internal/models"
	"github.com/flowforge/plugin-orchestrator/internal/platformservices"
	"github.com/flowforge/plugin-orchestrator/internal/ports"
	"github.com/flowforge/plugin-orchestrator/internal/store"
)

var log = logger.Component("lifecycle")

// Engine is the lifecycle orchestration core. Every exported method is
// safe for concurrent use; per-pluginKey operations are mutually exclusive.
type Engine struct {
	store    *store.Store
	driver   *container.Driver
	ports    *ports.Allocator
	gateway  *gateway.Publisher
	bus      *events.Bus
	platform *platformservices.Resolver
	cfg      *config.Config

	locks *keyedMutex

	mu           sync.RWMutex
	byKey        map[string]*models.PluginInstance
	byManifestID map[string]string // manifestId -> pluginKey, non-terminated only

	healthMu     sync.Mutex
	healthCancel map[string]context.CancelFunc
}

// Deps bundles the Engine's collaborators for construction.
type Deps struct {
	Store    *store.Store
	Driver   *container.Driver
	Ports    *ports.Allocator
	Gateway  *gateway.Publisher
	Bus      *events.Bus
	Platform *platformservices.Resolver
	Config   *config.Config
}

// New creates an Engine with an empty in-memory index. Callers must run the
// Reconciler before serving API traffic to populate the index from the store.
func New(d Deps) *Engine {
	return &Engine{
		store:        d.Store,
		driver:       d.Driver,
		ports:        d.Ports,
		gateway:      d.Gateway,
		bus:          d.Bus,
		platform:     d.Platform,
		cfg:          d.Config,
		locks:        newKeyedMutex(),
		byKey:        make(map[string]*models.PluginInstance),
		byManifestID: make(map[string]string),
		healthCancel: make(map[string]context.CancelFunc),
	}
}

// ContainerName derives the stable container name for a manifest ID, per
// the invariant containerName = <prefix> + manifestId.
func (e *Engine) ContainerName(manifestID string) string {
	return e.cfg.ContainerNamePrefix + manifestID
}

// indexPut installs or replaces a plugin instance in the in-memory index.
// Callers must hold the plugin's keyed lock; indexPut takes its own
// internal mutex for the map itself.
func (e *Engine) indexPut(p *models.PluginInstance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byKey[p.PluginKey] = p
	if !p.Status.Terminated() {
		e.byManifestID[p.ManifestID] = p.PluginKey
	} else if e.byManifestID[p.ManifestID] == p.PluginKey {
		delete(e.byManifestID, p.ManifestID)
	}
}

// indexRemove deletes a plugin instance from the in-memory index entirely,
// used once uninstall completes.
func (e *Engine) indexRemove(pluginKey, manifestID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.byKey, pluginKey)
	if e.byManifestID[manifestID] == pluginKey {
		delete(e.byManifestID, manifestID)
	}
}

// Get returns the in-memory instance for pluginKey, or nil if absent.
func (e *Engine) Get(pluginKey string) *models.PluginInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.byKey[pluginKey]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// IsInstalled reports whether manifestID has an active (non-terminated)
// instance, used by the marketplace package-inspection endpoint.
func (e *Engine) IsInstalled(manifestID string) bool {
	return e.findByManifestID(manifestID) != nil
}

// findByManifestID returns the active (non-terminated) instance for a manifest ID.
func (e *Engine) findByManifestID(manifestID string) *models.PluginInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	key, ok := e.byManifestID[manifestID]
	if !ok {
		return nil
	}
	p := e.byKey[key]
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// List returns every in-memory instance matching filter, ordered by installedAt.
func (e *Engine) List(filter models.PluginFilter) []*models.PluginInstance {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*models.PluginInstance
	for _, p := range e.byKey {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if len(filter.ManifestIDs) > 0 && !containsString(filter.ManifestIDs, p.ManifestID) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sortByInstalledAt(out)
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func sortByInstalledAt(instances []*models.PluginInstance) {
	for i := 1; i < len(instances); i++ {
		for j := i; j > 0 && instances[j].InstalledAt.Before(instances[j-1].InstalledAt); j-- {
			instances[j], instances[j-1] = instances[j-1], instances[j]
		}
	}
}

// loadIndex is used by the Reconciler to seed the in-memory index directly.
func (e *Engine) loadIndex(instances []*models.PluginInstance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range instances {
		e.byKey[p.PluginKey] = p
		if !p.Status.Terminated() {
			e.byManifestID[p.ManifestID] = p.PluginKey
		}
	}
}

// persist mirrors a transition to the durable store and appends a
// lifecycle event row, logging but not failing the caller's operation on
// store error — per §7, store failures at runtime degrade to a warning.
func (e *Engine) persist(ctx context.Context, p *models.PluginInstance, eventKind events.Subject, payload map[string]interface{}) {
	if err := e.store.UpsertPlugin(ctx, p); err != nil {
		log.Error().Err(err).Str("pluginKey", p.PluginKey).Msg("failed to persist plugin instance")
	}
	if err := e.store.AppendEvent(ctx, models.LifecycleEvent{
		PluginKey: p.PluginKey,
		Kind:      string(eventKind),
		Timestamp: nowOrStamped(),
		Payload:   payload,
	}); err != nil {
		log.Error().Err(err).Str("pluginKey", p.PluginKey).Msg("failed to append lifecycle event")
	}
}

// emit publishes an event on the bus; it never blocks or fails the caller.
func (e *Engine) emit(subject events.Subject, p *models.PluginInstance, extra map[string]interface{}) {
	payload := map[string]interface{}{
		"manifestId": p.ManifestID,
		"status":     string(p.Status),
	}
	for k, v := range extra {
		payload[k] = v
	}
	e.bus.Publish(events.Event{Subject: subject, PluginKey: p.PluginKey, Payload: payload})
}

func newPluginKey() string {
	return uuid.New().String()
}

// nowOrStamped centralizes "now" so a future deterministic clock injection
// point exists in one place.
func nowOrStamped() time.Time {
	return time.Now()
}

func (e *Engine) errorOut(ctx context.Context, p *models.PluginInstance, appErr *apperrors.AppError) {
	p.Status = models.StatusError
	p.LastError = appErr.Message
	if appErr.Details != "" {
		p.LastError = appErr.Message + ": " + appErr.Details
	}
	e.indexPut(p)
	e.persist(ctx, p, events.SubjectError, map[string]interface{}{"code": appErr.Code, "message": p.LastError})
	e.emit(events.SubjectError, p, map[string]interface{}{"code": appErr.Code})
}
