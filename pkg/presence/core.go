package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Service identity, for registration with a process-wide service container.
const (
	ServiceName        = "presence-core"
	ServiceDescription = "tracks presentity state and fans presence changes out to subscribers"
)

// CoreConfig holds configuration for the presence Core.
type CoreConfig struct {
	// MirrorWriteTimeout bounds each background write to the state mirror.
	MirrorWriteTimeout time.Duration
}

// NewCoreDefaults provides a config with sensible defaults.
func NewCoreDefaults() *CoreConfig {
	return &CoreConfig{
		MirrorWriteTimeout: 2 * time.Second,
	}
}

// Core is the presence orchestrator. It owns the per-uri state cache and the
// three capability pools, multiplexes subscriber interest onto at most one
// underlying fetch per uri and fetcher, and re-emits fetcher updates to the
// registered listeners.
//
// A single mutex covers the cache and the pools. Fetchers may deliver
// updates from their own I/O goroutines, and the 0↔1 refcount transitions
// must stay atomic with the cache mutation for the one-fetch-per-uri
// guarantee to hold. Listener and capability callbacks are always invoked
// outside the lock, so they may call back into the Core.
type Core struct {
	mu         sync.Mutex
	cache      *stateCache
	fetchers   fetcherPool
	publishers publisherPool
	clusters   clusterSet
	mirror     StateMirror

	details       PersonalDetails
	detailsCancel func()

	presenceListeners CallbackList[func(uri, presence string)]
	noteListeners     CallbackList[func(uri, note string)]
	clusterAdded      CallbackList[func(Cluster)]
	clusterRemoved    CallbackList[func(Cluster)]

	questions HandlerChain

	mirrorTimeout time.Duration
	logger        zerolog.Logger
}

// NewCore creates the presence Core. A nil cfg selects the defaults. details
// may be nil, in which case nothing ever triggers publisher fan-out; when
// non-nil the Core subscribes to its updates and republishes each snapshot
// through the publisher pool until Close is called.
func NewCore(cfg *CoreConfig, details PersonalDetails, logger zerolog.Logger) *Core {
	if cfg == nil {
		cfg = NewCoreDefaults()
	}
	c := &Core{
		cache:         newStateCache(),
		details:       details,
		mirrorTimeout: cfg.MirrorWriteTimeout,
		logger:        logger.With().Str("component", "PresenceCore").Logger(),
	}
	if details != nil {
		c.detailsCancel = details.OnUpdated(c.publish)
	}
	return c
}

// Name returns the stable service name.
func (c *Core) Name() string { return ServiceName }

// Description returns a one-line description of the service.
func (c *Core) Description() string { return ServiceDescription }

// Close cancels the personal-details subscription. It does not touch the
// registered fetchers, publishers or clusters: their lifetime belongs to
// whoever registered them.
func (c *Core) Close() error {
	if c.detailsCancel != nil {
		c.detailsCancel()
		c.detailsCancel = nil
	}
	return nil
}

// SetMirror installs a write-behind mirror that receives a copy of the
// latest state after each fetcher update. Best-effort: mirror errors are
// logged and never affect the subscription path. A nil mirror disables
// mirroring.
func (c *Core) SetMirror(m StateMirror) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror = m
}

// Questions returns the chain used to route out-of-band questions, such as
// credential prompts raised by fetchers, to the application.
func (c *Core) Questions() *HandlerChain {
	return &c.questions
}

// --- Subscription multiplexing ---

// FetchPresence records interest in the uri. The underlying Fetch call is
// forwarded to the supporting fetchers only when this is the uri's first
// subscriber; later callers share the already-open subscription. A uri no
// registered fetcher supports is ignored: that is an expected condition
// while the matching protocol plugin is not loaded yet.
func (c *Core) FetchPresence(uri string) {
	c.mu.Lock()
	if !c.fetchers.supports(uri) {
		c.mu.Unlock()
		c.logger.Debug().Str("uri", uri).Msg("No fetcher supports uri, ignoring fetch request.")
		return
	}
	first := c.cache.touch(uri)
	var targets []Fetcher
	if first {
		targets = c.fetchers.supporting(uri)
	}
	c.mu.Unlock()

	for _, f := range targets {
		f.Fetch(uri)
	}
}

// UnfetchPresence drops one recorded interest in the uri and forwards the
// underlying Unfetch to the supporting fetchers once the last subscriber is
// gone. Calling it more often than FetchPresence is tolerated: the count is
// clamped at zero and the extra call logged as a caller bug.
func (c *Core) UnfetchPresence(uri string) {
	c.mu.Lock()
	last := c.cache.release(uri)
	var targets []Fetcher
	if last {
		targets = c.fetchers.supporting(uri)
	}
	c.mu.Unlock()

	if !last {
		return
	}
	if len(targets) == 0 {
		c.logger.Debug().Str("uri", uri).Msg("Last subscriber released uri but no fetcher supports it anymore.")
		return
	}
	for _, f := range targets {
		f.Unfetch(uri)
	}
}

// IsSupportedURI reports whether at least one registered fetcher can handle
// the uri.
func (c *Core) IsSupportedURI(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchers.supports(uri)
}

// Snapshot returns the latest known state for the uri, or the defaults
// ("unknown", "") if the uri has never been seen.
func (c *Core) Snapshot(uri string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.snapshot(uri)
}

// --- Fetcher pool ---

// AddPresenceFetcher registers a fetcher and wires its presence and note
// events into the Core. Adding the same fetcher twice is a no-op.
func (c *Core) AddPresenceFetcher(f Fetcher) {
	c.mu.Lock()
	known := c.fetchers.contains(f)
	c.mu.Unlock()
	if known {
		c.logger.Debug().Msg("Fetcher already registered, ignoring.")
		return
	}

	// Wire the event bridges outside the lock; OnPresence/OnNote are
	// capability calls and may deliver synchronously.
	cancels := []func(){
		f.OnPresence(c.onPresenceReceived),
		f.OnNote(c.onNoteReceived),
	}

	c.mu.Lock()
	added := c.fetchers.insert(f, cancels)
	c.mu.Unlock()
	if !added {
		// Lost a registration race for the same fetcher; drop our bridges.
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// RemovePresenceFetcher unregisters a fetcher and unwires its events, so
// subscriptions held through other fetchers keep flowing. Removing an
// unregistered fetcher is a no-op.
func (c *Core) RemovePresenceFetcher(f Fetcher) {
	c.mu.Lock()
	cancels := c.fetchers.remove(f)
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// --- Publisher pool ---

// AddPresencePublisher registers a destination for the local user's own
// presence. Adding the same publisher twice is a no-op.
func (c *Core) AddPresencePublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishers.add(p)
}

// RemovePresencePublisher unregisters a publisher; a no-op if absent.
func (c *Core) RemovePresencePublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishers.remove(p)
}

// publish fans the current personal-details snapshot out to every registered
// publisher. Each call is fire-and-forget per publisher: a failing publisher
// is its own concern, the Core neither retries nor rolls back the others.
func (c *Core) publish() {
	if c.details == nil {
		return
	}
	snapshot := c.details.Details()

	c.mu.Lock()
	targets := c.publishers.all()
	c.mu.Unlock()

	c.logger.Debug().Int("publisher_count", len(targets)).Msg("Publishing personal details snapshot.")
	for _, p := range targets {
		p.Publish(snapshot)
	}
}

// --- Cluster set ---

// AddCluster registers a cluster handle and notifies the cluster-added
// listeners. Re-adding a present cluster is a no-op and emits nothing.
func (c *Core) AddCluster(cl Cluster) {
	c.mu.Lock()
	added := c.clusters.add(cl)
	c.mu.Unlock()
	if !added {
		return
	}
	c.clusterAdded.Each(func(fn func(Cluster)) { fn(cl) })
}

// RemoveCluster removes a cluster handle and notifies the cluster-removed
// listeners. Removing an absent cluster is a no-op and emits nothing.
func (c *Core) RemoveCluster(cl Cluster) {
	c.mu.Lock()
	removed := c.clusters.remove(cl)
	c.mu.Unlock()
	if !removed {
		return
	}
	c.clusterRemoved.Each(func(fn func(Cluster)) { fn(cl) })
}

// VisitClusters invokes the visitor for each registered cluster. The set is
// snapshotted for the duration of the call; the visitor returns false to
// stop the traversal early.
func (c *Core) VisitClusters(visit ClusterVisitor) {
	c.mu.Lock()
	clusters := c.clusters.all()
	c.mu.Unlock()

	for _, cl := range clusters {
		if !visit(cl) {
			return
		}
	}
}

// --- Outward events ---

// OnPresenceReceived registers a listener for presence updates on any
// tracked uri. The returned function cancels the registration.
func (c *Core) OnPresenceReceived(fn func(uri, presence string)) (cancel func()) {
	return c.presenceListeners.Add(fn)
}

// OnNoteReceived registers a listener for status-note updates.
func (c *Core) OnNoteReceived(fn func(uri, note string)) (cancel func()) {
	return c.noteListeners.Add(fn)
}

// OnClusterAdded registers a listener for cluster registrations.
func (c *Core) OnClusterAdded(fn func(Cluster)) (cancel func()) {
	return c.clusterAdded.Add(fn)
}

// OnClusterRemoved registers a listener for cluster removals.
func (c *Core) OnClusterRemoved(fn func(Cluster)) (cancel func()) {
	return c.clusterRemoved.Add(fn)
}

// onPresenceReceived is the event bridge wired into every registered
// fetcher. The update is always cached; it is re-emitted outward only while
// at least one subscriber holds the uri, which quietly absorbs the race of
// a fetcher delivering one last update after the final unsubscribe. The
// value is emitted even when unchanged, so listeners see every delivery.
func (c *Core) onPresenceReceived(uri, presenceValue string) {
	c.mu.Lock()
	_, held := c.cache.setPresence(uri, presenceValue)
	state := c.cache.snapshot(uri)
	mirror := c.mirror
	c.mu.Unlock()

	c.writeMirror(mirror, uri, state)
	if !held {
		c.logger.Debug().Str("uri", uri).Msg("Cached presence for uri with no subscribers, suppressing event.")
		return
	}
	c.presenceListeners.Each(func(fn func(uri, presence string)) { fn(uri, presenceValue) })
}

// onNoteReceived mirrors onPresenceReceived for the free-text status note.
func (c *Core) onNoteReceived(uri, note string) {
	c.mu.Lock()
	_, held := c.cache.setNote(uri, note)
	state := c.cache.snapshot(uri)
	mirror := c.mirror
	c.mu.Unlock()

	c.writeMirror(mirror, uri, state)
	if !held {
		c.logger.Debug().Str("uri", uri).Msg("Cached note for uri with no subscribers, suppressing event.")
		return
	}
	c.noteListeners.Each(func(fn func(uri, note string)) { fn(uri, note) })
}

// writeMirror copies the latest state to the mirror in the background.
func (c *Core) writeMirror(mirror StateMirror, uri string, state State) {
	if mirror == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.mirrorTimeout)
		defer cancel()
		if err := mirror.Set(ctx, uri, state); err != nil {
			c.logger.Error().Err(err).Str("uri", uri).Msg("Failed to write state to mirror.")
		}
	}()
}

// --- Introspection ---

// Stats is a point-in-time summary of the Core's pools and cache, exposed
// for ops endpoints and tests.
type Stats struct {
	Fetchers    int `json:"fetchers"`
	Publishers  int `json:"publishers"`
	Clusters    int `json:"clusters"`
	TrackedURIs int `json:"trackedUris"`
}

// Stats returns a snapshot of the pool and cache sizes. TrackedURIs counts
// every cached uri, including idle ones retained for resubscribe.
func (c *Core) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Fetchers:    c.fetchers.len(),
		Publishers:  c.publishers.len(),
		Clusters:    c.clusters.len(),
		TrackedURIs: c.cache.len(),
	}
}
