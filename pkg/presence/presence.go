// Package presence provides the subscription and aggregation engine for
// tracking the online state of remote parties ("presentities"). It multiplexes
// any number of logical subscribers for a uri onto at most one underlying
// subscription per protocol fetcher, caches the latest known state per uri,
// and fans presence changes out to registered listeners.
package presence

import "context"

// StateUnknown is the presence value reported for a uri before any fetcher
// has delivered information about it.
const StateUnknown = "unknown"

// State is the latest known presence information for a single uri.
type State struct {
	// Presence is a short presence token such as "available" or "busy".
	Presence string `json:"presence"`
	// Note is a free-text status line set by the remote party.
	Note string `json:"note"`
}

// Details is a snapshot of the local user's own presence, fanned out to
// every registered Publisher whenever it changes.
type Details struct {
	DisplayName string `json:"displayName"`
	Presence    string `json:"presence"`
	Note        string `json:"note"`
}

// PersonalDetails is the source of the local user's presence snapshot.
// The Core subscribes to updates at construction time and republishes each
// new snapshot through its publisher pool.
type PersonalDetails interface {
	// Details returns the current snapshot.
	Details() Details
	// OnUpdated registers a callback invoked after each change. The returned
	// function cancels the registration.
	OnUpdated(fn func()) (cancel func())
}

// Fetcher is a protocol-specific source of presence information. A fetcher
// claims one or more uri schemes via SupportsURI and delivers updates
// asynchronously through its OnPresence/OnNote callbacks.
//
// Fetch and Unfetch are fire-and-forget: the Core guarantees it issues at
// most one Fetch per uri while subscribers hold it, and exactly one Unfetch
// once the last subscriber is gone, so implementations do not need their own
// per-uri refcounting.
type Fetcher interface {
	// Fetch starts delivering presence updates for the uri.
	Fetch(uri string)
	// Unfetch stops delivering presence updates for the uri.
	Unfetch(uri string)
	// SupportsURI reports whether this fetcher can handle the uri.
	SupportsURI(uri string) bool

	// OnPresence registers a callback for presence updates (uri, presence).
	OnPresence(fn func(uri, presence string)) (cancel func())
	// OnNote registers a callback for status-note updates (uri, note).
	OnNote(fn func(uri, note string)) (cancel func())
}

// Publisher broadcasts the local user's presence to one destination.
// Publish is best-effort: implementations report failures through their own
// logging, the Core neither retries nor surfaces them.
type Publisher interface {
	Publish(details Details)
}

// Cluster is an opaque handle for one source of presentities, such as a
// single address book or roster. Clusters are compared by identity, so
// registrants should pass pointer values.
type Cluster interface {
	Name() string
}

// ClusterVisitor is invoked once per registered cluster. Returning false
// stops the traversal early.
type ClusterVisitor func(Cluster) bool

// StateMirror receives best-effort copies of the latest per-uri state so it
// can be read outside the process. The in-process cache stays authoritative;
// mirror failures are logged and never affect the subscription path.
type StateMirror interface {
	Set(ctx context.Context, uri string, state State) error
}
