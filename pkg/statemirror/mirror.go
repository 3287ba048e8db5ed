// Package statemirror provides write-behind mirrors of the latest per-uri
// presence state, so readers outside the process (dashboards, ops tooling)
// can see it. The presence Core's in-process cache stays authoritative: a
// mirror only ever receives best-effort copies of the most recent snapshot,
// one entry per uri, overwritten in place.
package statemirror

import (
	"context"
	"errors"
	"io"

	"github.com/illmade-knight/go-presence/pkg/presence"
)

// ErrNotFound is returned by Fetch for a uri the mirror has never seen or
// whose entry has expired.
var ErrNotFound = errors.New("uri not found in state mirror")

// Mirror stores the latest presence state per uri. Implementations backed by
// a network service must honour context deadlines on every call.
type Mirror interface {
	// Set stores the state for a uri, overwriting any previous entry.
	Set(ctx context.Context, uri string, state presence.State) error
	// Fetch retrieves the stored state for a uri.
	Fetch(ctx context.Context, uri string) (presence.State, error)
	// Delete removes the entry for a uri.
	Delete(ctx context.Context, uri string) error
	// Closer is included for implementations that manage network connections.
	io.Closer
}
