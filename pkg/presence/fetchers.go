package presence

// fetcherPool is the set of registered fetchers plus the event bridges the
// Core wires into each one. Fetchers are compared by identity, registration
// is idempotent, and fetch/unfetch fan out to every fetcher that supports
// the uri: several protocol handlers may legitimately claim the same logical
// contact under different uri spellings, so the pool deliberately dispatches
// to all of them rather than picking a single winner.
//
// Like the state cache, the pool relies on the Core's mutex for safety.
type fetcherPool struct {
	entries []*fetcherEntry
}

type fetcherEntry struct {
	fetcher Fetcher
	cancels []func()
}

// insert adds the fetcher together with its already-wired event-bridge
// cancels. The Core wires the bridges outside its lock, since OnPresence and
// OnNote are capability calls that may re-enter. Inserting a fetcher that is
// already registered is a no-op returning false.
func (p *fetcherPool) insert(f Fetcher, cancels []func()) bool {
	if p.indexOf(f) >= 0 {
		return false
	}
	p.entries = append(p.entries, &fetcherEntry{fetcher: f, cancels: cancels})
	return true
}

// remove drops the fetcher and returns its event-bridge cancels for the Core
// to run outside the lock, so subscriptions still held through other
// fetchers are unaffected. Removing an unregistered fetcher returns nil.
func (p *fetcherPool) remove(f Fetcher) []func() {
	i := p.indexOf(f)
	if i < 0 {
		return nil
	}
	cancels := p.entries[i].cancels
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	return cancels
}

// contains reports whether the fetcher is registered.
func (p *fetcherPool) contains(f Fetcher) bool {
	return p.indexOf(f) >= 0
}

func (p *fetcherPool) indexOf(f Fetcher) int {
	for i, entry := range p.entries {
		if entry.fetcher == f {
			return i
		}
	}
	return -1
}

// supports reports whether at least one registered fetcher handles the uri.
func (p *fetcherPool) supports(uri string) bool {
	for _, entry := range p.entries {
		if entry.fetcher.SupportsURI(uri) {
			return true
		}
	}
	return false
}

// supporting returns every registered fetcher that handles the uri. The
// Core dispatches Fetch/Unfetch on the returned slice outside its lock, in
// case a fetcher delivers events synchronously from the same call.
func (p *fetcherPool) supporting(uri string) []Fetcher {
	var out []Fetcher
	for _, entry := range p.entries {
		if entry.fetcher.SupportsURI(uri) {
			out = append(out, entry.fetcher)
		}
	}
	return out
}

func (p *fetcherPool) len() int {
	return len(p.entries)
}
