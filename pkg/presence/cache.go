package presence

// stateCache is the per-uri subscriber count and latest known state.
//
// Records are created lazily on first touch or first update and retained
// after the count drops back to zero: a rapid resubscribe then reuses the
// last known state instead of reverting to "unknown". The cache is not
// safe for concurrent use on its own; the Core's mutex covers every
// read-modify-write so the 0↔1 transition reports stay atomic with the
// mutation.
type stateCache struct {
	records map[string]*uriRecord
}

type uriRecord struct {
	refs  int
	state State
}

func newStateCache() *stateCache {
	return &stateCache{records: make(map[string]*uriRecord)}
}

func (c *stateCache) record(uri string) *uriRecord {
	rec, ok := c.records[uri]
	if !ok {
		rec = &uriRecord{state: State{Presence: StateUnknown}}
		c.records[uri] = rec
	}
	return rec
}

// touch increments the subscriber count for the uri, creating the record if
// absent, and reports whether the count went from zero to one.
func (c *stateCache) touch(uri string) (first bool) {
	rec := c.record(uri)
	rec.refs++
	return rec.refs == 1
}

// release decrements the subscriber count and reports whether it reached
// zero. Releasing an unknown uri, or one already at zero, is a no-op
// returning false: the count never underflows.
func (c *stateCache) release(uri string) (last bool) {
	rec, ok := c.records[uri]
	if !ok || rec.refs == 0 {
		return false
	}
	rec.refs--
	return rec.refs == 0
}

// setPresence overwrites the presence value, creating the record if absent,
// and returns the previous value along with whether any subscriber currently
// holds the uri.
func (c *stateCache) setPresence(uri, value string) (previous string, held bool) {
	rec := c.record(uri)
	previous = rec.state.Presence
	rec.state.Presence = value
	return previous, rec.refs > 0
}

// setNote overwrites the note value; semantics mirror setPresence.
func (c *stateCache) setNote(uri, value string) (previous string, held bool) {
	rec := c.record(uri)
	previous = rec.state.Note
	rec.state.Note = value
	return previous, rec.refs > 0
}

// snapshot returns the latest known state for the uri, or the defaults
// ("unknown", "") if the uri has never been seen. It never creates a record.
func (c *stateCache) snapshot(uri string) State {
	if rec, ok := c.records[uri]; ok {
		return rec.state
	}
	return State{Presence: StateUnknown}
}

// len returns the number of tracked uris, including idle ones.
func (c *stateCache) len() int {
	return len(c.records)
}
