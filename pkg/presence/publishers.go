package presence

// publisherPool is the set of destinations for the local user's own
// presence. Same identity/idempotence rules as the fetcher pool; guarded by
// the Core's mutex.
type publisherPool struct {
	entries []Publisher
}

func (p *publisherPool) add(pub Publisher) bool {
	if p.indexOf(pub) >= 0 {
		return false
	}
	p.entries = append(p.entries, pub)
	return true
}

func (p *publisherPool) remove(pub Publisher) bool {
	i := p.indexOf(pub)
	if i < 0 {
		return false
	}
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	return true
}

func (p *publisherPool) indexOf(pub Publisher) int {
	for i, entry := range p.entries {
		if entry == pub {
			return i
		}
	}
	return -1
}

// all returns a copy of the registered publishers so the Core can dispatch
// Publish calls outside its lock.
func (p *publisherPool) all() []Publisher {
	out := make([]Publisher, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *publisherPool) len() int {
	return len(p.entries)
}
