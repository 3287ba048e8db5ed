package presence_test

import (
	"strings"
	"sync"

	"github.com/illmade-knight/go-presence/pkg/presence"
)

// fakeFetcher is a scriptable Fetcher that records every Fetch/Unfetch call
// and lets tests emit presence and note events by hand.
type fakeFetcher struct {
	prefix string

	mu        sync.Mutex
	fetched   map[string]int
	unfetched map[string]int

	presenceCbs presence.CallbackList[func(uri, presence string)]
	noteCbs     presence.CallbackList[func(uri, note string)]
}

func newFakeFetcher(prefix string) *fakeFetcher {
	return &fakeFetcher{
		prefix:    prefix,
		fetched:   make(map[string]int),
		unfetched: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched[uri]++
}

func (f *fakeFetcher) Unfetch(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unfetched[uri]++
}

func (f *fakeFetcher) SupportsURI(uri string) bool {
	return strings.HasPrefix(uri, f.prefix)
}

func (f *fakeFetcher) OnPresence(fn func(uri, presence string)) (cancel func()) {
	return f.presenceCbs.Add(fn)
}

func (f *fakeFetcher) OnNote(fn func(uri, note string)) (cancel func()) {
	return f.noteCbs.Add(fn)
}

func (f *fakeFetcher) EmitPresence(uri, value string) {
	f.presenceCbs.Each(func(fn func(uri, presence string)) { fn(uri, value) })
}

func (f *fakeFetcher) EmitNote(uri, value string) {
	f.noteCbs.Each(func(fn func(uri, note string)) { fn(uri, value) })
}

func (f *fakeFetcher) FetchCount(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched[uri]
}

func (f *fakeFetcher) UnfetchCount(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unfetched[uri]
}

// fakePublisher records every snapshot it receives.
type fakePublisher struct {
	mu        sync.Mutex
	published []presence.Details
}

func (p *fakePublisher) Publish(details presence.Details) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, details)
}

func (p *fakePublisher) Published() []presence.Details {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]presence.Details, len(p.published))
	copy(out, p.published)
	return out
}

// fakeDetails is a mutable PersonalDetails with synchronous update fan-out.
type fakeDetails struct {
	mu        sync.Mutex
	details   presence.Details
	listeners presence.CallbackList[func()]
}

func (d *fakeDetails) Details() presence.Details {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.details
}

func (d *fakeDetails) OnUpdated(fn func()) (cancel func()) {
	return d.listeners.Add(fn)
}

func (d *fakeDetails) Update(details presence.Details) {
	d.mu.Lock()
	d.details = details
	d.mu.Unlock()
	d.listeners.Each(func(fn func()) { fn() })
}

// fakeCluster is an identity-compared cluster handle.
type fakeCluster struct {
	name string
}

func (c *fakeCluster) Name() string { return c.name }
