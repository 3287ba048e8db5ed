package presence

import (
	"sync"

	"github.com/google/uuid"
)

// FormRequest is an out-of-band question pushed to the application, such as
// a credential prompt or a certificate-trust decision raised by a fetcher.
// The engine does not interpret the fields or the response; it only routes
// the request to the first handler willing to take it.
type FormRequest struct {
	// ID uniquely identifies the request so asynchronous answers can be
	// correlated by whoever created it.
	ID string
	// Title is a short human-readable description of the question.
	Title string
	// Fields carries request-specific key/value data.
	Fields map[string]string
}

// NewFormRequest creates a request with a fresh ID.
func NewFormRequest(title string) *FormRequest {
	return &FormRequest{
		ID:     uuid.NewString(),
		Title:  title,
		Fields: make(map[string]string),
	}
}

// FormHandler inspects a request and reports whether it handled it.
type FormHandler func(*FormRequest) bool

// HandlerChain is an ordered chain-of-responsibility for form requests:
// handlers are tried in registration order and the first one that claims a
// request stops propagation.
type HandlerChain struct {
	mu       sync.Mutex
	next     int
	handlers []chainEntry
}

type chainEntry struct {
	id int
	fn FormHandler
}

// AddHandler appends a handler to the chain and returns a function that
// removes it again.
func (c *HandlerChain) AddHandler(fn FormHandler) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.handlers = append(c.handlers, chainEntry{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, entry := range c.handlers {
			if entry.id == id {
				c.handlers = append(c.handlers[:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// Push offers the request to each handler in registration order and reports
// whether any of them claimed it.
func (c *HandlerChain) Push(req *FormRequest) bool {
	c.mu.Lock()
	snapshot := make([]chainEntry, len(c.handlers))
	copy(snapshot, c.handlers)
	c.mu.Unlock()

	for _, entry := range snapshot {
		if entry.fn(req) {
			return true
		}
	}
	return false
}
