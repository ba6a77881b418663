// Package di is a minimal service locator used to wire the
// application container (internal/monolith) without every module
// importing every other module's concrete types directly. Services
// are registered under a string token and built lazily the first time
// they're requested, so registration order across modules doesn't
// matter.
package di

import "sync"

// ServiceRegistry is the read side: look up an already-registered
// service by its token.
type ServiceRegistry interface {
	Get(token string) any
}

// Container is the write side: register a concrete value, or a lazy
// factory via RegisterToken.
type Container interface {
	ServiceRegistry
	Register(token string, svc any)
}

type entry struct {
	value   any
	factory func(ServiceRegistry) any
	once    sync.Once
}

type container struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewContainer builds an empty container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

// Register stores an already-built value under token.
func (c *container) Register(token string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = &entry{value: svc}
}

// Get returns the value registered under token, building it via its
// factory (once) if it was registered with RegisterToken. It returns
// nil if nothing is registered under token.
func (c *container) Get(token string) any {
	c.mu.Lock()
	e, ok := c.entries[token]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if e.factory != nil {
		e.once.Do(func() { e.value = e.factory(c) })
	}
	return e.value
}

// RegisterToken registers a lazily-built, typed service: factory runs
// at most once, the first time token is requested.
func RegisterToken[T any](c Container, token string, factory func(ServiceRegistry) T) {
	cc, ok := c.(*container)
	if !ok {
		// fall back to eager construction for any other Container
		// implementation (e.g. a test double).
		c.Register(token, factory(c))
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.entries[token] = &entry{factory: func(sr ServiceRegistry) any { return factory(sr) }}
}

// GetToken type-asserts the service registered under token to T,
// panicking if it's missing or the wrong type — a wiring mistake
// that should surface immediately at startup, not be swallowed.
func GetToken[T any](sr ServiceRegistry, token string) T {
	v := sr.Get(token)
	t, ok := v.(T)
	if !ok {
		panic("di: token " + token + " not registered with the expected type")
	}
	return t
}
