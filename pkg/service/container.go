// Package service wires the pongoview components together through a small
// service container, mirroring how a host framework would expose them.
package service

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-pongoview/pkg/view"
)

// Container looks services up by name.
type Container interface {
	Has(name string) bool
	Get(name string) (any, error)
}

// FactoryFunc builds a service. The container it receives resolves further
// dependencies and detects cycles.
type FactoryFunc func(c Container) (any, error)

// ServiceManager is a Container with ready-made services and lazily built,
// shared factory services.
type ServiceManager struct {
	mu        sync.RWMutex
	services  map[string]any
	factories map[string]FactoryFunc
}

func NewServiceManager() *ServiceManager {
	return &ServiceManager{
		services:  make(map[string]any),
		factories: make(map[string]FactoryFunc),
	}
}

// SetService registers an instance, replacing any factory of the same name.
func (m *ServiceManager) SetService(name string, svc any) {
	key := serviceKey(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.factories, key)
	m.services[key] = svc
}

// SetFactory registers a factory and drops any instance already built for
// name.
func (m *ServiceManager) SetFactory(name string, factory FactoryFunc) {
	key := serviceKey(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, key)
	m.factories[key] = factory
}

func (m *ServiceManager) Has(name string) bool {
	key := serviceKey(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.services[key]; ok {
		return true
	}
	_, ok := m.factories[key]
	return ok
}

// Built reports whether name holds an instance, either registered directly or
// built by its factory.
func (m *ServiceManager) Built(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.services[serviceKey(name)]
	return ok
}

// Get returns the named service, building and caching it on first use.
func (m *ServiceManager) Get(name string) (any, error) {
	return m.get(serviceKey(name), nil)
}

// Names lists every registered service name.
func (m *ServiceManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{}, len(m.services)+len(m.factories))
	for name := range m.services {
		seen[name] = struct{}{}
	}
	for name := range m.factories {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *ServiceManager) get(key string, stack []string) (any, error) {
	m.mu.RLock()
	if svc, ok := m.services[key]; ok {
		m.mu.RUnlock()
		return svc, nil
	}
	factory, ok := m.factories[key]
	m.mu.RUnlock()

	if !ok {
		return nil, view.Mark(errors.Newf("service: %q not found", key), view.ErrRuntime)
	}
	for _, pending := range stack {
		if pending == key {
			return nil, view.Mark(
				errors.Newf("service: dependency cycle %s -> %s", strings.Join(stack, " -> "), key),
				view.ErrRuntime,
			)
		}
	}

	svc, err := factory(&resolving{manager: m, stack: append(append([]string(nil), stack...), key)})
	if err != nil {
		return nil, errors.Wrapf(err, "service: build %q", key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.services[key]; ok {
		return existing, nil
	}
	m.services[key] = svc
	return svc, nil
}

// resolving is the Container handed to factories; it carries the chain of
// services being built.
type resolving struct {
	manager *ServiceManager
	stack   []string
}

func (r *resolving) Has(name string) bool {
	return r.manager.Has(name)
}

func (r *resolving) Get(name string) (any, error) {
	return r.manager.get(serviceKey(name), r.stack)
}

// Lookup fetches name from c and asserts its type.
func Lookup[T any](c Container, name string) (T, error) {
	var zero T
	if c == nil {
		return zero, view.Mark(errors.Newf("service: no container to look up %q", name), view.ErrRuntime)
	}
	svc, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, view.Mark(errors.Newf("service: %q is %T, not %T", name, svc, zero), view.ErrRuntime)
	}
	return typed, nil
}

func serviceKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
