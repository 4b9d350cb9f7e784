package helper

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNotFound is returned when no source can supply a helper name.
var ErrNotFound = errors.New("helper: not found")

// ErrNotBuildable is returned when construction options are passed for a
// helper registered as a ready instance.
var ErrNotBuildable = errors.New("helper: cannot build with options")

// Locator gives factories access to the surrounding service container.
type Locator interface {
	Has(name string) bool
	Get(name string) (any, error)
}

// Factory builds a helper. opts carries per-lookup construction options and
// is nil for plain lookups.
type Factory func(loc Locator, name string, opts map[string]any) (Helper, error)

// Initializer runs against every helper a registry builds.
type Initializer func(loc Locator, h Helper) error

// Option customises a Registry.
type Option func(*Registry)

// WithLocator gives factories and initializers access to a container.
func WithLocator(loc Locator) Option {
	return func(r *Registry) {
		r.locator = loc
	}
}

// WithName labels the registry in error messages.
func WithName(name string) Option {
	return func(r *Registry) {
		if name = strings.TrimSpace(name); name != "" {
			r.name = name
		}
	}
}

// WithSharedByDefault controls whether built helpers are cached. Defaults to
// true.
func WithSharedByDefault(shared bool) Option {
	return func(r *Registry) {
		r.sharedByDefault = shared
	}
}

// Registry stores helper definitions by normalised name. A name resolves to
// at most one definition; registering it again replaces the previous one.
type Registry struct {
	mu              sync.RWMutex
	name            string
	locator         Locator
	factories       map[string]Factory
	instances       map[string]Helper
	aliases         map[string]string
	shared          map[string]bool
	sharedByDefault bool
	initializers    []Initializer
}

// NewRegistry creates an empty registry.
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		name:            "helpers",
		factories:       make(map[string]Factory),
		instances:       make(map[string]Helper),
		aliases:         make(map[string]string),
		shared:          make(map[string]bool),
		sharedByDefault: true,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

func (r *Registry) Name() string {
	return r.name
}

func (r *Registry) Locator() Locator {
	return r.locator
}

// SetService registers a ready-made helper instance.
func (r *Registry) SetService(name string, h Helper) error {
	key := Normalize(name)
	if key == "" {
		return errors.Newf("helper: %s: service name is required", r.name)
	}
	if h == nil {
		return errors.Newf("helper: %s: service %q is nil", r.name, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.aliases, key)
	delete(r.factories, key)
	r.instances[key] = h
	return nil
}

// SetFactory registers a factory, dropping any instance cached for name.
func (r *Registry) SetFactory(name string, factory Factory) error {
	key := Normalize(name)
	if key == "" {
		return errors.Newf("helper: %s: factory name is required", r.name)
	}
	if factory == nil {
		return errors.Newf("helper: %s: factory for %q is nil", r.name, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.aliases, key)
	delete(r.instances, key)
	r.factories[key] = factory
	return nil
}

// SetInvokable registers a constructor that needs no container or options.
func (r *Registry) SetInvokable(name string, ctor func() Helper) error {
	if ctor == nil {
		return errors.Newf("helper: %s: constructor for %q is nil", r.name, name)
	}
	return r.SetFactory(name, func(Locator, string, map[string]any) (Helper, error) {
		return ctor(), nil
	})
}

// SetAlias makes alias resolve to target.
func (r *Registry) SetAlias(alias, target string) error {
	key := Normalize(alias)
	to := Normalize(target)
	if key == "" || to == "" {
		return errors.Newf("helper: %s: alias and target are required", r.name)
	}
	if key == to {
		return errors.Newf("helper: %s: alias %q points to itself", r.name, alias)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, key)
	delete(r.instances, key)
	r.aliases[key] = to
	return nil
}

// SetShared overrides caching for a single helper.
func (r *Registry) SetShared(name string, shared bool) {
	key := Normalize(name)
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shared[key] = shared
}

func (r *Registry) SetSharedByDefault(shared bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sharedByDefault = shared
}

// AddInitializer appends an initializer run on every newly built helper.
func (r *Registry) AddInitializer(init Initializer) {
	if init == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initializers = append(r.initializers, init)
}

// Has reports whether name resolves to a helper definition.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.resolveLocked(Normalize(name))
	if !ok {
		return false
	}
	if _, exists := r.instances[key]; exists {
		return true
	}
	_, exists := r.factories[key]
	return exists
}

// Get returns the helper registered under name. Non-nil opts always build a
// fresh instance that is not cached.
func (r *Registry) Get(name string, opts map[string]any) (Helper, error) {
	if r == nil {
		return nil, errors.Mark(errors.Newf("helper: %q: registry is nil", name), ErrNotFound)
	}

	r.mu.RLock()
	key, ok := r.resolveLocked(Normalize(name))
	if !ok {
		r.mu.RUnlock()
		return nil, errors.Mark(errors.Newf("helper: %s: cannot resolve %q", r.name, name), ErrNotFound)
	}
	instance, exists := r.instances[key]
	if exists && opts == nil {
		r.mu.RUnlock()
		return instance, nil
	}
	factory := r.factories[key]
	shared := r.sharedByDefault
	if explicit, set := r.shared[key]; set {
		shared = explicit
	}
	initializers := append([]Initializer(nil), r.initializers...)
	r.mu.RUnlock()

	if factory == nil {
		if exists {
			return nil, errors.Mark(
				errors.Newf("helper: %s: %q is a registered service and has no factory to build it with options", r.name, name),
				ErrNotBuildable,
			)
		}
		return nil, errors.Mark(errors.Newf("helper: %s: %q not registered", r.name, name), ErrNotFound)
	}

	instance, err := factory(r.locator, key, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "helper: %s: build %q", r.name, name)
	}
	if instance == nil {
		return nil, errors.Newf("helper: %s: factory for %q returned nil", r.name, name)
	}
	for _, init := range initializers {
		if err := init(r.locator, instance); err != nil {
			return nil, errors.Wrapf(err, "helper: %s: initialize %q", r.name, name)
		}
	}

	if !shared || opts != nil {
		return instance, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.instances[key]; exists {
		return existing, nil
	}
	r.instances[key] = instance
	return instance, nil
}

// Names returns the sorted, normalised names of every definition and alias.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.factories)+len(r.instances)+len(r.aliases))
	for name := range r.factories {
		seen[name] = struct{}{}
	}
	for name := range r.instances {
		seen[name] = struct{}{}
	}
	for name := range r.aliases {
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) resolveLocked(key string) (string, bool) {
	for hops := 0; hops <= len(r.aliases); hops++ {
		target, ok := r.aliases[key]
		if !ok {
			return key, key != ""
		}
		key = target
	}
	return "", false
}

// Normalize folds a helper name so that "view_model", "viewModel" and
// "ViewModel" address the same entry.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch r {
		case '_', '-', '.', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
