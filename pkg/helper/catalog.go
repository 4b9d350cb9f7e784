package helper

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Constructor builds a value named by configuration.
type Constructor func() any

// Catalog maps type names used in configuration files to constructors, so a
// YAML document can reference helpers, factories and configurers by name.
type Catalog struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func NewCatalog() *Catalog {
	return &Catalog{ctors: make(map[string]Constructor)}
}

// Register adds a constructor. Names are case-insensitive.
func (c *Catalog) Register(name string, ctor Constructor) error {
	key := catalogKey(name)
	if key == "" {
		return errors.New("helper: catalog name is required")
	}
	if ctor == nil {
		return errors.Newf("helper: catalog constructor for %q is nil", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.ctors[key]; exists {
		return errors.Newf("helper: catalog entry %q already registered", name)
	}
	c.ctors[key] = ctor
	return nil
}

// MustRegister panics when Register fails.
func (c *Catalog) MustRegister(name string, ctor Constructor) {
	if err := c.Register(name, ctor); err != nil {
		panic(err)
	}
}

func (c *Catalog) Has(name string) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ctors[catalogKey(name)]
	return ok
}

// New constructs the value registered under name.
func (c *Catalog) New(name string) (any, error) {
	if c == nil {
		return nil, errors.Mark(errors.Newf("helper: catalog is nil, cannot build %q", name), ErrNotFound)
	}
	c.mu.RLock()
	ctor, ok := c.ctors[catalogKey(name)]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Mark(errors.Newf("helper: catalog has no entry %q", name), ErrNotFound)
	}
	return ctor(), nil
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.ctors))
	for name := range c.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func catalogKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
