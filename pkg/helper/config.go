package helper

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Configurer applies helper definitions to a registry.
type Configurer interface {
	ConfigureRegistry(r *Registry) error
}

// ConfigurerFunc adapts a function to Configurer.
type ConfigurerFunc func(r *Registry) error

func (f ConfigurerFunc) ConfigureRegistry(r *Registry) error {
	return f(r)
}

// Config applies a raw configuration map to a registry. Recognised sections:
//
//	shared_by_default: bool
//	services:   name -> value
//	invokables: name -> catalog name | func() Helper
//	factories:  name -> catalog name | Factory
//	aliases:    alias -> target
//	shared:     name -> bool
//
// Sections are applied in that order.
type Config struct {
	raw     map[string]any
	catalog *Catalog
}

// NewConfig wraps raw. catalog resolves string references and may be nil when
// the map holds only in-process values.
func NewConfig(raw map[string]any, catalog *Catalog) *Config {
	return &Config{raw: raw, catalog: catalog}
}

func (c *Config) ConfigureRegistry(r *Registry) error {
	if r == nil {
		return errors.New("helper: config: registry is nil")
	}
	if c == nil || len(c.raw) == 0 {
		return nil
	}

	if raw, ok := lookup(c.raw, "shared_by_default"); ok {
		shared, err := toBool(raw)
		if err != nil {
			return errors.Wrap(err, "helper: config: shared_by_default")
		}
		r.SetSharedByDefault(shared)
	}

	steps := []struct {
		section string
		apply   func(name string, value any) error
	}{
		{"services", func(name string, value any) error { return r.SetService(name, value) }},
		{"invokables", func(name string, value any) error { return c.applyInvokable(r, name, value) }},
		{"factories", func(name string, value any) error { return c.applyFactory(r, name, value) }},
		{"aliases", func(name string, value any) error {
			target, ok := value.(string)
			if !ok {
				return errors.Newf("target must be a string, got %T", value)
			}
			return r.SetAlias(name, target)
		}},
		{"shared", func(name string, value any) error {
			shared, err := toBool(value)
			if err != nil {
				return err
			}
			r.SetShared(name, shared)
			return nil
		}},
	}

	for _, step := range steps {
		raw, ok := lookup(c.raw, step.section)
		if !ok {
			continue
		}
		entries, err := toMap(raw)
		if err != nil {
			return errors.Wrapf(err, "helper: config: %s", step.section)
		}
		for _, name := range sortedKeys(entries) {
			if err := step.apply(name, entries[name]); err != nil {
				return errors.Wrapf(err, "helper: config: %s.%s", step.section, name)
			}
		}
	}
	return nil
}

func (c *Config) applyInvokable(r *Registry, name string, value any) error {
	switch v := value.(type) {
	case string:
		if !c.catalog.Has(v) {
			return errors.Mark(errors.Newf("unknown type %q", v), ErrNotFound)
		}
		catalog := c.catalog
		return r.SetFactory(name, func(Locator, string, map[string]any) (Helper, error) {
			return catalog.New(v)
		})
	case func() Helper:
		return r.SetInvokable(name, v)
	case Constructor:
		return r.SetInvokable(name, func() Helper { return v() })
	default:
		return errors.Newf("unsupported invokable %T", value)
	}
}

func (c *Config) applyFactory(r *Registry, name string, value any) error {
	if ref, ok := value.(string); ok {
		built, err := c.catalog.New(ref)
		if err != nil {
			return err
		}
		value = built
	}
	switch v := value.(type) {
	case Factory:
		return r.SetFactory(name, v)
	case func(Locator, string, map[string]any) (Helper, error):
		return r.SetFactory(name, v)
	default:
		return errors.Newf("unsupported factory %T", value)
	}
}

func lookup(raw map[string]any, key string) (any, bool) {
	if v, ok := raw[key]; ok {
		return v, true
	}
	want := Normalize(key)
	for k, v := range raw {
		if Normalize(k) == want {
			return v, true
		}
	}
	return nil, false
}

func toMap(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	case map[string]bool:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = val
		}
		return out, nil
	default:
		return nil, errors.Newf("expected a map, got %T", value)
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, errors.Wrapf(err, "parse %q", v)
		}
		return b, nil
	default:
		return false, errors.Newf("expected a bool, got %T", value)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
