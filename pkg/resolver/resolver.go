// Package resolver maps template names to compiled templates.
package resolver

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// EnvironmentResolver compiles templates through an engine.Environment.
type EnvironmentResolver struct {
	env *engine.Environment
}

// NewEnvironmentResolver binds a resolver to env. A nil env falls back to the
// environment exposed by the renderer passed to Resolve.
func NewEnvironmentResolver(env *engine.Environment) *EnvironmentResolver {
	return &EnvironmentResolver{env: env}
}

func (r *EnvironmentResolver) Environment() *engine.Environment {
	return r.env
}

// Resolve loads name. Failures are marked view.ErrRuntime.
func (r *EnvironmentResolver) Resolve(name string, renderer view.Renderer) (view.Template, error) {
	env := r.env
	if env == nil && renderer != nil {
		env, _ = renderer.Engine().(*engine.Environment)
	}
	if env == nil {
		return nil, errors.Mark(errors.Newf("resolver: no environment to resolve %q", name), view.ErrRuntime)
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.Mark(errors.New("resolver: template name is required"), view.ErrInvalidArgument)
	}

	tmpl, err := env.Load(name)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "resolver: resolve %q", name), view.ErrRuntime)
	}
	return tmpl, nil
}

// AggregateResolver tries resolvers in attachment order; the first success
// wins.
type AggregateResolver struct {
	mu        sync.RWMutex
	resolvers []view.Resolver
}

func NewAggregateResolver(resolvers ...view.Resolver) *AggregateResolver {
	a := &AggregateResolver{}
	for _, r := range resolvers {
		a.Attach(r)
	}
	return a
}

// Attach appends r. Nil resolvers are ignored.
func (a *AggregateResolver) Attach(r view.Resolver) {
	if r == nil {
		return
	}
	a.mu.Lock()
	a.resolvers = append(a.resolvers, r)
	a.mu.Unlock()
}

func (a *AggregateResolver) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.resolvers)
}

func (a *AggregateResolver) Resolve(name string, renderer view.Renderer) (view.Template, error) {
	a.mu.RLock()
	resolvers := append([]view.Resolver(nil), a.resolvers...)
	a.mu.RUnlock()

	if len(resolvers) == 0 {
		return nil, errors.Mark(errors.Newf("resolver: no resolvers attached for %q", name), view.ErrRuntime)
	}

	var combined error
	for _, r := range resolvers {
		tmpl, err := r.Resolve(name, renderer)
		if err == nil && tmpl != nil {
			return tmpl, nil
		}
		if err == nil {
			err = errors.Newf("resolver: %T returned no template", r)
		}
		combined = errors.CombineErrors(combined, err)
	}
	return nil, errors.Mark(errors.Wrapf(combined, "resolver: unable to resolve %q", name), view.ErrRuntime)
}
