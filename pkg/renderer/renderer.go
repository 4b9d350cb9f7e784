package renderer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/metrics"
	"github.com/goliatone/go-pongoview/pkg/view"
)

// HelperFunc is the name of the template function that routes to Call.
const HelperFunc = "helper"

// Renderer renders templates from an engine.Environment for the view layer.
type Renderer struct {
	mu sync.RWMutex

	canRenderTrees   bool
	env              *engine.Environment
	loader           pongo2.TemplateLoader
	view             *view.View
	resolver         view.Resolver
	engineHelpers    *helper.Registry
	frameworkHelpers *helper.Registry
	logger           *zap.Logger
	metrics          *metrics.Collector
}

var (
	_ view.Renderer     = (*Renderer)(nil)
	_ view.TreeRenderer = (*Renderer)(nil)
)

// New constructs a Renderer over env. resolver may be nil and set later;
// rendering fails until one is present.
func New(env *engine.Environment, resolver view.Resolver, options ...Option) (*Renderer, error) {
	if env == nil {
		return nil, view.Mark(errors.New("renderer: environment is required"), view.ErrInvalidArgument)
	}

	r := &Renderer{
		canRenderTrees: true,
		env:            env,
		resolver:       resolver,
		logger:         zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.view == nil {
		r.view = view.New(view.WithRenderer(r), view.WithLogger(r.logger))
	}
	return r, nil
}

// Engine returns the *engine.Environment.
func (r *Renderer) Engine() any {
	return r.Environment()
}

// Environment returns the pongo2 environment templates are compiled in.
func (r *Renderer) Environment() *engine.Environment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.env
}

// SetEnvironment replaces the environment. A nil env is ignored.
func (r *Renderer) SetEnvironment(env *engine.Environment) {
	if env == nil {
		return
	}
	r.mu.Lock()
	r.env = env
	r.mu.Unlock()
}

// Loader returns the loader used for existence checks. It must implement
// engine.Checker.
func (r *Renderer) Loader() (pongo2.TemplateLoader, error) {
	r.mu.RLock()
	loader := r.loader
	env := r.env
	r.mu.RUnlock()

	if loader == nil && env != nil {
		loader = env.Loader()
	}
	if loader == nil {
		return nil, view.Mark(errors.New("renderer: no loader configured"), view.ErrInvalidArgument)
	}
	if _, ok := loader.(engine.Checker); !ok {
		return nil, view.Mark(
			errors.WithHint(
				errors.Newf("renderer: loader %T cannot check template existence", loader),
				"wrap the loader in an engine.ChainLoader or implement Exists(name string) bool",
			),
			view.ErrInvalidArgument,
		)
	}
	return loader, nil
}

// SetLoader overrides the loader used for existence checks. A nil loader
// falls back to the environment's loader.
func (r *Renderer) SetLoader(loader pongo2.TemplateLoader) {
	r.mu.Lock()
	r.loader = loader
	r.mu.Unlock()
}

// Resolver returns the configured resolver or an invalid-argument error.
func (r *Renderer) Resolver() (view.Resolver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.resolver == nil {
		return nil, view.Mark(errors.New("renderer: no resolver configured"), view.ErrInvalidArgument)
	}
	return r.resolver, nil
}

// SetResolver replaces the resolver that maps names to compiled templates.
func (r *Renderer) SetResolver(resolver view.Resolver) {
	r.mu.Lock()
	r.resolver = resolver
	r.mu.Unlock()
}

// View returns the view children are delegated to when the renderer cannot
// render them directly.
func (r *Renderer) View() *view.View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

// SetView replaces the view used for delegated child rendering.
func (r *Renderer) SetView(v *view.View) {
	r.mu.Lock()
	r.view = v
	r.mu.Unlock()
}

// EngineHelpers returns the registry consulted first by Plugin.
func (r *Renderer) EngineHelpers() *helper.Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engineHelpers
}

// FrameworkHelpers returns the fallback registry, or nil when none is set.
func (r *Renderer) FrameworkHelpers() *helper.Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frameworkHelpers
}

// CanRenderTrees reports whether RenderModel walks a model's children itself.
func (r *Renderer) CanRenderTrees() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canRenderTrees
}

// SetCanRenderTrees toggles tree rendering.
func (r *Renderer) SetCanRenderTrees(enabled bool) {
	r.mu.Lock()
	r.canRenderTrees = enabled
	r.mu.Unlock()
}

// CanRender reports whether the loader can supply name.
func (r *Renderer) CanRender(name string) (bool, error) {
	loader, err := r.Loader()
	if err != nil {
		return false, err
	}
	return loader.(engine.Checker).Exists(name), nil
}

// Render renders the named template with values. A template the loader cannot
// find renders as "" with a nil error.
func (r *Renderer) Render(ctx context.Context, name string, values view.Variables) (string, error) {
	return r.render(ctx, name, values.Clone(), nil)
}

// RenderModel renders model, applying its renderer options and walking its
// children when tree rendering is enabled.
func (r *Renderer) RenderModel(ctx context.Context, model *view.Model) (string, error) {
	if model == nil {
		return "", view.Mark(errors.New("renderer: model is nil"), view.ErrInvalidArgument)
	}
	name := model.Template()
	if strings.TrimSpace(name) == "" {
		return "", view.Mark(errors.New("renderer: model has no template"), view.ErrDomain)
	}

	r.applyModelOptions(model.Options())
	r.exposeModel(model)
	ctx = view.WithModel(ctx, model)

	return r.render(ctx, name, model.Variables().Clone(), model)
}

func (r *Renderer) render(ctx context.Context, name string, values view.Variables, model *view.Model) (string, error) {
	ok, err := r.CanRender(name)
	if err != nil {
		return "", err
	}
	if !ok {
		r.logger.Debug("template not found, skipping", zap.String("template", name))
		r.metrics.ObserveRender(name, metrics.OutcomeMissing, 0)
		return "", nil
	}

	if model != nil && model.HasChildren() && r.CanRenderTrees() {
		if _, exists := values[view.DefaultCaptureTo]; !exists {
			values[view.DefaultCaptureTo] = ""
		}
		for _, child := range model.Children() {
			childName := child.Template()
			renderable, err := r.CanRender(childName)
			if err != nil {
				return "", err
			}
			if renderable {
				// The first child the loader can supply is the whole result.
				return r.execute(ctx, childName, child.Variables().Clone())
			}

			child.SetOption(view.OptionHasParent, true)
			v := r.View()
			if v == nil {
				return "", view.Mark(errors.New("renderer: no view configured for child rendering"), view.ErrRuntime)
			}
			out, err := v.Render(ctx, child)
			if err != nil {
				return "", errors.Wrapf(err, "renderer: render child %q", childName)
			}
			values[view.DefaultCaptureTo] = view.Stringify(values[view.DefaultCaptureTo]) + out
		}
		r.exposeModel(model)
	}

	return r.execute(ctx, name, values)
}

func (r *Renderer) execute(ctx context.Context, name string, values view.Variables) (string, error) {
	resolver, err := r.Resolver()
	if err != nil {
		return "", err
	}

	start := time.Now()
	tmpl, err := resolver.Resolve(name, r)
	if err != nil {
		r.metrics.ObserveRender(name, metrics.OutcomeError, 0)
		return "", errors.Wrapf(err, "renderer: resolve %q", name)
	}

	if values == nil {
		values = view.Variables{}
	}
	if _, exists := values[HelperFunc]; !exists {
		values[HelperFunc] = r.templateHelper(ctx)
	}

	out, err := tmpl.Render(values)
	if err != nil {
		r.metrics.ObserveRender(name, metrics.OutcomeError, 0)
		return "", errors.Wrapf(err, "renderer: render %q", name)
	}
	r.metrics.ObserveRender(name, metrics.OutcomeOK, time.Since(start))
	r.logger.Debug("template rendered",
		zap.String("template", name),
		zap.Int("bytes", len(out)),
	)
	return out, nil
}

// templateHelper builds the function templates call as helper("name", ...).
func (r *Renderer) templateHelper(ctx context.Context) func(name string, args ...any) (*pongo2.Value, error) {
	return func(name string, args ...any) (*pongo2.Value, error) {
		result, err := r.Call(ctx, name, args...)
		if err != nil {
			return nil, err
		}
		if value, ok := result.(*pongo2.Value); ok {
			return value, nil
		}
		return pongo2.AsValue(result), nil
	}
}

func (r *Renderer) exposeModel(model *view.Model) {
	h, err := r.Plugin(helper.ViewModelName, nil)
	if err != nil {
		return
	}
	if aware, ok := h.(helper.ModelAware); ok {
		aware.SetCurrent(model)
	}
}
