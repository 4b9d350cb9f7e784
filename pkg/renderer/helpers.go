package renderer

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/helper"
	"github.com/goliatone/go-pongoview/pkg/metrics"
)

// Helpers returns the lookup chain: engine helpers bound to this renderer,
// then framework helpers.
func (r *Renderer) Helpers() helper.Chain {
	engineHelpers := r.EngineHelpers()
	frameworkHelpers := r.FrameworkHelpers()

	chain := make(helper.Chain, 0, 2)
	if engineHelpers != nil {
		chain = append(chain, engineHelpers.Bind(r))
	}
	if frameworkHelpers != nil {
		chain = append(chain, frameworkHelpers.Bind(r))
	}
	return chain
}

// Plugin looks up a helper by name. Non-nil opts build a fresh instance.
func (r *Renderer) Plugin(name string, opts map[string]any) (helper.Helper, error) {
	h, err := r.Helpers().Get(name, opts)
	switch {
	case errors.Is(err, helper.ErrNotFound):
		r.metrics.ObserveHelper(name, metrics.OutcomeNotFound)
		return nil, err
	case err != nil:
		r.metrics.ObserveHelper(name, metrics.OutcomeError)
		return nil, errors.Wrapf(err, "renderer: helper %q", name)
	}
	r.metrics.ObserveHelper(name, metrics.OutcomeOK)
	return h, nil
}

// Call resolves a helper and invokes it with args. Helpers that are not
// invokable are returned as they are.
func (r *Renderer) Call(ctx context.Context, name string, args ...any) (any, error) {
	h, err := r.Plugin(name, nil)
	if err != nil {
		return nil, err
	}
	result, err := helper.Invoke(ctx, h, args...)
	if err != nil {
		r.logger.Debug("helper call failed", zap.String("helper", name), zap.Error(err))
		return nil, errors.Wrapf(err, "renderer: call helper %q", name)
	}
	return result, nil
}
