package helper

import (
	"context"

	"github.com/goliatone/go-pongoview/pkg/view"
)

// Helper is any value registered under a helper name. Behaviour is discovered
// through the capability interfaces below.
type Helper = any

// Invoker is implemented by helpers that can be called with arguments.
type Invoker interface {
	Invoke(ctx context.Context, args ...any) (any, error)
}

// RendererBinder is implemented by helpers that call back into the renderer
// that looked them up. BindRenderer returns a bound copy; the registered
// instance is left untouched.
type RendererBinder interface {
	BindRenderer(renderer view.Renderer) Helper
}

// ModelAware is implemented by helpers that track the view model being
// rendered.
type ModelAware interface {
	SetCurrent(model *view.Model)
}

// Func adapts a plain function to Invoker.
type Func func(ctx context.Context, args ...any) (any, error)

func (f Func) Invoke(ctx context.Context, args ...any) (any, error) {
	return f(ctx, args...)
}

// Invoke calls h with args when it is an Invoker and returns h unchanged
// otherwise.
func Invoke(ctx context.Context, h Helper, args ...any) (any, error) {
	switch v := h.(type) {
	case Invoker:
		return v.Invoke(ctx, args...)
	default:
		return h, nil
	}
}
