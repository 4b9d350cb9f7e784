package view

import "context"

type modelKey struct{}

// WithModel returns a context carrying the model being rendered.
func WithModel(ctx context.Context, model *Model) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, modelKey{}, model)
}

// ModelFrom returns the model stored by WithModel.
func ModelFrom(ctx context.Context) (*Model, bool) {
	if ctx == nil {
		return nil, false
	}
	model, ok := ctx.Value(modelKey{}).(*Model)
	return model, ok && model != nil
}
