package view

import "context"

// Template is a compiled template ready to be executed.
type Template interface {
	Name() string
	Render(vars Variables) (string, error)
}

// Resolver maps a template identifier to a compiled template. The renderer
// asking for the template is passed along so resolvers can tailor lookups.
type Resolver interface {
	Resolve(name string, renderer Renderer) (Template, error)
}

// Renderer converts a template identifier or a view model into text.
//
// Render returns an empty string and a nil error when the template cannot be
// located, leaving the decision of whether that is fatal to the caller.
type Renderer interface {
	Engine() any
	Render(ctx context.Context, name string, values Variables) (string, error)
	RenderModel(ctx context.Context, model *Model) (string, error)
}

// TreeRenderer is implemented by renderers able to walk a model's children
// themselves instead of relying on View to pre-render them.
type TreeRenderer interface {
	Renderer
	CanRenderTrees() bool
}
