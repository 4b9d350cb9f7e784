// Package renderer adapts the pongo2 engine environment to the view layer.
//
// A Renderer answers whether a template exists, walks view model trees when
// allowed, resolves templates through a view.Resolver and exposes helpers to
// templates through a single helper(name, args...) function. Helper lookup
// consults the engine-specific registry first and the framework registry
// second.
package renderer
