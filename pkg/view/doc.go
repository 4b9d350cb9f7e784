// Package view defines the host-side view layer the pongo2 renderer plugs into:
// view models, renderer and resolver contracts, and the generic View entry
// point that walks a model tree and dispatches to the configured renderer.
package view
