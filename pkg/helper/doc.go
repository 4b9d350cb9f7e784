// Package helper provides named rendering-time utilities and the registries
// that build them. A Registry plays the role of a plugin manager: helpers are
// registered as services, factories, invokables or aliases, and looked up by a
// normalised name. Renderers consult an ordered Chain of sources, so an
// engine-specific registry can shadow a framework-wide one.
package helper
