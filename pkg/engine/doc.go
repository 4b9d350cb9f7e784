// Package engine wraps a pongo2 template set as the template engine behind the
// view renderer. Template names are resolved through a ChainLoader that
// consults an ordered list of loaders, honours aliases (template maps and
// theme overrides) and answers existence queries without compiling anything.
package engine
