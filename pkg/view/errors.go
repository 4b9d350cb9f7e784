package view

import "github.com/cockroachdb/errors"

// Error kinds raised across the view layer. Concrete errors are marked with one
// of these so callers can classify them with errors.Is from
// github.com/cockroachdb/errors.
var (
	// ErrDomain signals a request that is well-typed but semantically invalid,
	// such as a view model without a template.
	ErrDomain = errors.New("view: domain error")
	// ErrInvalidArgument signals a dependency of the wrong kind (a loader
	// without existence checks, a missing resolver).
	ErrInvalidArgument = errors.New("view: invalid argument")
	// ErrRuntime signals configuration or lookup failures discovered while
	// building or running the pipeline.
	ErrRuntime = errors.New("view: runtime error")
)

// Mark tags err with kind. A nil err stays nil.
func Mark(err error, kind error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, kind)
}
