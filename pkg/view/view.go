package view

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Option configures a View.
type Option func(*View)

// WithRenderer sets the renderer used for every model.
func WithRenderer(renderer Renderer) Option {
	return func(v *View) {
		v.renderer = renderer
	}
}

// WithLogger attaches a logger. Nil keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// View is the generic render entry point. Renderers that cannot walk model
// trees get their children rendered up front, with each child's output
// captured into the parent's variables.
type View struct {
	renderer Renderer
	logger   *zap.Logger
}

// New constructs a View applying the provided options.
func New(options ...Option) *View {
	v := &View{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}
	return v
}

func (v *View) SetRenderer(renderer Renderer) {
	v.renderer = renderer
}

func (v *View) Renderer() Renderer {
	return v.renderer
}

// Render renders model and, when necessary, its children.
func (v *View) Render(ctx context.Context, model *Model) (string, error) {
	if model == nil {
		return "", Mark(errors.New("view: model is nil"), ErrInvalidArgument)
	}
	if v.renderer == nil {
		return "", Mark(errors.New("view: no renderer configured"), ErrRuntime)
	}

	if model.HasChildren() && !canRenderTrees(v.renderer) {
		if err := v.renderChildren(ctx, model); err != nil {
			return "", err
		}
	}

	out, err := v.renderer.RenderModel(ctx, model)
	if err != nil {
		return "", errors.Wrapf(err, "view: render %q", model.Template())
	}
	v.logger.Debug("view rendered",
		zap.String("template", model.Template()),
		zap.Int("children", len(model.Children())),
		zap.Int("bytes", len(out)),
	)
	return out, nil
}

func (v *View) renderChildren(ctx context.Context, model *Model) error {
	for _, child := range model.Children() {
		if child.IsTerminal() {
			return Mark(errors.Newf("view: child model %q is marked terminal", child.Template()), ErrDomain)
		}

		out, err := v.Render(ctx, child)
		if err != nil {
			return err
		}

		capture := child.CaptureTo()
		if capture == "" {
			continue
		}
		if child.IsAppend() {
			existing, _ := model.Variable(capture)
			model.SetVariable(capture, Stringify(existing)+out)
			continue
		}
		model.SetVariable(capture, out)
	}
	return nil
}

func canRenderTrees(renderer Renderer) bool {
	tree, ok := renderer.(TreeRenderer)
	return ok && tree.CanRenderTrees()
}

// Stringify converts a captured variable back into text for concatenation.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
