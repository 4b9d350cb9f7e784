package view_test

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pongoview/pkg/view"
)

type flatRenderer struct {
	calls []string
	trees bool
}

func (r *flatRenderer) Engine() any { return r }

func (r *flatRenderer) Render(_ context.Context, name string, values view.Variables) (string, error) {
	r.calls = append(r.calls, name)
	return fmt.Sprintf("<%s:%s>", name, view.Stringify(values["content"])), nil
}

func (r *flatRenderer) RenderModel(ctx context.Context, model *view.Model) (string, error) {
	return r.Render(ctx, model.Template(), model.Variables())
}

func (r *flatRenderer) CanRenderTrees() bool { return r.trees }

func TestView_RendersChildrenForFlatRenderer(t *testing.T) {
	renderer := &flatRenderer{}
	v := view.New(view.WithRenderer(renderer))

	layout := view.NewModel("layout", nil)
	layout.AddChild(view.NewModel("header", nil), "", false)
	layout.AddChild(view.NewModel("body", nil), "", true)

	out, err := v.Render(context.Background(), layout)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if want := "<layout:<header:><body:>>"; out != want {
		t.Fatalf("unexpected output\nwant: %q\n got: %q", want, out)
	}
	if diff := cmp.Diff([]string{"header", "body", "layout"}, renderer.calls); diff != "" {
		t.Fatalf("render order mismatch (-want +got):\n%s", diff)
	}
}

func TestView_ReplaceCaptureOverwrites(t *testing.T) {
	renderer := &flatRenderer{}
	v := view.New(view.WithRenderer(renderer))

	layout := view.NewModel("layout", view.Variables{"content": "seed"})
	layout.AddChild(view.NewModel("a", nil), "", false)
	layout.AddChild(view.NewModel("b", nil), "", false)

	out, err := v.Render(context.Background(), layout)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := "<layout:<b:>>"; out != want {
		t.Fatalf("want %q, got %q", want, out)
	}
}

func TestView_TreeRendererReceivesUnrenderedChildren(t *testing.T) {
	renderer := &flatRenderer{trees: true}
	v := view.New(view.WithRenderer(renderer))

	layout := view.NewModel("layout", nil)
	layout.AddChild(view.NewModel("child", nil), "", false)

	if _, err := v.Render(context.Background(), layout); err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff([]string{"layout"}, renderer.calls); diff != "" {
		t.Fatalf("tree renderer should own children (-want +got):\n%s", diff)
	}
}

func TestView_TerminalChildIsDomainError(t *testing.T) {
	v := view.New(view.WithRenderer(&flatRenderer{}))

	layout := view.NewModel("layout", nil)
	layout.AddChild(view.NewModel("child", nil).SetTerminal(true), "", false)

	_, err := v.Render(context.Background(), layout)
	if !errors.Is(err, view.ErrDomain) {
		t.Fatalf("expected domain error, got %v", err)
	}
}

func TestView_RequiresRendererAndModel(t *testing.T) {
	if _, err := view.New().Render(context.Background(), view.NewModel("x", nil)); !errors.Is(err, view.ErrRuntime) {
		t.Fatalf("expected runtime error without renderer, got %v", err)
	}
	v := view.New(view.WithRenderer(&flatRenderer{}))
	if _, err := v.Render(context.Background(), nil); !errors.Is(err, view.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for nil model, got %v", err)
	}
}

func TestDecodeModel(t *testing.T) {
	doc := strings.TrimSpace(`
template: layout/layout
variables:
  title: Home
options:
  can_render_trees: false
children:
  - template: home/index
    variables:
      items: [a, b]
  - template: partials/sidebar
    capture_to: sidebar
    append: true
  - template: partials/hidden
    capture_to: ""
`)

	model, err := view.DecodeModel([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if model.Template() != "layout/layout" {
		t.Fatalf("template mismatch: %q", model.Template())
	}
	if got, _ := model.Variable("title"); got != "Home" {
		t.Fatalf("title mismatch: %v", got)
	}
	if got, _ := model.Option("can_render_trees"); got != false {
		t.Fatalf("option mismatch: %v", got)
	}

	children := model.Children()
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}

	type childSummary struct {
		Template  string
		CaptureTo string
		Append    bool
	}
	got := make([]childSummary, 0, len(children))
	for _, child := range children {
		got = append(got, childSummary{child.Template(), child.CaptureTo(), child.IsAppend()})
	}
	want := []childSummary{
		{"home/index", "content", false},
		{"partials/sidebar", "sidebar", true},
		{"partials/hidden", "", false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("children mismatch (-want +got):\n%s", diff)
	}

	items, _ := children[0].Variable("items")
	if diff := cmp.Diff([]any{"a", "b"}, items); diff != "" {
		t.Fatalf("child variables mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeAndLoadModelErrors(t *testing.T) {
	_, err := view.DecodeModel([]byte("template: [unclosed"))
	if err == nil || !strings.HasPrefix(err.Error(), "view: decode model") {
		t.Fatalf("expected wrapped decode error, got %v", err)
	}

	_, err = view.LoadModel(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist cause to survive wrapping, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "view: read model") {
		t.Fatalf("expected read prefix, got %v", err)
	}
}

func TestModelContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := view.ModelFrom(ctx); ok {
		t.Fatalf("expected no model in a bare context")
	}
	model := view.NewModel("page", nil)
	got, ok := view.ModelFrom(view.WithModel(ctx, model))
	if !ok || got != model {
		t.Fatalf("expected the stored model, got %v", got)
	}
}

func TestVariablesClone(t *testing.T) {
	var nilVars view.Variables
	if clone := nilVars.Clone(); clone == nil {
		t.Fatalf("clone of nil should be non-nil")
	}

	src := view.Variables{"a": 1}
	clone := src.Clone()
	clone["b"] = 2
	if _, ok := src["b"]; ok {
		t.Fatalf("clone shares storage with source")
	}
}
