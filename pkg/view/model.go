package view

import (
	"fmt"
	"maps"
	"strings"
)

const (
	// OptionHasParent is set on child models rendered on behalf of a parent.
	OptionHasParent = "has_parent"
	// DefaultCaptureTo is the parent variable receiving a child's output.
	DefaultCaptureTo = "content"
)

// Variables holds the data handed to a template.
type Variables map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty, non-nil map.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	maps.Copy(out, v)
	return out
}

// Model is a node in a view tree: a template identifier, the variables used to
// render it, renderer options and nested child models.
type Model struct {
	template  string
	variables Variables
	options   map[string]any
	children  []*Model
	captureTo string
	append    bool
	terminal  bool
}

// NewModel builds a model for template with the given variables.
func NewModel(template string, variables Variables) *Model {
	if variables == nil {
		variables = Variables{}
	}
	return &Model{
		template:  strings.TrimSpace(template),
		variables: variables,
		options:   make(map[string]any),
		captureTo: DefaultCaptureTo,
	}
}

func (m *Model) Template() string { return m.template }

func (m *Model) SetTemplate(template string) *Model {
	m.template = strings.TrimSpace(template)
	return m
}

// Variables returns the model's variable map. Callers that intend to add keys
// for a single render should Clone it first.
func (m *Model) Variables() Variables {
	if m.variables == nil {
		m.variables = Variables{}
	}
	return m.variables
}

func (m *Model) Variable(name string) (any, bool) {
	value, ok := m.variables[name]
	return value, ok
}

func (m *Model) SetVariable(name string, value any) *Model {
	if m.variables == nil {
		m.variables = Variables{}
	}
	m.variables[name] = value
	return m
}

// Options returns a copy of the renderer options attached to the model.
func (m *Model) Options() map[string]any {
	if len(m.options) == 0 {
		return nil
	}
	return maps.Clone(m.options)
}

func (m *Model) Option(name string) (any, bool) {
	value, ok := m.options[name]
	return value, ok
}

func (m *Model) SetOption(name string, value any) *Model {
	if m.options == nil {
		m.options = make(map[string]any)
	}
	m.options[name] = value
	return m
}

// AddChild appends child to the tree. captureTo names the parent variable that
// receives the child's output; an empty value keeps the child's current
// setting. When appendOutput is true the output is concatenated onto any
// existing value instead of replacing it.
func (m *Model) AddChild(child *Model, captureTo string, appendOutput bool) *Model {
	if child == nil {
		return m
	}
	if captureTo = strings.TrimSpace(captureTo); captureTo != "" {
		child.captureTo = captureTo
	}
	child.append = appendOutput
	m.children = append(m.children, child)
	return m
}

func (m *Model) Children() []*Model {
	return m.children
}

func (m *Model) HasChildren() bool {
	return len(m.children) > 0
}

func (m *Model) CaptureTo() string { return m.captureTo }

// SetCaptureTo changes the capture variable. An empty name disables capture.
func (m *Model) SetCaptureTo(name string) *Model {
	m.captureTo = strings.TrimSpace(name)
	return m
}

func (m *Model) IsAppend() bool { return m.append }

func (m *Model) IsTerminal() bool { return m.terminal }

func (m *Model) SetTerminal(terminal bool) *Model {
	m.terminal = terminal
	return m
}

func (m *Model) String() string {
	return fmt.Sprintf("view.Model{template: %q, children: %d}", m.template, len(m.children))
}
