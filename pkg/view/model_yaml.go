package view

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type modelDocument struct {
	Template  string          `yaml:"template"`
	Variables map[string]any  `yaml:"variables"`
	Options   map[string]any  `yaml:"options"`
	CaptureTo *string         `yaml:"capture_to"`
	Append    bool            `yaml:"append"`
	Terminal  bool            `yaml:"terminal"`
	Children  []modelDocument `yaml:"children"`
}

// DecodeModel builds a model tree from a YAML description:
//
//	template: layout/layout
//	variables: {title: Home}
//	children:
//	  - template: home/index
//	    capture_to: content
func DecodeModel(data []byte) (*Model, error) {
	var doc modelDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "view: decode model")
	}
	return doc.build(), nil
}

// LoadModel reads and decodes a YAML model description from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "view: read model")
	}
	return DecodeModel(data)
}

func (d modelDocument) build() *Model {
	model := NewModel(d.Template, Variables(d.Variables))
	for key, value := range d.Options {
		model.SetOption(key, value)
	}
	model.SetTerminal(d.Terminal)
	for _, childDoc := range d.Children {
		child := childDoc.build()
		captureTo := ""
		if childDoc.CaptureTo != nil {
			captureTo = *childDoc.CaptureTo
			if captureTo == "" {
				child.SetCaptureTo("")
			}
		}
		model.AddChild(child, captureTo, childDoc.Append)
	}
	return model
}
