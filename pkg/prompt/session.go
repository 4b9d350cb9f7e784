package prompt

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-pongoview/pkg/view"
)

// ChooseTemplate asks the user to pick one of names.
func ChooseTemplate(ctx context.Context, d Driver, names []string) (string, error) {
	if len(names) == 0 {
		return "", view.Mark(errors.New("prompt: no templates to choose from"), view.ErrInvalidArgument)
	}
	idx, err := d.Select(ctx, SelectConfig{
		Message:  "Template",
		Options:  names,
		PageSize: 15,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(names) {
		return "", view.Mark(errors.Newf("prompt: selection %d out of range", idx), view.ErrInvalidArgument)
	}
	return names[idx], nil
}

// AskVariables prompts for name/value pairs until the user declines another
// one. Entries are added to a copy of vars.
func AskVariables(ctx context.Context, d Driver, vars view.Variables) (view.Variables, error) {
	out := vars.Clone()
	for {
		more, err := d.Confirm(ctx, ConfirmConfig{Message: "Add a variable?"})
		if err != nil {
			return nil, err
		}
		if !more {
			return out, nil
		}
		name, err := d.Input(ctx, InputConfig{
			Message:   "Name",
			Validator: requireName,
		})
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if err := requireName(name); err != nil {
			return nil, err
		}
		value, err := d.Input(ctx, InputConfig{
			Message: "Value for " + name,
			Default: view.Stringify(out[name]),
		})
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
}

func requireName(s string) error {
	if strings.TrimSpace(s) == "" {
		return view.Mark(errors.New("prompt: variable name is required"), view.ErrInvalidArgument)
	}
	return nil
}

// ListTemplates walks dirs and returns the template names ending in suffix,
// without the suffix, sorted and deduplicated. Missing dirs are skipped.
func ListTemplates(dirs []string, suffix string) ([]string, error) {
	seen := map[string]struct{}{}
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		fsys := os.DirFS(dir)
		err = fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() || !strings.HasSuffix(path, suffix) {
				return nil
			}
			seen[strings.TrimSuffix(path, suffix)] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "prompt: list templates in %q", dir)
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
