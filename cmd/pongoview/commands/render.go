package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/prompt"
	"github.com/goliatone/go-pongoview/pkg/service"
	"github.com/goliatone/go-pongoview/pkg/view"
)

type renderOptions struct {
	model       string
	vars        []string
	output      string
	interactive bool
	driver      prompt.Driver
}

func newRenderCommand(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template or a YAML view model",
		Long: `Render a template by name, or a view model tree described in YAML.

Variables given with --var are added to the root model and override the
values read from --model.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "YAML view model to render")
	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "variable for the root model, as name=value (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick the template and variables interactively")
	return cmd
}

func runRender(cmd *cobra.Command, root *rootOptions, opts *renderOptions, args []string) error {
	app, err := root.setup()
	if err != nil {
		return err
	}
	defer app.close()
	ctx := cmd.Context()

	model, err := buildModel(opts, args)
	if err != nil {
		return err
	}

	if opts.interactive {
		driver := opts.driver
		if driver == nil {
			driver = prompt.NewSurveyDriver()
		}
		if model.Template() == "" {
			names, err := prompt.ListTemplates(app.module.TemplatePathStack, app.module.Suffix)
			if err != nil {
				return err
			}
			name, err := prompt.ChooseTemplate(ctx, driver, names)
			if err != nil {
				return err
			}
			model.SetTemplate(name)
		}
		vars, err := prompt.AskVariables(ctx, driver, model.Variables())
		if err != nil {
			return err
		}
		for name, value := range vars {
			model.SetVariable(name, value)
		}
	}

	if model.Template() == "" {
		return errors.WithHint(
			view.Mark(errors.New("no template to render"), view.ErrInvalidArgument),
			"pass a template name, --model or --interactive",
		)
	}

	v, err := service.View(app.services)
	if err != nil {
		return err
	}
	out, err := v.Render(ctx, model)
	if err != nil {
		return err
	}
	if out == "" {
		app.logger.Warn("nothing rendered", zap.String("template", model.Template()))
		return errors.WithHintf(
			errors.Newf("template %q produced no output", model.Template()),
			"check that it exists below one of %v", app.module.TemplatePathStack,
		)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(out), 0o644); err != nil {
			return errors.Wrapf(err, "write %s", opts.output)
		}
		app.logger.Info("rendered", zap.String("template", model.Template()), zap.String("output", opts.output))
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func buildModel(opts *renderOptions, args []string) (*view.Model, error) {
	var model *view.Model
	if opts.model != "" {
		m, err := view.LoadModel(opts.model)
		if err != nil {
			return nil, err
		}
		model = m
	} else {
		model = view.NewModel("", nil)
	}
	if len(args) > 0 {
		model.SetTemplate(args[0])
	}

	vars, err := parseVars(opts.vars)
	if err != nil {
		return nil, err
	}
	for name, value := range vars {
		model.SetVariable(name, value)
	}
	return model, nil
}

// parseVars splits name=value pairs. Later pairs win.
func parseVars(pairs []string) (view.Variables, error) {
	vars := view.Variables{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, view.Mark(errors.Newf("invalid --var %q, expected name=value", pair), view.ErrInvalidArgument)
		}
		vars[name] = value
	}
	return vars, nil
}
