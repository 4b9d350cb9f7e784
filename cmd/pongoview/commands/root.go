// Package commands implements the pongoview CLI.
package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/config"
	"github.com/goliatone/go-pongoview/pkg/engine"
	"github.com/goliatone/go-pongoview/pkg/logging"
	"github.com/goliatone/go-pongoview/pkg/service"
)

// rootOptions holds flags shared by every subcommand. configFlags override
// configuration keys and are handed to config.Load as they are.
type rootOptions struct {
	configFile  string
	dotenv      []string
	configFlags *pflag.FlagSet
}

// NewRootCommand builds the pongoview command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{configFlags: pflag.NewFlagSet("config", pflag.ContinueOnError)}

	cmd := &cobra.Command{
		Use:   "pongoview",
		Short: "Render pongo2 view models from the command line or over HTTP",
		Long: `pongoview renders view model trees through pongo2 templates.

Configuration is read from config.{yaml,yml,json,toml}, PONGOVIEW_* environment
variables and the flags below, in increasing order of precedence.

Examples:
  pongoview render home --var title=Home
  pongoview render --model page.yaml
  pongoview render -i
  pongoview serve --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default: search ./config.*)")
	flags.StringSliceVar(&opts.dotenv, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")

	cf := opts.configFlags
	cf.String("log-level", "info", "log level (debug, info, warn, error, dpanic, panic, fatal)")
	cf.String("env", "dev", "environment name (dev, prod)")
	cf.String("addr", ":8080", "address serve listens on")
	cf.StringSlice("template-path-stack", nil, "template directories, searched in order")
	cf.String("suffix", engine.DefaultSuffix, "template file suffix")
	cf.Bool("auto-reload", false, "reload templates when files change")
	cf.Bool("can-render-trees", true, "render child models inside the renderer")
	cf.Bool("invoke-framework-helpers", true, "expose framework helpers to templates")
	flags.AddFlagSet(cf)

	cmd.AddCommand(newRenderCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	return cmd
}

// app is the wired state a subcommand runs with.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	services *service.ServiceManager
	module   service.ModuleOptions
}

func (o *rootOptions) setup(extra ...service.BootstrapOption) (*app, error) {
	cfg, err := config.Load(
		config.WithFile(o.configFile),
		config.WithDotEnv(o.dotenv...),
		config.WithFlags(o.configFlags),
	)
	if err != nil {
		return nil, err
	}

	logger, err := logging.BuildLogger(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}

	module, err := service.DecodeModuleOptions(cfg.Section(config.Section))
	if err != nil {
		return nil, err
	}

	options := append([]service.BootstrapOption{service.WithLogger(logger)}, extra...)
	return &app{
		cfg:      cfg,
		logger:   logger,
		services: service.Bootstrap(cfg, options...),
		module:   module,
	}, nil
}

// close releases the template watcher, if one was started.
func (a *app) close() {
	if a.services.Built(service.EnvironmentService) {
		if env, err := service.Lookup[*engine.Environment](a.services, service.EnvironmentService); err == nil {
			if err := env.Close(); err != nil {
				a.logger.Warn("close environment", zap.Error(err))
			}
		}
	}
	_ = a.logger.Sync()
}
