// Package config loads pongoview settings from defaults, config files,
// environment variables and explicit flags, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/logging"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PONGOVIEW"

// Section is the settings key that holds the module options.
const Section = "pongoview"

// Config carries the process-level settings plus the full merged tree.
type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	Addr     string `mapstructure:"addr"`

	// Settings is the complete merged configuration, keys lowercased.
	Settings map[string]any `mapstructure:"-"`
}

// Section returns the named top-level map, or an empty map.
func (c *Config) Section(name string) map[string]any {
	if c == nil || c.Settings == nil {
		return map[string]any{}
	}
	if section, ok := c.Settings[strings.ToLower(name)].(map[string]any); ok {
		return section
	}
	return map[string]any{}
}

// Option customises Load.
type Option func(*loadOptions)

type loadOptions struct {
	file     string
	dotenv   []string
	flags    *pflag.FlagSet
	logger   *zap.Logger
	searchIn []string
}

// WithFile reads an explicit config file. A missing file is an error.
func WithFile(path string) Option {
	return func(o *loadOptions) {
		o.file = strings.TrimSpace(path)
	}
}

// WithDotEnv loads the given .env files before reading the environment.
// Missing files are ignored. Defaults to ".env".
func WithDotEnv(paths ...string) Option {
	return func(o *loadOptions) {
		o.dotenv = paths
	}
}

// WithFlags applies flags that were explicitly set on fs, keyed by name.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *loadOptions) {
		o.flags = fs
	}
}

// WithSearchPaths lists directories searched for config.{yaml,yml,json,toml}
// when no explicit file is given. Defaults to the working directory.
func WithSearchPaths(dirs ...string) Option {
	return func(o *loadOptions) {
		o.searchIn = dirs
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *loadOptions) {
		o.logger = logger
	}
}

// envKeys maps config keys to the environment variables that override them.
var envKeys = map[string]string{
	"env":                                 EnvPrefix + "_ENV",
	"log_level":                           EnvPrefix + "_LOG_LEVEL",
	"addr":                                EnvPrefix + "_ADDR",
	Section + ".suffix":                   EnvPrefix + "_SUFFIX",
	Section + ".template_path_stack":      EnvPrefix + "_TEMPLATE_PATH_STACK",
	Section + ".auto_reload":              EnvPrefix + "_AUTO_RELOAD",
	Section + ".invoke_framework_helpers": EnvPrefix + "_INVOKE_FRAMEWORK_HELPERS",
	Section + ".can_render_trees":         EnvPrefix + "_CAN_RENDER_TREES",
	Section + ".theme.name":               EnvPrefix + "_THEME_NAME",
	Section + ".theme.variant":            EnvPrefix + "_THEME_VARIANT",
	Section + ".theme.manifest":           EnvPrefix + "_THEME_MANIFEST",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("addr", ":8080")

	v.SetDefault(Section+".suffix", ".twig")
	v.SetDefault(Section+".auto_reload", false)
	v.SetDefault(Section+".invoke_framework_helpers", true)
	v.SetDefault(Section+".can_render_trees", true)
}

// Load merges defaults, a config file, the environment and explicit flags.
func Load(options ...Option) (*Config, error) {
	opts := &loadOptions{dotenv: []string{".env"}, searchIn: []string{"."}}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	logger := logging.OrNop(opts.logger)

	for _, path := range opts.dotenv {
		if err := godotenv.Load(path); err == nil {
			logger.Debug("loaded .env file", zap.String("file", path))
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "config: bind env %s", env)
		}
	}

	if err := readConfigFile(v, opts, logger); err != nil {
		return nil, err
	}

	if opts.flags != nil {
		var bindErr error
		opts.flags.VisitAll(func(f *pflag.Flag) {
			if !f.Changed || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(flagKey(f.Name), f)
		})
		if bindErr != nil {
			return nil, errors.Wrap(bindErr, "config: bind flags")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	cfg.Settings = v.AllSettings()

	if !logging.IsValidLogLevel(cfg.LogLevel) {
		return nil, errors.WithHintf(
			errors.Newf("config: invalid log_level %q", cfg.LogLevel),
			"valid levels are: %s", strings.Join(logging.ValidLogLevels, ", "),
		)
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, opts *loadOptions, logger *zap.Logger) error {
	if opts.file != "" {
		v.SetConfigFile(opts.file)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "config: read %s", opts.file)
		}
		logger.Debug("loaded config file", zap.String("file", opts.file))
		return nil
	}

	for _, dir := range opts.searchIn {
		for _, ext := range [...]string{"yaml", "yml", "json", "toml"} {
			file := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(file); err != nil {
				continue
			}
			v.SetConfigFile(file)
			if err := v.ReadInConfig(); err != nil {
				logger.Warn("cannot decode config file", zap.String("file", file), zap.Error(err))
				continue
			}
			logger.Debug("loaded config file", zap.String("file", file))
			return nil
		}
	}
	return nil
}

// flagKey maps a flag name such as "template-path" or "theme.name" onto the
// config key it overrides. Names without a known top-level key land in the
// module section.
func flagKey(name string) string {
	key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	switch key {
	case "env", "log_level", "addr":
		return key
	}
	if strings.HasPrefix(key, Section+".") {
		return key
	}
	return Section + "." + key
}
