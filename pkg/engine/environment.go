package engine

import (
	"bytes"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/goliatone/go-pongoview/pkg/view"
)

// DefaultSuffix is appended to template names given without an extension.
const DefaultSuffix = ".twig"

// Option configures the environment before construction.
type Option func(*config)

type config struct {
	baseDirs    []string
	templates   []fs.FS
	templateMap map[string]string
	loader      pongo2.TemplateLoader
	suffix      string
	templateFn  map[string]any
	globalData  map[string]any
	aliases     map[string]string
	selection   *theme.Selection
	autoReload  bool
	logger      *zap.Logger
}

// WithBaseDir adds directories to the template path stack. Directories are
// consulted in the order given.
func WithBaseDir(dirs ...string) Option {
	return func(cfg *config) {
		for _, dir := range dirs {
			if dir = strings.TrimSpace(dir); dir != "" {
				cfg.baseDirs = append(cfg.baseDirs, dir)
			}
		}
	}
}

// WithFS adds an fs.FS template source, consulted after base directories.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = append(cfg.templates, files)
		}
	}
}

// WithTemplateMap maps template names to explicit files. The map is consulted
// before the path stack.
func WithTemplateMap(paths map[string]string) Option {
	return func(cfg *config) {
		if len(paths) == 0 {
			return
		}
		if cfg.templateMap == nil {
			cfg.templateMap = make(map[string]string, len(paths))
		}
		for name, file := range paths {
			cfg.templateMap[name] = file
		}
	}
}

// WithLoader replaces the default chain with a custom loader. Renderers require
// loaders that implement Checker; anything else is rejected when they first
// need to check for a template.
func WithLoader(loader pongo2.TemplateLoader) Option {
	return func(cfg *config) {
		cfg.loader = loader
	}
}

// WithExtension overrides DefaultSuffix.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		if trimmed := normalizeSuffix(ext); trimmed != "" {
			cfg.suffix = trimmed
		}
	}
}

// WithTemplateFunc registers filters (pongo2.FilterFunction values) or global
// functions when the environment loads.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithAliases makes template names resolve to other names in the chain.
func WithAliases(aliases map[string]string) Option {
	return func(cfg *config) {
		if len(aliases) == 0 {
			return
		}
		if cfg.aliases == nil {
			cfg.aliases = make(map[string]string, len(aliases))
		}
		for name, target := range aliases {
			cfg.aliases[name] = target
		}
	}
}

// WithTheme applies the template overrides declared by a go-theme selection.
// Variant templates win over manifest templates.
func WithTheme(selection *theme.Selection) Option {
	return func(cfg *config) {
		cfg.selection = selection
	}
}

// WithAutoReload drops compiled templates whenever files under the base
// directories change.
func WithAutoReload(enabled bool) Option {
	return func(cfg *config) {
		cfg.autoReload = enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Environment owns the pongo2 template set, its loader and the cache of
// compiled templates.
type Environment struct {
	mu sync.RWMutex

	templateSet *pongo2.TemplateSet
	loader      pongo2.TemplateLoader
	templates   map[string]*Template
	suffix      string
	watcher     *watcher
	logger      *zap.Logger
}

// New constructs an Environment using the provided configuration options.
func New(options ...Option) (*Environment, error) {
	cfg := &config{
		suffix: DefaultSuffix,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	loader, err := buildLoader(cfg)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		templateSet: pongo2.NewSet("pongoview", loader),
		loader:      loader,
		templates:   make(map[string]*Template),
		suffix:      cfg.suffix,
		logger:      cfg.logger,
	}
	registerDefaultFilters()

	if err := env.GlobalContext(cfg.globalData); err != nil {
		return nil, errors.Wrap(err, "engine: apply global data")
	}
	for name, fn := range cfg.templateFn {
		if err := env.registerTemplateFunc(name, fn); err != nil {
			return nil, errors.Wrapf(err, "engine: register template func %q", name)
		}
	}

	if cfg.autoReload && len(cfg.baseDirs) > 0 {
		w, err := newWatcher(env, cfg.baseDirs, cfg.logger)
		if err != nil {
			return nil, err
		}
		env.watcher = w
	}

	return env, nil
}

func buildLoader(cfg *config) (pongo2.TemplateLoader, error) {
	if cfg.loader != nil {
		return cfg.loader, nil
	}

	chain := NewChainLoader(cfg.suffix)
	if len(cfg.templateMap) > 0 {
		chain.Add(NewMapLoader(cfg.templateMap))
	}
	for _, dir := range cfg.baseDirs {
		loader, err := pongo2.NewLocalFileSystemLoader(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "engine: create local loader for %q", dir)
		}
		chain.Add(loader)
	}
	for _, files := range cfg.templates {
		chain.Add(pongo2.NewFSLoader(files))
	}
	for name, target := range cfg.aliases {
		chain.Alias(name, target)
	}
	for name, target := range themeTemplates(cfg.selection) {
		chain.Alias(name, target)
	}

	if len(chain.Loaders()) == 0 {
		return nil, errors.New("engine: need to provide a base dir, fs.FS, template map or loader")
	}
	return chain, nil
}

// Loader returns the loader templates are read through.
func (e *Environment) Loader() pongo2.TemplateLoader {
	return e.loader
}

func (e *Environment) Suffix() string {
	return e.suffix
}

// Exists reports whether the loader can supply name. Loaders that cannot
// answer existence queries always report false.
func (e *Environment) Exists(name string) bool {
	checker, ok := e.loader.(Checker)
	return ok && checker.Exists(name)
}

// Load compiles name, reusing a cached compilation when available.
func (e *Environment) Load(name string) (*Template, error) {
	if e == nil || e.templateSet == nil {
		return nil, errors.New("engine: environment is nil")
	}
	templatePath := e.templatePath(name)
	if templatePath == "" {
		return nil, errors.New("engine: template name is required")
	}

	e.mu.RLock()
	if tmpl, ok := e.templates[templatePath]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[templatePath]; ok {
		return tmpl, nil
	}

	compiled, err := e.templateSet.FromFile(templatePath)
	if err != nil {
		return nil, errors.Wrapf(err, "engine: load template %q", templatePath)
	}

	tmpl := &Template{name: templatePath, tpl: compiled, env: e}
	e.templates[templatePath] = tmpl
	e.logger.Debug("template compiled", zap.String("template", templatePath))
	return tmpl, nil
}

// RenderTemplate loads and executes name, writing the result to out as well.
func (e *Environment) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	tmpl, err := e.Load(name)
	if err != nil {
		return "", err
	}
	rendered, err := tmpl.execute(data)
	if err != nil {
		return "", err
	}
	return rendered, writeAll(rendered, out)
}

// RenderString compiles and executes inline template content.
func (e *Environment) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("engine: environment is nil")
	}

	compiled, err := e.templateSet.FromString(templateContent)
	if err != nil {
		return "", errors.Wrap(err, "engine: parse template string")
	}

	tmpl := &Template{name: "(string)", tpl: compiled, env: e}
	rendered, err := tmpl.execute(data)
	if err != nil {
		return "", err
	}
	return rendered, writeAll(rendered, out)
}

// RegisterFilter registers a filter with pongo2. Filters are process-wide in
// pongo2, so registering an existing name is an error.
func (e *Environment) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("engine: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if pongo2.FilterExists(name) {
		return errors.Newf("engine: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, filter)
}

// GlobalContext merges data into the globals visible to every template. Globals
// are read without locking while templates execute, so call it during setup.
func (e *Environment) GlobalContext(data any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("engine: environment is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals.Update(globalCtx)
	return nil
}

// Invalidate drops every compiled template so the next Load reads sources
// again.
func (e *Environment) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.templates) == 0 {
		return
	}
	e.templates = make(map[string]*Template)
	e.logger.Debug("template cache invalidated")
}

// Close stops the auto-reload watcher, if any.
func (e *Environment) Close() error {
	if e == nil || e.watcher == nil {
		return nil
	}
	return e.watcher.close()
}

func (e *Environment) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(trimmed) {
			return nil
		}
		return pongo2.RegisterFilter(trimmed, filter)
	}

	if !isCallable(fn) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals[trimmed] = fn
	return nil
}

func (e *Environment) templatePath(name string) string {
	name = cleanName(name)
	if name == "" {
		return ""
	}
	if e.suffix != "" && !strings.HasSuffix(name, e.suffix) {
		name += e.suffix
	}
	return name
}

// Template is a compiled pongo2 template bound to its environment.
type Template struct {
	name string
	tpl  *pongo2.Template
	env  *Environment
}

func (t *Template) Name() string {
	return t.name
}

// Render executes the template with vars.
func (t *Template) Render(vars view.Variables) (string, error) {
	return t.execute(vars)
}

func (t *Template) execute(data any) (string, error) {
	viewContext, err := convertToContext(data)
	if err != nil {
		return "", errors.Wrap(err, "engine: convert data")
	}

	var buf bytes.Buffer
	if err := t.tpl.ExecuteWriter(viewContext, &buf); err != nil {
		return "", errors.Wrapf(err, "engine: execute template %q", t.name)
	}
	return buf.String(), nil
}

func writeAll(rendered string, out []io.Writer) error {
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return err
		}
	}
	return nil
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}
