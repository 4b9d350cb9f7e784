package engine

import (
	"bytes"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/flosch/pongo2/v6"
)

// ErrTemplateNotFound is returned by loaders when no source matches a name.
var ErrTemplateNotFound = errors.New("engine: template not found")

// Checker answers whether a template name can be loaded.
type Checker interface {
	Exists(name string) bool
}

// ChainLoader consults its loaders in order and returns the first template
// source found. Names are root-relative: the base template passed to Abs is
// ignored so includes and extends resolve the same way top-level loads do.
type ChainLoader struct {
	mu      sync.RWMutex
	loaders []pongo2.TemplateLoader
	aliases map[string]string
	suffix  string
}

var (
	_ pongo2.TemplateLoader = (*ChainLoader)(nil)
	_ Checker               = (*ChainLoader)(nil)
)

// NewChainLoader creates a chain over loaders. suffix is tried as a fallback
// for names given without it (".twig" lets "home/index" match "home/index.twig").
func NewChainLoader(suffix string, loaders ...pongo2.TemplateLoader) *ChainLoader {
	chain := &ChainLoader{
		aliases: make(map[string]string),
		suffix:  normalizeSuffix(suffix),
	}
	for _, loader := range loaders {
		chain.Add(loader)
	}
	return chain
}

// Add appends loader to the end of the chain.
func (c *ChainLoader) Add(loader pongo2.TemplateLoader) {
	if loader == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaders = append(c.loaders, loader)
}

// Alias makes name resolve to target. Later aliases replace earlier ones.
func (c *ChainLoader) Alias(name, target string) {
	name = cleanName(name)
	target = cleanName(target)
	if name == "" || target == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aliases[c.trimSuffix(name)] = target
}

// Loaders returns a copy of the configured loaders in lookup order.
func (c *ChainLoader) Loaders() []pongo2.TemplateLoader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]pongo2.TemplateLoader(nil), c.loaders...)
}

func (c *ChainLoader) Suffix() string {
	return c.suffix
}

// Abs implements pongo2.TemplateLoader.
func (c *ChainLoader) Abs(_, name string) string {
	return cleanName(name)
}

// Get implements pongo2.TemplateLoader.
func (c *ChainLoader) Get(name string) (io.Reader, error) {
	c.mu.RLock()
	loaders := append([]pongo2.TemplateLoader(nil), c.loaders...)
	candidates := c.candidates(name)
	c.mu.RUnlock()

	for _, candidate := range candidates {
		for _, loader := range loaders {
			data, err := readFrom(loader, candidate)
			if err != nil {
				continue
			}
			return bytes.NewReader(data), nil
		}
	}
	return nil, errors.Wrapf(ErrTemplateNotFound, "engine: %q", name)
}

// Exists reports whether any loader in the chain can supply name.
func (c *ChainLoader) Exists(name string) bool {
	if cleanName(name) == "" {
		return false
	}
	_, err := c.Get(name)
	return err == nil
}

func (c *ChainLoader) candidates(name string) []string {
	name = cleanName(name)
	if name == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{}, 4)
	add := func(candidate string) {
		if candidate == "" {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	withSuffix := func(candidate string) {
		add(candidate)
		if c.suffix != "" && !strings.HasSuffix(candidate, c.suffix) {
			add(candidate + c.suffix)
		}
	}

	if target, ok := c.aliases[c.trimSuffix(name)]; ok {
		withSuffix(target)
	}
	withSuffix(name)
	return out
}

func (c *ChainLoader) trimSuffix(name string) string {
	if c.suffix == "" {
		return name
	}
	return strings.TrimSuffix(name, c.suffix)
}

// MapLoader serves templates from an explicit name to file path map.
type MapLoader struct {
	mu    sync.RWMutex
	paths map[string]string
}

var _ pongo2.TemplateLoader = (*MapLoader)(nil)

func NewMapLoader(paths map[string]string) *MapLoader {
	loader := &MapLoader{paths: make(map[string]string, len(paths))}
	for name, file := range paths {
		loader.Set(name, file)
	}
	return loader
}

// Set maps name to file, replacing any previous mapping.
func (m *MapLoader) Set(name, file string) {
	name = cleanName(name)
	file = strings.TrimSpace(file)
	if name == "" || file == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[name] = file
}

func (m *MapLoader) Abs(_, name string) string {
	return cleanName(name)
}

func (m *MapLoader) Get(name string) (io.Reader, error) {
	m.mu.RLock()
	file, ok := m.paths[cleanName(name)]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrTemplateNotFound, "engine: %q not in template map", name)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "engine: read mapped template %q", name)
	}
	return bytes.NewReader(data), nil
}

func readFrom(loader pongo2.TemplateLoader, name string) ([]byte, error) {
	r, err := loader.Get(loader.Abs("", name))
	if err != nil {
		return nil, err
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}
	return io.ReadAll(r)
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if path.IsAbs(name) || isWindowsAbs(name) {
		return name
	}
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if cleaned == "." {
		return ""
	}
	return strings.TrimPrefix(cleaned, "./")
}

func isWindowsAbs(name string) bool {
	return len(name) > 2 && name[1] == ':' && (name[2] == '\\' || name[2] == '/')
}

func normalizeSuffix(ext string) string {
	trimmed := strings.TrimSpace(ext)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, ".") {
		trimmed = "." + trimmed
	}
	return trimmed
}
