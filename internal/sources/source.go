// Package sources implements the metadata sources consulted during
// augmentation. Each source declares a priority and a capability check; the
// collector walks the applicable ones in priority order.
package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/model"
	"github.com/StinkyLord/sbom-enricher/internal/registry"
)

// Recognised Context.Config keys. Other keys are ignored.
const (
	KeyToken         = "token"
	KeyComponentID   = "component_id"
	KeyAPIBaseURL    = "api_base_url"
	KeyLocalConfig   = "local_config"
	KeyComponentName = "component_name"
	KeyEcosystem     = "ecosystem"
	KeyCatalogFile   = "catalog_file"
)

// Source is a metadata source. Supports must not fail: missing configuration
// makes it return false. Fetch returns nil when the source has nothing to say.
type Source interface {
	Name() string
	Priority() int
	Supports(sctx Context) bool
	Fetch(ctx context.Context, sctx Context) (*model.MetadataRecord, error)
}

// Context is passed to every Supports/Fetch call.
type Context struct {
	WorkDir string
	Config  map[string]string
}

// Get returns a trimmed config value.
func (c Context) Get(key string) string {
	return strings.TrimSpace(c.Config[key])
}

// Path resolves a file name relative to the working directory.
func (c Context) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.WorkDir, name)
}

// fileExists reports whether name exists as a regular file under the working
// directory.
func (c Context) fileExists(name string) bool {
	info, err := os.Stat(c.Path(name))
	return err == nil && !info.IsDir()
}

// Registry orders sources by priority.
type Registry struct {
	inner *registry.Registry[Source]
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{inner: registry.New[Source]()}
}

// Register adds a source under its own priority.
func (r *Registry) Register(s Source) {
	r.inner.Register(s, s.Priority())
}

// Applicable returns the sources supporting sctx in priority order. A source
// whose Supports panics is left out.
func (r *Registry) Applicable(sctx Context) []Source {
	return r.inner.Filter(func(s Source) bool {
		ok, _ := Supports(s, sctx)
		return ok
	})
}

// Supports calls s.Supports and turns a panic into an error.
func Supports(s Source, sctx Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("source %s capability check panicked: %v", s.Name(), r)
		}
	}()
	return s.Supports(sctx), nil
}

// List returns every source in priority order.
func (r *Registry) List() []Source {
	return r.inner.List()
}

// Default returns a registry with every built-in source registered.
func Default(opts ...Option) *Registry {
	o := applyOptions(opts)
	r := NewRegistry()
	r.Register(&LocalConfigSource{})
	r.Register(&APISource{Client: o.httpClient})
	r.Register(&PyProjectSource{})
	r.Register(&PackageJSONSource{})
	r.Register(&CargoSource{})
	r.Register(NewCatalogSource(o.cache))
	return r
}
