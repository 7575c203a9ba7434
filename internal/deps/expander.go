package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/StinkyLord/sbom-enricher/internal/model"
	"github.com/StinkyLord/sbom-enricher/internal/registry"
)

// ErrTreeUnavailable is returned by an expander that cannot obtain a
// dependency tree for a lockfile. Callers move on to the next expander.
var ErrTreeUnavailable = errors.New("dependency tree unavailable")

// Expander discovers the transitive dependencies behind a lockfile.
type Expander interface {
	Name() string
	Supports(lockfile string) bool
	CanExpand() bool
	Expand(ctx context.Context, lockfile string) ([]model.DiscoveredDependency, error)
}

// Registry holds expanders in the order they are tried.
type Registry struct {
	inner *registry.Registry[Expander]
}

// NewRegistry creates an empty expander registry.
func NewRegistry() *Registry {
	return &Registry{inner: registry.New[Expander]()}
}

// Register appends an expander.
func (r *Registry) Register(e Expander) {
	r.inner.Register(e, 0)
}

// For returns the expanders that support lockfile and can run here, in
// registration order.
func (r *Registry) For(lockfile string) []Expander {
	return r.inner.Filter(func(e Expander) bool {
		return e.Supports(lockfile) && e.CanExpand()
	})
}

// List returns every registered expander.
func (r *Registry) List() []Expander {
	return r.inner.List()
}

// Detect lists the files directly inside dir that some expander supports.
// Requirements files come first since they carry the direct dependency
// names; the rest are sorted by name.
func (r *Registry) Detect(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		for _, x := range r.inner.List() {
			if x.Supports(path) {
				found = append(found, path)
				break
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		ri, rj := isRequirementsFile(filepath.Base(found[i])), isRequirementsFile(filepath.Base(found[j]))
		if ri != rj {
			return ri
		}
		return found[i] < found[j]
	})
	return found
}
