// Package lockfiles extracts per-package artifact hashes from lockfiles.
//
// Parsers never fail: unreadable or malformed files produce no hashes, so the
// reconciler simply finds nothing to attach.
package lockfiles

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/hashes"
	"github.com/StinkyLord/sbom-enricher/internal/model"
	"github.com/StinkyLord/sbom-enricher/internal/registry"
)

// Parser reads one lockfile format.
type Parser interface {
	Name() string
	Ecosystem() ecosystem.Ecosystem
	Supports(filename string) bool
	Parse(path string) []model.PackageHash
}

// Registry holds parsers in registration order.
type Registry struct {
	inner *registry.Registry[Parser]
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{inner: registry.New[Parser]()}
}

// Register adds a parser after the ones already registered.
func (r *Registry) Register(p Parser) {
	r.inner.Register(p, 0)
}

// List returns the parsers in registration order.
func (r *Registry) List() []Parser {
	return r.inner.List()
}

// Get returns a parser by name.
func (r *Registry) Get(name string) (Parser, bool) {
	return r.inner.Get(name)
}

// ForFile returns the first parser that supports the base name of path.
func (r *Registry) ForFile(path string) (Parser, bool) {
	base := filepath.Base(path)
	for _, p := range r.inner.List() {
		if p.Supports(base) {
			return p, true
		}
	}
	return nil, false
}

// Detect lists the lockfiles directly inside dir that some parser supports,
// sorted by name.
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
		if _, ok := r.ForFile(e.Name()); ok {
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(found)
	return found
}

// Default returns a registry with every built-in parser.
func Default() *Registry {
	r := NewRegistry()
	r.Register(&UVParser{})
	r.Register(&PoetryParser{})
	r.Register(&PipenvParser{})
	r.Register(&CargoParser{})
	r.Register(&NPMParser{})
	r.Register(&YarnParser{})
	r.Register(&PNPMParser{})
	r.Register(&PubParser{})
	return r
}

// matchName compares a base name case-insensitively.
func matchName(filename, want string) bool {
	return strings.EqualFold(filepath.Base(filename), want)
}

// pythonFile is one distribution file offered by a Python lockfile.
type pythonFile struct {
	Filename string
	Hash     string
}

// bestPythonHash decodes the offered files and keeps the best one: a
// universal wheel, else any wheel, else the first file. Files whose hash does
// not decode are dropped.
func bestPythonHash(name, version string, files []pythonFile) (model.PackageHash, bool) {
	var cands []hashes.Candidate
	for _, f := range files {
		alg, value, err := hashes.Decode(f.Hash)
		if err != nil {
			continue
		}
		cands = append(cands, hashes.Candidate{
			Hash: model.PackageHash{
				Name:         name,
				Version:      version,
				Algorithm:    alg,
				Value:        value,
				ArtifactType: hashes.ArtifactTypeOf(f.Filename),
				Filename:     f.Filename,
			},
			Universal: hashes.IsUniversalWheel(f.Filename),
		})
	}
	best, ok := hashes.SelectBest(cands, ecosystem.PyPI)
	if !ok {
		return model.PackageHash{}, false
	}
	return best.Hash, true
}

// fileNameFromURL returns the last path element of a download URL.
func fileNameFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
