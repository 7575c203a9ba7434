package deps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// DefaultTreeFile is the pre-generated tree looked for next to a lockfile.
const DefaultTreeFile = "pipdeptree.json"

// TreeFileExpander reads a dependency tree that was generated ahead of time
// (`pipdeptree --json-tree > pipdeptree.json`). It never runs anything.
type TreeFileExpander struct {
	// FileName overrides DefaultTreeFile.
	FileName string
	Log      zerolog.Logger
}

func (e *TreeFileExpander) Name() string { return "pipdeptree-file" }

// Supports accepts every Python lockfile.
func (e *TreeFileExpander) Supports(lockfile string) bool {
	eco, ok := ecosystem.ForLockfile(filepath.Base(lockfile))
	return ok && eco == ecosystem.PyPI
}

func (e *TreeFileExpander) CanExpand() bool { return true }

func (e *TreeFileExpander) treePath(lockfile string) string {
	name := e.FileName
	if name == "" {
		name = DefaultTreeFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(lockfile), name)
}

func (e *TreeFileExpander) Expand(ctx context.Context, lockfile string) ([]model.DiscoveredDependency, error) {
	path := e.treePath(lockfile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: no %s next to %s", ErrTreeUnavailable, filepath.Base(path), filepath.Base(lockfile))
	}
	roots, err := ReadTree(path)
	if err != nil {
		return nil, err
	}

	var direct []string
	if isRequirementsFile(filepath.Base(lockfile)) {
		if direct, err = DirectNames(lockfile); err != nil {
			return nil, fmt.Errorf("cannot read direct requirements: %w", err)
		}
	}

	e.Log.Debug().Str("expander", e.Name()).Str("tree", path).Msg("parsing pre-generated dependency tree")
	return Walker{Ecosystem: ecosystem.PyPI, Log: e.Log}.Discover(roots, direct), nil
}
