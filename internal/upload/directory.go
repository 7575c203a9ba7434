package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DirectoryDestination archives the SBOM into a local directory under a
// random name, so repeated runs never overwrite each other.
type DirectoryDestination struct {
	Dir string
}

func (d *DirectoryDestination) Name() string { return "directory" }

func (d *DirectoryDestination) IsConfigured() bool {
	return strings.TrimSpace(d.Dir) != ""
}

func (d *DirectoryDestination) Execute(ctx context.Context, p Payload) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create archive directory: %w", err)
	}

	src, err := os.Open(p.Path)
	if err != nil {
		return Result{}, fmt.Errorf("read SBOM: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(p.Path)
	if ext == "" {
		ext = ".json"
	}
	name := uuid.NewString() + ext
	target := filepath.Join(d.Dir, name)

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Result{}, fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return Result{}, fmt.Errorf("copy SBOM: %w", err)
	}
	if err := dst.Close(); err != nil {
		return Result{}, fmt.Errorf("close %s: %w", target, err)
	}

	return Succeeded(d.Name(), name, map[string]string{"path": target, "format": string(p.Format)}), nil
}
