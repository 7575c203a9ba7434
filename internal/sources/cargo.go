package sources

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// CargoSource reads authors and license from Cargo.toml.
type CargoSource struct{}

func (s *CargoSource) Name() string  { return "cargo-toml" }
func (s *CargoSource) Priority() int { return 32 }

func (s *CargoSource) Supports(sctx Context) bool {
	return sctx.fileExists("Cargo.toml")
}

type cargoManifest struct {
	Package struct {
		Authors []string `toml:"authors"`
		// license may be inherited from the workspace ({workspace = true}).
		License any `toml:"license"`
	} `toml:"package"`
	Workspace struct {
		Package struct {
			Authors []string `toml:"authors"`
			License string   `toml:"license"`
		} `toml:"package"`
	} `toml:"workspace"`
}

func (s *CargoSource) Fetch(_ context.Context, sctx Context) (*model.MetadataRecord, error) {
	path := sctx.Path("Cargo.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc cargoManifest
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	rec := &model.MetadataRecord{Source: s.Name()}
	authors := doc.Package.Authors
	if len(authors) == 0 {
		authors = doc.Workspace.Package.Authors
	}
	for _, a := range authors {
		if c := parsePerson(a); c.HasData() {
			rec.Authors = appendContact(rec.Authors, c)
		}
	}

	license := doc.Workspace.Package.License
	if s, ok := doc.Package.License.(string); ok {
		license = s
	}
	if license = strings.TrimSpace(license); license != "" {
		rec.Licenses = []model.License{model.StringLicense(license)}
	}
	return rec, nil
}
