package lockfiles

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/hashes"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// CargoParser reads Cargo.lock files. Registry crates carry a sha256
// checksum of the .crate archive; git and path dependencies carry none.
type CargoParser struct{}

func (p *CargoParser) Name() string                   { return "cargo" }
func (p *CargoParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.Cargo }
func (p *CargoParser) Supports(filename string) bool  { return matchName(filename, "Cargo.lock") }

type cargoLock struct {
	Package []struct {
		Name     string `toml:"name"`
		Version  string `toml:"version"`
		Checksum string `toml:"checksum"`
	} `toml:"package"`
}

func (p *CargoParser) Parse(path string) []model.PackageHash {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock cargoLock
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil
	}

	var out []model.PackageHash
	for _, pkg := range lock.Package {
		if pkg.Name == "" || pkg.Version == "" || pkg.Checksum == "" {
			continue
		}
		value, err := hashes.NormalizeDigest(model.SHA256, pkg.Checksum)
		if err != nil {
			continue
		}
		out = append(out, model.PackageHash{
			Name:         pkg.Name,
			Version:      pkg.Version,
			Algorithm:    model.SHA256,
			Value:        value,
			ArtifactType: "crate",
		})
	}
	return out
}
