package lockfiles

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/hashes"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// ---- uv.lock ----

// UVParser reads uv.lock files.
type UVParser struct{}

func (p *UVParser) Name() string                   { return "uv" }
func (p *UVParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.PyPI }
func (p *UVParser) Supports(filename string) bool  { return matchName(filename, "uv.lock") }

type uvArtifact struct {
	URL      string `toml:"url"`
	Path     string `toml:"path"`
	Filename string `toml:"filename"`
	Hash     string `toml:"hash"`
}

func (a uvArtifact) fileName() string {
	switch {
	case a.Filename != "":
		return a.Filename
	case a.URL != "":
		return fileNameFromURL(a.URL)
	default:
		return fileNameFromURL(a.Path)
	}
}

type uvLock struct {
	Package []struct {
		Name    string       `toml:"name"`
		Version string       `toml:"version"`
		Sdist   *uvArtifact  `toml:"sdist"`
		Wheels  []uvArtifact `toml:"wheels"`
	} `toml:"package"`
}

func (p *UVParser) Parse(path string) []model.PackageHash {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock uvLock
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil
	}

	var out []model.PackageHash
	for _, pkg := range lock.Package {
		if pkg.Name == "" || pkg.Version == "" {
			continue
		}
		var files []pythonFile
		for _, w := range pkg.Wheels {
			files = append(files, pythonFile{Filename: w.fileName(), Hash: w.Hash})
		}
		if pkg.Sdist != nil {
			files = append(files, pythonFile{Filename: pkg.Sdist.fileName(), Hash: pkg.Sdist.Hash})
		}
		if h, ok := bestPythonHash(pkg.Name, pkg.Version, files); ok {
			out = append(out, h)
		}
	}
	return out
}

// ---- poetry.lock ----

// PoetryParser reads poetry.lock files.
type PoetryParser struct{}

func (p *PoetryParser) Name() string                   { return "poetry" }
func (p *PoetryParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.PyPI }
func (p *PoetryParser) Supports(filename string) bool  { return matchName(filename, "poetry.lock") }

type poetryLock struct {
	Package []struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Files   []struct {
			File string `toml:"file"`
			Hash string `toml:"hash"`
		} `toml:"files"`
	} `toml:"package"`
	// Poetry < 1.2 kept hashes in a separate table keyed by package name.
	Metadata struct {
		Files map[string][]struct {
			File string `toml:"file"`
			Hash string `toml:"hash"`
		} `toml:"files"`
	} `toml:"metadata"`
}

func (p *PoetryParser) Parse(path string) []model.PackageHash {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock poetryLock
	if err := toml.Unmarshal(data, &lock); err != nil {
		return nil
	}

	var out []model.PackageHash
	for _, pkg := range lock.Package {
		if pkg.Name == "" || pkg.Version == "" {
			continue
		}
		var files []pythonFile
		for _, f := range pkg.Files {
			files = append(files, pythonFile{Filename: f.File, Hash: f.Hash})
		}
		if len(files) == 0 {
			for _, f := range lock.Metadata.Files[pkg.Name] {
				files = append(files, pythonFile{Filename: f.File, Hash: f.Hash})
			}
		}
		if h, ok := bestPythonHash(pkg.Name, pkg.Version, files); ok {
			out = append(out, h)
		}
	}
	return out
}

// ---- Pipfile.lock ----

// PipenvParser reads Pipfile.lock files. Pipenv records bare hashes without
// file names, so the first valid one is used.
type PipenvParser struct{}

func (p *PipenvParser) Name() string                   { return "pipenv" }
func (p *PipenvParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.PyPI }
func (p *PipenvParser) Supports(filename string) bool  { return matchName(filename, "Pipfile.lock") }

type pipenvEntry struct {
	Hashes  []string `json:"hashes"`
	Version string   `json:"version"`
}

func (p *PipenvParser) Parse(path string) []model.PackageHash {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock map[string]json.RawMessage
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil
	}

	var out []model.PackageHash
	seen := map[string]bool{}
	for _, section := range []string{"default", "develop"} {
		raw, ok := lock[section]
		if !ok {
			continue
		}
		var entries map[string]pipenvEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		for _, name := range sortedKeys(entries) {
			e := entries[name]
			version := strings.TrimPrefix(strings.TrimSpace(e.Version), "==")
			if version == "" {
				continue
			}
			key := name + "@" + version
			if seen[key] {
				continue
			}
			for _, h := range e.Hashes {
				alg, value, err := hashes.Decode(h)
				if err != nil {
					continue
				}
				out = append(out, model.PackageHash{Name: name, Version: version, Algorithm: alg, Value: value})
				seen[key] = true
				break
			}
		}
	}
	return out
}
