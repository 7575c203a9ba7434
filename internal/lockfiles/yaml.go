package lockfiles

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// ---- pnpm-lock.yaml ----

// PNPMParser reads pnpm-lock.yaml (lockfile v5 through v9).
type PNPMParser struct{}

func (p *PNPMParser) Name() string                   { return "pnpm" }
func (p *PNPMParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.NPM }
func (p *PNPMParser) Supports(filename string) bool  { return matchName(filename, "pnpm-lock.yaml") }

type pnpmLock struct {
	Packages map[string]struct {
		Name       string `yaml:"name"`
		Version    string `yaml:"version"`
		Resolution struct {
			Integrity string `yaml:"integrity"`
		} `yaml:"resolution"`
	} `yaml:"packages"`
}

func (p *PNPMParser) Parse(path string) []model.PackageHash {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock pnpmLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil
	}

	c := newCollector()
	for _, key := range sortedKeys(lock.Packages) {
		pkg := lock.Packages[key]
		name, version := pnpmKey(key)
		if pkg.Name != "" {
			name = pkg.Name
		}
		if pkg.Version != "" {
			version = pkg.Version
		}
		c.addSRI(name, version, pkg.Resolution.Integrity, "tarball")
	}
	return c.out
}

// pnpmKey splits a packages key. Supported shapes:
//
//	/lodash/4.17.21            (v5)
//	/@scope/pkg/1.0.0_peer@2   (v5 with peer suffix)
//	/lodash@4.17.21            (v6)
//	lodash@4.17.21(peer@2)     (v9)
func pnpmKey(key string) (string, string) {
	key = strings.TrimPrefix(key, "/")
	if i := strings.IndexByte(key, '('); i >= 0 {
		key = key[:i]
	}
	scope := 0
	if strings.HasPrefix(key, "@") {
		slash := strings.IndexByte(key, '/')
		if slash < 0 {
			return "", ""
		}
		scope = slash + 1
	}
	i := strings.IndexAny(key[scope:], "@/")
	if i <= 0 {
		return "", ""
	}
	i += scope
	name, version := key[:i], key[i+1:]
	if key[i] == '/' {
		if j := strings.IndexByte(version, '_'); j >= 0 {
			version = version[:j]
		}
	}
	return name, version
}

// ---- pubspec.lock ----

// PubParser reads Dart pubspec.lock files. Hosted packages carry the sha256
// of the published archive; sdk, path and git packages carry none.
type PubParser struct{}

func (p *PubParser) Name() string                   { return "pub" }
func (p *PubParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.Pub }
func (p *PubParser) Supports(filename string) bool  { return matchName(filename, "pubspec.lock") }

type pubLock struct {
	Packages map[string]struct {
		Version     string    `yaml:"version"`
		Source      string    `yaml:"source"`
		Description yaml.Node `yaml:"description"`
	} `yaml:"packages"`
}

func (p *PubParser) Parse(path string) []model.PackageHash {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock pubLock
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil
	}

	c := newCollector()
	for _, name := range sortedKeys(lock.Packages) {
		pkg := lock.Packages[name]
		if pkg.Description.Kind != yaml.MappingNode {
			continue // sdk packages describe themselves with a plain string
		}
		var desc struct {
			SHA256 string `yaml:"sha256"`
		}
		if err := pkg.Description.Decode(&desc); err != nil || desc.SHA256 == "" {
			continue
		}
		c.addHex(name, pkg.Version, model.SHA256, desc.SHA256, "archive")
	}
	return c.out
}
