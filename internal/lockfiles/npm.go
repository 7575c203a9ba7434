package lockfiles

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/hashes"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// ---- package-lock.json / npm-shrinkwrap.json ----

// NPMParser reads package-lock.json (lockfileVersion 1, 2 and 3) and
// npm-shrinkwrap.json.
type NPMParser struct{}

func (p *NPMParser) Name() string                   { return "npm" }
func (p *NPMParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.NPM }
func (p *NPMParser) Supports(filename string) bool {
	return matchName(filename, "package-lock.json") || matchName(filename, "npm-shrinkwrap.json")
}

type npmLock struct {
	Packages     map[string]npmPackage `json:"packages"`
	Dependencies map[string]npmEntry   `json:"dependencies"`
}

// npmPackage is an entry of the flat "packages" map (lockfileVersion 2 and
// 3). Its "dependencies" are version ranges and are not decoded.
type npmPackage struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Integrity string `json:"integrity"`
	Link      bool   `json:"link"`
}

// npmEntry is a node of the nested lockfileVersion 1 "dependencies" tree.
type npmEntry struct {
	Name         string              `json:"name"`
	Version      string              `json:"version"`
	Integrity    string              `json:"integrity"`
	Link         bool                `json:"link"`
	Dependencies map[string]npmEntry `json:"dependencies"`
}

func (p *NPMParser) Parse(path string) []model.PackageHash {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lock npmLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil
	}

	c := newCollector()
	if len(lock.Packages) > 0 {
		for _, key := range sortedKeys(lock.Packages) {
			e := lock.Packages[key]
			if key == "" || e.Link {
				continue // root project or workspace symlink
			}
			name := e.Name
			if name == "" {
				name = packageNameFromPath(key)
			}
			c.addSRI(name, e.Version, e.Integrity, "tarball")
		}
		return c.out
	}

	// lockfileVersion 1 nests transitive entries.
	var walk func(deps map[string]npmEntry)
	walk = func(deps map[string]npmEntry) {
		for _, name := range sortedKeys(deps) {
			e := deps[name]
			c.addSRI(name, e.Version, e.Integrity, "tarball")
			walk(e.Dependencies)
		}
	}
	walk(lock.Dependencies)
	return c.out
}

// packageNameFromPath turns "node_modules/a/node_modules/@scope/b" into "@scope/b".
func packageNameFromPath(key string) string {
	const marker = "node_modules/"
	if i := strings.LastIndex(key, marker); i >= 0 {
		return key[i+len(marker):]
	}
	return key
}

// ---- yarn.lock ----

// YarnParser reads yarn.lock in both the classic (v1) and berry formats.
type YarnParser struct{}

func (p *YarnParser) Name() string                   { return "yarn" }
func (p *YarnParser) Ecosystem() ecosystem.Ecosystem { return ecosystem.NPM }
func (p *YarnParser) Supports(filename string) bool  { return matchName(filename, "yarn.lock") }

type yarnBlock struct {
	name      string
	version   string
	integrity string
	checksum  string
}

func (p *YarnParser) Parse(path string) []model.PackageHash {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	c := newCollector()
	var cur *yarnBlock
	flush := func() {
		if cur == nil {
			return
		}
		switch {
		case cur.integrity != "":
			c.addSRI(cur.name, cur.version, cur.integrity, "tarball")
		case cur.checksum != "":
			c.addHex(cur.name, cur.version, model.SHA512, yarnChecksum(cur.checksum), "tarball")
		}
		cur = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.HasPrefix(line, " ") {
			flush()
			if !strings.HasSuffix(trimmed, ":") {
				continue
			}
			name := yarnDescriptorName(strings.TrimSuffix(trimmed, ":"))
			if name == "" || name == "__metadata" {
				continue
			}
			cur = &yarnBlock{name: name}
			continue
		}
		if cur == nil {
			continue
		}
		// Nested maps (dependencies:) are indented further; only the
		// block's own fields matter.
		if strings.HasPrefix(line, "    ") {
			continue
		}
		key, value := yarnField(trimmed)
		switch key {
		case "version":
			cur.version = value
		case "integrity":
			cur.integrity = value
		case "checksum":
			cur.checksum = value
		}
	}
	flush()
	if scanner.Err() != nil {
		return nil
	}
	return c.out
}

// yarnDescriptorName extracts the package name from a block header such as
// `"@babel/core@^7.0.0", "@babel/core@^7.1.0"` or `"lodash@npm:^4.17.21"`.
func yarnDescriptorName(header string) string {
	first := strings.TrimSpace(strings.Split(header, ",")[0])
	first = strings.Trim(first, `"`)
	if first == "" {
		return ""
	}
	at := strings.Index(first[1:], "@")
	if at < 0 {
		return first
	}
	return first[:at+1]
}

// yarnField splits `version "1.2.3"` (v1) or `version: 1.2.3` (berry).
func yarnField(line string) (string, string) {
	key, value, ok := strings.Cut(line, " ")
	if !ok {
		return "", ""
	}
	key = strings.TrimSuffix(key, ":")
	value = strings.Trim(strings.TrimSpace(value), `"`)
	return key, value
}

// yarnChecksum strips the cache-key prefix berry adds ("10c0/<hex>").
func yarnChecksum(v string) string {
	if i := strings.LastIndex(v, "/"); i >= 0 {
		return v[i+1:]
	}
	return v
}

// collector accumulates hashes, keeping one entry per name, version and
// algorithm in encounter order.
type collector struct {
	out  []model.PackageHash
	seen map[string]bool
}

func newCollector() *collector {
	return &collector{seen: map[string]bool{}}
}

func (c *collector) add(h model.PackageHash) {
	key := h.Name + "@" + h.Version + "#" + h.Algorithm.String()
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.out = append(c.out, h)
}

func (c *collector) addSRI(name, version, integrity, artifact string) {
	if name == "" || version == "" {
		return
	}
	for _, h := range hashes.DecodeSRIList(integrity) {
		c.add(model.PackageHash{Name: name, Version: version, Algorithm: h.Algorithm, Value: h.Value, ArtifactType: artifact})
	}
}

func (c *collector) addHex(name, version string, alg model.HashAlgorithm, value, artifact string) {
	if name == "" || version == "" {
		return
	}
	value, err := hashes.NormalizeDigest(alg, value)
	if err != nil {
		return
	}
	c.add(model.PackageHash{Name: name, Version: version, Algorithm: alg, Value: value, ArtifactType: artifact})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
