// Package ecosystem describes the package ecosystems the enricher understands:
// how each one canonicalizes package names, which PURL type it maps to, which
// artifact kind its lockfiles prefer, and which lockfiles belong to it.
package ecosystem

import "strings"

// Ecosystem is a package naming/versioning convention family.
type Ecosystem string

const (
	PyPI    Ecosystem = "pypi"
	NPM     Ecosystem = "npm"
	Cargo   Ecosystem = "cargo"
	Pub     Ecosystem = "pub"
	Generic Ecosystem = "generic"
)

// separatorRule selects how Normalize treats '-' and '.' in names.
type separatorRule int

const (
	keepSeparators separatorRule = iota
	collapseDashAndDot
	collapseDash
)

// Info describes one ecosystem.
type Info struct {
	Ecosystem Ecosystem
	PURLType  string // Package URL type (pkg:<type>/...)
	// PreferredArtifact is the artifact kind chosen when a package offers
	// several and none of them is universal (e.g. "wheel" over "sdist").
	PreferredArtifact string
	Lockfiles         []string // lockfile base names owned by this ecosystem
	Manifests         []string // manifest base names owned by this ecosystem
	rule              separatorRule
}

// Known is the built-in ecosystem database.
var Known = []Info{
	{
		Ecosystem:         PyPI,
		PURLType:          "pypi",
		PreferredArtifact: "wheel",
		Lockfiles:         []string{"uv.lock", "poetry.lock", "pipfile.lock", "requirements.txt"},
		Manifests:         []string{"pyproject.toml", "setup.cfg"},
		rule:              collapseDashAndDot,
	},
	{
		Ecosystem:         Cargo,
		PURLType:          "cargo",
		PreferredArtifact: "crate",
		Lockfiles:         []string{"cargo.lock"},
		Manifests:         []string{"cargo.toml"},
		rule:              collapseDash,
	},
	{
		Ecosystem:         NPM,
		PURLType:          "npm",
		PreferredArtifact: "tarball",
		Lockfiles:         []string{"package-lock.json", "npm-shrinkwrap.json", "yarn.lock", "pnpm-lock.yaml"},
		Manifests:         []string{"package.json"},
		rule:              keepSeparators,
	},
	{
		Ecosystem:         Pub,
		PURLType:          "pub",
		PreferredArtifact: "archive",
		Lockfiles:         []string{"pubspec.lock"},
		Manifests:         []string{"pubspec.yaml"},
		rule:              keepSeparators,
	},
}

var generic = Info{
	Ecosystem: Generic,
	PURLType:  "generic",
	rule:      keepSeparators,
}

// Lookup returns the table entry for an ecosystem. Unknown ecosystems get the
// generic entry (lowercase-only normalization, generic PURL type).
func Lookup(eco Ecosystem) Info {
	want := Ecosystem(strings.ToLower(strings.TrimSpace(string(eco))))
	for _, info := range Known {
		if info.Ecosystem == want {
			return info
		}
	}
	return generic
}

// Parse maps a free-form ecosystem name ("PyPI", "python", "rust", ...) to an
// Ecosystem. It returns Generic for anything it does not recognise.
func Parse(name string) Ecosystem {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pypi", "python", "pip", "uv", "poetry", "pipenv":
		return PyPI
	case "cargo", "rust", "crates", "crates.io":
		return Cargo
	case "npm", "node", "nodejs", "javascript", "yarn", "pnpm":
		return NPM
	case "pub", "dart", "flutter":
		return Pub
	default:
		return Generic
	}
}

// ForLockfile returns the ecosystem owning a lockfile base name, matching case
// insensitively. requirements*.txt variants belong to PyPI.
func ForLockfile(filename string) (Ecosystem, bool) {
	lname := strings.ToLower(filename)
	if strings.HasPrefix(lname, "requirements") && strings.HasSuffix(lname, ".txt") {
		return PyPI, true
	}
	for _, info := range Known {
		for _, lf := range info.Lockfiles {
			if lf == lname {
				return info.Ecosystem, true
			}
		}
	}
	return Generic, false
}

// ForManifest returns the ecosystem owning a manifest base name.
func ForManifest(filename string) (Ecosystem, bool) {
	lname := strings.ToLower(filename)
	for _, info := range Known {
		for _, m := range info.Manifests {
			if m == lname {
				return info.Ecosystem, true
			}
		}
	}
	return Generic, false
}
