package hashes

import (
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// Candidate is one artifact hash offered for a package version.
type Candidate struct {
	Hash model.PackageHash
	// Universal marks platform-agnostic builds (pure-Python wheels and the like).
	Universal bool
}

// SelectBest picks one candidate: a universal build if any, else a build of
// the ecosystem's preferred artifact kind, else the first candidate. Ties
// always go to the earlier candidate, so the result depends only on the order
// the parser supplied them in.
func SelectBest(cands []Candidate, eco ecosystem.Ecosystem) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	for _, c := range cands {
		if c.Universal {
			return c, true
		}
	}
	preferred := ecosystem.Lookup(eco).PreferredArtifact
	if preferred != "" {
		for _, c := range cands {
			if c.Hash.ArtifactType == preferred {
				return c, true
			}
		}
	}
	return cands[0], true
}

// IsUniversalWheel reports whether a wheel file name is tagged
// platform-independent ("...-py3-none-any.whl").
func IsUniversalWheel(filename string) bool {
	lname := strings.ToLower(filename)
	return strings.HasSuffix(lname, ".whl") && strings.HasSuffix(strings.TrimSuffix(lname, ".whl"), "-none-any")
}

// ArtifactTypeOf guesses the artifact kind from a Python distribution file name.
func ArtifactTypeOf(filename string) string {
	lname := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lname, ".whl"):
		return "wheel"
	case strings.HasSuffix(lname, ".tar.gz"), strings.HasSuffix(lname, ".zip"), strings.HasSuffix(lname, ".tar.bz2"):
		return "sdist"
	case strings.HasSuffix(lname, ".egg"):
		return "egg"
	default:
		return ""
	}
}
