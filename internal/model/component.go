package model

// Component is the view of one SBOM component that the reconciler and the
// document writers work on. Ref points back into the document it was read
// from; writers use it to store changes.
type Component struct {
	Name    string // Package name as written in the SBOM
	Version string // Exact version string
	PURL    string // Package URL, if present
	Type    string // "library", "application", ...
	Hashes  []Hash

	Ref int // index of the element inside the source document
}

// HashFor returns the attached hash for an algorithm, if any.
func (c *Component) HashFor(alg HashAlgorithm) (Hash, int, bool) {
	for i, h := range c.Hashes {
		if h.Algorithm == alg {
			return h, i, true
		}
	}
	return Hash{}, -1, false
}
