package ecosystem

import "strings"

// Normalize returns the canonical form of a package name within an ecosystem,
// so that names differing only in case or separator compare equal:
//   - PyPI:  lowercase, '-' and '.' become '_'   ("Zope.Interface" -> "zope_interface")
//   - Cargo: lowercase, '-' becomes '_'          ("serde-json" -> "serde_json")
//   - other: lowercase only                      ("@Types/Node" -> "@types/node")
//
// Normalize is total and idempotent.
func Normalize(name string, eco Ecosystem) string {
	rule := Lookup(eco).rule
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b >= 'A' && b <= 'Z' {
			b += 32
		}
		switch rule {
		case collapseDashAndDot:
			if b == '-' || b == '.' {
				b = '_'
			}
		case collapseDash:
			if b == '-' {
				b = '_'
			}
		}
		result = append(result, b)
	}
	// Non-ASCII letters still need folding.
	return strings.ToLower(string(result))
}

// Key is the identity used to match lockfile records with SBOM components:
// the normalized name plus the exact version string.
type Key struct {
	Name    string
	Version string
}

// KeyOf builds the matching key for a (name, version) pair.
func KeyOf(name, version string, eco Ecosystem) Key {
	return Key{Name: Normalize(name, eco), Version: version}
}

func (k Key) String() string {
	return k.Name + "@" + k.Version
}
