package ecosystem

import (
	"strings"

	"github.com/package-url/packageurl-go"
)

// PURL renders the Package URL of a package. npm scopes ("@scope/name")
// become the PURL namespace. An empty version yields a versionless PURL.
func PURL(eco Ecosystem, name, version string) string {
	info := Lookup(eco)
	namespace := ""
	if info.Ecosystem == NPM && strings.HasPrefix(name, "@") {
		if i := strings.Index(name, "/"); i > 0 {
			namespace = name[:i]
			name = name[i+1:]
		}
	}
	if info.Ecosystem == PyPI {
		// The pypi PURL type mandates lowercase names with '-' separators.
		name = strings.ReplaceAll(strings.ToLower(name), "_", "-")
	}
	return packageurl.NewPackageURL(info.PURLType, namespace, name, version, nil, "").ToString()
}

// FromPURL returns the ecosystem named by a Package URL's type. It reports
// false for unparsable PURLs and types outside the table.
func FromPURL(purl string) (Ecosystem, bool) {
	if strings.TrimSpace(purl) == "" {
		return Generic, false
	}
	p, err := packageurl.FromString(purl)
	if err != nil {
		return Generic, false
	}
	for _, info := range Known {
		if info.PURLType == strings.ToLower(p.Type) {
			return info.Ecosystem, true
		}
	}
	return Generic, false
}
