package model

import "github.com/StinkyLord/sbom-enricher/internal/ecosystem"

// DiscoveredDependency is a transitive dependency found by walking a
// dependency tree. Depth counts edges from the root direct dependency, so
// every discovered dependency has Depth > 0 and a Parent.
type DiscoveredDependency struct {
	Name      string              `json:"name"`
	Version   string              `json:"version"`
	PURL      string              `json:"purl,omitempty"`
	Parent    string              `json:"parent"`
	Depth     int                 `json:"depth"`
	Ecosystem ecosystem.Ecosystem `json:"ecosystem"`
}

// Key returns the normalized identity of the dependency.
func (d DiscoveredDependency) Key() ecosystem.Key {
	return ecosystem.KeyOf(d.Name, d.Version, d.Ecosystem)
}
