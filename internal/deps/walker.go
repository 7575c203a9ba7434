package deps

import (
	"github.com/rs/zerolog"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// Walker turns a dependency forest into discovered transitive dependencies.
type Walker struct {
	Ecosystem ecosystem.Ecosystem
	Log       zerolog.Logger
}

// Discover walks roots depth first, in the order given. A package is visited
// once per walk no matter how often it recurs in the forest, so the parent and
// depth recorded for it come from its first encounter. Roots and packages
// named in direct are never emitted, but their children are still walked.
func (w Walker) Discover(roots []*Node, direct []string) []model.DiscoveredDependency {
	directSet := make(map[string]bool, len(direct))
	for _, name := range direct {
		directSet[ecosystem.Normalize(name, w.Ecosystem)] = true
	}

	var out []model.DiscoveredDependency
	seen := map[ecosystem.Key]bool{}

	var visit func(n *Node, parent string, depth int)
	visit = func(n *Node, parent string, depth int) {
		if n == nil || n.Name == "" {
			return
		}
		key := ecosystem.KeyOf(n.Name, n.Version, w.Ecosystem)
		if seen[key] {
			return
		}
		seen[key] = true

		if depth > 0 && !directSet[key.Name] {
			out = append(out, model.DiscoveredDependency{
				Name:      n.Name,
				Version:   n.Version,
				PURL:      ecosystem.PURL(w.Ecosystem, n.Name, n.Version),
				Parent:    parent,
				Depth:     depth,
				Ecosystem: w.Ecosystem,
			})
		}
		for _, child := range n.Children {
			visit(child, n.Name, depth+1)
		}
	}

	for _, root := range roots {
		visit(root, "", 0)
	}

	w.Log.Debug().Int("roots", len(roots)).Int("discovered", len(out)).Msg("dependency walk done")
	return out
}
