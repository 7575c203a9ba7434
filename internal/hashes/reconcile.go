package hashes

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// Stats counts what a reconciliation did.
type Stats struct {
	Candidates int // lockfile hashes offered
	Matched    int // components with at least one candidate
	Unmatched  int // components with no candidate
	Added      int // hashes attached (including replacements)
	Replaced   int // existing hashes overwritten
	Skipped    int // candidates not applied because the component already had one
}

// Add accumulates another run's counts.
func (s *Stats) Add(o Stats) {
	s.Candidates += o.Candidates
	s.Matched += o.Matched
	s.Unmatched += o.Unmatched
	s.Added += o.Added
	s.Replaced += o.Replaced
	s.Skipped += o.Skipped
}

// Reconciler attaches lockfile hashes to SBOM components.
type Reconciler struct {
	Ecosystem ecosystem.Ecosystem
	// Overwrite replaces an existing hash of the same algorithm when the
	// lockfile disagrees with it.
	Overwrite bool
	Log       zerolog.Logger
}

// Index groups hashes by (normalized name, exact version), preserving order.
func Index(hashes []model.PackageHash, eco ecosystem.Ecosystem) map[ecosystem.Key][]model.PackageHash {
	idx := make(map[ecosystem.Key][]model.PackageHash, len(hashes))
	for _, h := range hashes {
		key := ecosystem.KeyOf(h.Name, h.Version, eco)
		idx[key] = append(idx[key], h)
	}
	return idx
}

// TargetsFor drops the components whose PURL names another ecosystem.
// Components without a recognisable PURL are kept.
func TargetsFor(components []*model.Component, eco ecosystem.Ecosystem) []*model.Component {
	out := make([]*model.Component, 0, len(components))
	for _, c := range components {
		if ce, ok := ecosystem.FromPURL(c.PURL); ok && ce != eco {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Reconcile matches hashes to targets by normalized name and exact version and
// attaches them. Components are modified in place; every candidate that is
// not applied is counted as skipped.
func (r Reconciler) Reconcile(hashes []model.PackageHash, targets []*model.Component) Stats {
	stats := Stats{Candidates: len(hashes)}
	idx := Index(hashes, r.Ecosystem)

	for _, comp := range targets {
		cands := idx[ecosystem.KeyOf(comp.Name, comp.Version, r.Ecosystem)]
		if len(cands) == 0 {
			stats.Unmatched++
			continue
		}
		stats.Matched++
		for _, h := range cands {
			r.apply(comp, h, &stats)
		}
	}

	r.Log.Debug().
		Int("candidates", stats.Candidates).
		Int("matched", stats.Matched).
		Int("added", stats.Added).
		Int("skipped", stats.Skipped).
		Msg("hash reconciliation done")
	return stats
}

func (r Reconciler) apply(comp *model.Component, h model.PackageHash, stats *Stats) {
	value := strings.ToLower(h.Value)
	existing, i, ok := comp.HashFor(h.Algorithm)
	switch {
	case !ok:
		comp.Hashes = append(comp.Hashes, model.Hash{Algorithm: h.Algorithm, Value: value})
		stats.Added++
	case existing.Value == value:
		stats.Skipped++
	case r.Overwrite:
		comp.Hashes[i].Value = value
		stats.Added++
		stats.Replaced++
		r.Log.Debug().Str("component", comp.Name).Str("algorithm", h.Algorithm.String()).Msg("replaced hash")
	default:
		stats.Skipped++
	}
}
