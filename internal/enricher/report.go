package enricher

import (
	"fmt"
	"io"
	"strings"

	"github.com/StinkyLord/sbom-enricher/internal/hashes"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

// Report aggregates what a pipeline run did.
type Report struct {
	StagesUsed    []string
	StagesSkipped []string

	SourcesUsed   []string
	SourcesFailed []string
	Metadata      *model.MetadataRecord
	FieldsApplied []string

	Lockfiles []string
	Hashes    hashes.Stats

	Dependencies      []model.DiscoveredDependency
	DependenciesAdded int

	Errors []string
}

// Print writes a human readable summary.
func (r *Report) Print(w io.Writer) {
	if len(r.StagesUsed) > 0 {
		fmt.Fprintf(w, "Stages that ran:      %v\n", r.StagesUsed)
	}
	if len(r.StagesSkipped) > 0 {
		fmt.Fprintf(w, "Stages skipped:       %v\n", r.StagesSkipped)
	}
	if len(r.SourcesUsed) > 0 || len(r.SourcesFailed) > 0 {
		fmt.Fprintf(w, "Metadata sources:     used %v, failed %v\n", r.SourcesUsed, r.SourcesFailed)
	}
	if len(r.FieldsApplied) > 0 {
		fmt.Fprintf(w, "Metadata applied:     %s\n", strings.Join(r.FieldsApplied, ", "))
		for _, f := range r.FieldsApplied {
			if src := r.Metadata.FieldSources[f]; src != "" {
				fmt.Fprintf(w, "  %-12s from %s\n", f, src)
			}
		}
	}
	if len(r.Lockfiles) > 0 {
		h := r.Hashes
		fmt.Fprintf(w, "Lockfiles:            %s\n", strings.Join(r.Lockfiles, ", "))
		fmt.Fprintf(w, "Hashes:               %d added (%d replaced), %d skipped, %d matched, %d unmatched\n",
			h.Added, h.Replaced, h.Skipped, h.Matched, h.Unmatched)
	}
	if len(r.Dependencies) > 0 {
		fmt.Fprintf(w, "Transitive deps:      %d discovered, %d added\n", len(r.Dependencies), r.DependenciesAdded)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "Error: %s\n", e)
	}
}

// Failed reports whether any stage recorded an error.
func (r *Report) Failed() bool {
	return len(r.Errors) > 0
}
