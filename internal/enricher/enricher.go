// Package enricher runs the enrichment stages over a loaded SBOM document and
// aggregates what each stage did.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/StinkyLord/sbom-enricher/internal/collector"
	"github.com/StinkyLord/sbom-enricher/internal/deps"
	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/hashes"
	"github.com/StinkyLord/sbom-enricher/internal/lockfiles"
	"github.com/StinkyLord/sbom-enricher/internal/model"
	"github.com/StinkyLord/sbom-enricher/internal/sbom"
	"github.com/StinkyLord/sbom-enricher/internal/sources"
)

// Stage names.
const (
	StageAugment  = "augment"
	StageHashes   = "hashes"
	StageDiscover = "discover"
)

// AllStages lists every stage in the order Run applies them.
var AllStages = []string{StageAugment, StageHashes, StageDiscover}

// errNothingToDo marks a stage that had no input to work on.
var errNothingToDo = errors.New("nothing to do")

// Pipeline holds everything the stages need. Nil collaborators disable the
// stage that needs them.
type Pipeline struct {
	WorkDir string

	// Augment
	Collector     *collector.Collector
	SourceContext sources.Context

	// Hashes
	Parsers   *lockfiles.Registry
	Lockfiles []string // explicit lockfiles; detected in WorkDir when empty
	Overwrite bool

	// Discover
	Expanders *deps.Registry

	Log zerolog.Logger
}

// Run applies the named stages to doc in AllStages order and returns the
// report. Stage failures are recorded in the report, never returned, so
// every requested stage gets its chance.
func (p *Pipeline) Run(ctx context.Context, doc sbom.Document, stages ...string) *Report {
	if len(stages) == 0 {
		stages = AllStages
	}
	want := map[string]bool{}
	for _, s := range stages {
		want[s] = true
	}

	rep := &Report{}
	run := func(name string, fn func(context.Context, sbom.Document, *Report) error) {
		if !want[name] {
			return
		}
		log := p.Log.With().Str("stage", name).Logger()
		log.Debug().Msg("running stage")
		err := fn(ctx, doc, rep)
		switch {
		case err == nil:
			rep.StagesUsed = append(rep.StagesUsed, name)
		case errors.Is(err, errNothingToDo):
			log.Info().Msg(err.Error())
			rep.StagesSkipped = append(rep.StagesSkipped, name)
		default:
			log.Error().Err(err).Msg("stage failed")
			rep.StagesSkipped = append(rep.StagesSkipped, name)
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", name, err))
		}
	}

	run(StageAugment, p.Augment)
	run(StageHashes, p.Hashes)
	run(StageDiscover, p.Discover)
	return rep
}

// Augment collects organizational metadata and applies it to the document.
func (p *Pipeline) Augment(ctx context.Context, doc sbom.Document, rep *Report) error {
	if p.Collector == nil {
		return fmt.Errorf("%w: no metadata sources configured", errNothingToDo)
	}
	sctx := p.SourceContext
	if sctx.WorkDir == "" {
		sctx.WorkDir = p.WorkDir
	}

	res := p.Collector.Collect(ctx, sctx)
	rep.SourcesUsed = append(rep.SourcesUsed, res.Used()...)
	rep.SourcesFailed = append(rep.SourcesFailed, res.Failed()...)
	if res.Record == nil {
		return fmt.Errorf("%w: no source produced metadata", errNothingToDo)
	}

	rep.Metadata = res.Record
	rep.FieldsApplied = doc.ApplyMetadata(res.Record)
	return nil
}

// lockfiles returns the explicit lockfiles or the ones found in WorkDir.
func (p *Pipeline) lockfiles() []string {
	if len(p.Lockfiles) > 0 {
		return p.Lockfiles
	}
	if p.Parsers == nil || p.WorkDir == "" {
		return nil
	}
	return p.Parsers.Detect(p.WorkDir)
}

// discoverInputs returns the explicit lockfiles or the files in WorkDir some
// expander supports, which include requirements files no hash parser reads.
func (p *Pipeline) discoverInputs() []string {
	if len(p.Lockfiles) > 0 {
		return p.Lockfiles
	}
	if p.WorkDir == "" {
		return nil
	}
	return p.Expanders.Detect(p.WorkDir)
}

// Hashes parses lockfiles and attaches their hashes to matching components.
func (p *Pipeline) Hashes(ctx context.Context, doc sbom.Document, rep *Report) error {
	if p.Parsers == nil {
		return fmt.Errorf("%w: no lockfile parsers", errNothingToDo)
	}
	files := p.lockfiles()
	if len(files) == 0 {
		return fmt.Errorf("%w: no lockfiles found", errNothingToDo)
	}

	comps := doc.Components()
	parsed := 0
	// Match counts are per component across all lockfiles.
	considered := map[*model.Component]bool{}
	matched := map[*model.Component]bool{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		parser, ok := p.Parsers.ForFile(path)
		if !ok {
			p.Log.Warn().Str("lockfile", path).Msg("no parser for lockfile")
			continue
		}
		found := parser.Parse(path)
		parsed++
		rep.Lockfiles = append(rep.Lockfiles, filepath.Base(path))

		eco := parser.Ecosystem()
		targets := hashes.TargetsFor(comps, eco)
		idx := hashes.Index(found, eco)
		for _, c := range targets {
			considered[c] = true
			if len(idx[ecosystem.KeyOf(c.Name, c.Version, eco)]) > 0 {
				matched[c] = true
			}
		}

		stats := hashes.Reconciler{
			Ecosystem: eco,
			Overwrite: p.Overwrite,
			Log:       p.Log.With().Str("parser", parser.Name()).Logger(),
		}.Reconcile(found, targets)
		rep.Hashes.Add(stats)

		p.Log.Info().
			Str("parser", parser.Name()).
			Str("lockfile", filepath.Base(path)).
			Int("candidates", stats.Candidates).
			Int("added", stats.Added).
			Int("skipped", stats.Skipped).
			Msg("lockfile reconciled")
	}
	if parsed == 0 {
		return fmt.Errorf("%w: no supported lockfiles", errNothingToDo)
	}
	rep.Hashes.Matched = len(matched)
	rep.Hashes.Unmatched = len(considered) - len(matched)
	doc.SyncHashes(comps)
	return nil
}

// Discover expands lockfiles into transitive dependencies and records the
// new ones in the document. The first expander that yields a tree wins.
func (p *Pipeline) Discover(ctx context.Context, doc sbom.Document, rep *Report) error {
	if p.Expanders == nil {
		return fmt.Errorf("%w: no dependency expanders", errNothingToDo)
	}

	expanded := false
	var found []model.DiscoveredDependency
	for _, lockfile := range p.discoverInputs() {
		for _, e := range p.Expanders.For(lockfile) {
			log := p.Log.With().Str("expander", e.Name()).Str("lockfile", filepath.Base(lockfile)).Logger()
			got, err := e.Expand(ctx, lockfile)
			if errors.Is(err, deps.ErrTreeUnavailable) {
				log.Debug().Err(err).Msg("no tree")
				continue
			}
			if err != nil {
				log.Warn().Err(err).Msg("expansion failed")
				rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %s: %v", StageDiscover, e.Name(), err))
				continue
			}
			log.Info().Int("discovered", len(got)).Msg("dependencies discovered")
			found = append(found, got...)
			expanded = true
			break
		}
	}
	if !expanded {
		return fmt.Errorf("%w: no dependency tree available", errNothingToDo)
	}

	found = dedupe(found)
	rep.Dependencies = found
	rep.DependenciesAdded = doc.AddDependencies(found)
	return nil
}

// dedupe drops repeated identities across lockfiles, keeping the first.
func dedupe(found []model.DiscoveredDependency) []model.DiscoveredDependency {
	seen := map[ecosystem.Key]bool{}
	out := found[:0:0]
	for _, d := range found {
		if seen[d.Key()] {
			continue
		}
		seen[d.Key()] = true
		out = append(out, d)
	}
	return out
}
