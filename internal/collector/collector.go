// Package collector drives metadata sources: it fetches from every applicable
// source in priority order and merges the results, skipping sources that fail.
package collector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/StinkyLord/sbom-enricher/internal/model"
	"github.com/StinkyLord/sbom-enricher/internal/sources"
)

// Status is the outcome of one source during a collection.
type Status string

const (
	StatusMerged     Status = "merged"      // produced data that went into the result
	StatusEmpty      Status = "empty"       // returned nothing or a record without data
	StatusFailed     Status = "failed"      // returned an error or panicked
	StatusNotReached Status = "not-reached" // first-match mode stopped before it
)

// Outcome records what happened to one source.
type Outcome struct {
	Source string
	Status Status
	Err    error
}

// Result is the merged record (nil when no source produced data) plus one
// outcome per applicable source, in priority order.
type Result struct {
	Record   *model.MetadataRecord
	Outcomes []Outcome
}

// Used returns the names of sources whose data was merged.
func (r Result) Used() []string {
	return r.names(StatusMerged)
}

// Failed returns the names of sources that failed.
func (r Result) Failed() []string {
	return r.names(StatusFailed)
}

func (r Result) names(status Status) []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o.Source)
		}
	}
	return out
}

// Collector walks a source registry.
type Collector struct {
	registry   *sources.Registry
	log        zerolog.Logger
	firstMatch bool
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Collector) { c.log = log }
}

// FirstMatch makes Collect return the first data-bearing record without
// consulting lower-priority sources.
func FirstMatch() Option {
	return func(c *Collector) { c.firstMatch = true }
}

// New creates a Collector over reg.
func New(reg *sources.Registry, opts ...Option) *Collector {
	c := &Collector{registry: reg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches from every applicable source in priority order. The first
// data-bearing record becomes the accumulator and each later one is merged
// into it. A failing source is logged and skipped.
func (c *Collector) Collect(ctx context.Context, sctx sources.Context) Result {
	var res Result
	var applicable []sources.Source
	for _, src := range c.registry.List() {
		ok, err := sources.Supports(src, sctx)
		if err != nil {
			c.log.Warn().Str("source", src.Name()).Err(err).Msg("source failed, skipping")
			res.Outcomes = append(res.Outcomes, Outcome{Source: src.Name(), Status: StatusFailed, Err: err})
			continue
		}
		if ok {
			applicable = append(applicable, src)
		}
	}
	if len(applicable) == 0 {
		c.log.Debug().Msg("no applicable metadata sources")
		return res
	}

	var acc *model.MetadataRecord
	for i, src := range applicable {
		log := c.log.With().Str("source", src.Name()).Logger()

		rec, err := fetch(ctx, src, sctx)
		if err != nil {
			log.Warn().Err(err).Msg("source failed, skipping")
			res.Outcomes = append(res.Outcomes, Outcome{Source: src.Name(), Status: StatusFailed, Err: err})
			continue
		}
		if !rec.HasData() {
			log.Debug().Msg("source returned no data")
			res.Outcomes = append(res.Outcomes, Outcome{Source: src.Name(), Status: StatusEmpty})
			continue
		}

		res.Outcomes = append(res.Outcomes, Outcome{Source: src.Name(), Status: StatusMerged})
		if acc == nil {
			first := rec.Clone()
			acc = &first
		} else {
			merged := acc.Merge(*rec)
			acc = &merged
		}
		log.Debug().Int("authors", len(acc.Authors)).Int("licenses", len(acc.Licenses)).Msg("merged source data")

		if c.firstMatch {
			for _, rest := range applicable[i+1:] {
				res.Outcomes = append(res.Outcomes, Outcome{Source: rest.Name(), Status: StatusNotReached})
			}
			break
		}
	}

	res.Record = acc
	return res
}

// fetch calls src.Fetch and turns a panic into an error.
func fetch(ctx context.Context, src sources.Source, sctx sources.Context) (rec *model.MetadataRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("source %s panicked: %v", src.Name(), r)
		}
	}()
	return src.Fetch(ctx, sctx)
}
