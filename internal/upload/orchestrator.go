package upload

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/StinkyLord/sbom-enricher/internal/registry"
)

// Destination is one upload target.
type Destination interface {
	Name() string
	// IsConfigured reports whether every required setting is present.
	IsConfigured() bool
	Execute(ctx context.Context, p Payload) (Result, error)
}

// Orchestrator dispatches payloads to registered destinations, one at a
// time in registration order.
type Orchestrator struct {
	reg *registry.Registry[Destination]
	log zerolog.Logger
}

// NewOrchestrator creates an orchestrator with no destinations.
func NewOrchestrator(log zerolog.Logger) *Orchestrator {
	return &Orchestrator{reg: registry.New[Destination](), log: log}
}

// Register appends a destination.
func (o *Orchestrator) Register(d Destination) {
	o.reg.Register(d, 0)
}

// Destinations returns every registered destination.
func (o *Orchestrator) Destinations() []Destination {
	return o.reg.List()
}

// Configured returns the destinations that are ready to run. A destination
// whose IsConfigured panics is left out.
func (o *Orchestrator) Configured() []Destination {
	return o.reg.Filter(func(d Destination) bool {
		ok, _ := isConfigured(d)
		return ok
	})
}

// DispatchAll runs every configured destination and returns one result per
// destination in registration order. A destination that errors or panics,
// in its configuration check or its upload, yields a failure result; the
// others still run.
func (o *Orchestrator) DispatchAll(ctx context.Context, p Payload) []Result {
	var results []Result
	for _, d := range o.reg.List() {
		ok, err := isConfigured(d)
		if err != nil {
			o.log.Error().Str("destination", d.Name()).Err(err).Msg("configuration check failed")
			results = append(results, Failed(d.Name(), err.Error()))
			continue
		}
		if !ok {
			continue
		}
		results = append(results, o.run(ctx, d, p))
	}
	return results
}

// DispatchOne runs a single destination by name. Asking for a name that was
// never registered is a caller error; an unconfigured destination gives a
// failure result.
func (o *Orchestrator) DispatchOne(ctx context.Context, p Payload, name string) (Result, error) {
	d, ok := o.reg.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownDestination, name)
	}
	ok, err := isConfigured(d)
	if err != nil {
		return Failed(d.Name(), err.Error()), nil
	}
	if !ok {
		return Failed(d.Name(), "destination is not configured"), nil
	}
	return o.run(ctx, d, p), nil
}

func (o *Orchestrator) run(ctx context.Context, d Destination, p Payload) (res Result) {
	name := d.Name()
	log := o.log.With().Str("destination", name).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("destination panicked")
			res = Failed(name, fmt.Sprintf("panic: %v", r))
		}
	}()

	log.Debug().Str("path", p.Path).Str("format", string(p.Format)).Msg("uploading")
	res, err := d.Execute(ctx, p)
	if err != nil {
		log.Warn().Err(err).Msg("upload failed")
		return Failed(name, err.Error())
	}
	if err := res.Validate(); err != nil {
		log.Warn().Err(err).Msg("destination returned an invalid result")
		return Failed(name, err.Error())
	}
	res.Destination = name
	if res.Success {
		log.Info().Str("artifact_id", res.ArtifactID).Msg("uploaded")
	} else {
		log.Warn().Str("error", res.Error).Msg("upload failed")
	}
	return res
}

// isConfigured calls d.IsConfigured and turns a panic into an error.
func isConfigured(d Destination) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("configuration check panicked: %v", r)
		}
	}()
	return d.IsConfigured(), nil
}
