package cmd

import (
	"github.com/StinkyLord/sbom-enricher/internal/collector"
	"github.com/StinkyLord/sbom-enricher/internal/deps"
	"github.com/StinkyLord/sbom-enricher/internal/enricher"
	"github.com/StinkyLord/sbom-enricher/internal/lockfiles"
	"github.com/StinkyLord/sbom-enricher/internal/sources"
	"github.com/StinkyLord/sbom-enricher/internal/upload"
)

func newSources() (*sources.Registry, error) {
	opts, err := cfg.SourceOptions()
	if err != nil {
		return nil, err
	}
	return sources.Default(opts...), nil
}

func newPipeline() (*enricher.Pipeline, error) {
	reg, err := newSources()
	if err != nil {
		return nil, err
	}
	copts := []collector.Option{collector.WithLogger(logger)}
	if cfg.Sources.FirstMatch {
		copts = append(copts, collector.FirstMatch())
	}

	lockfileList := make([]string, 0, len(cfg.Hashes.Lockfiles))
	for _, l := range cfg.Hashes.Lockfiles {
		lockfileList = append(lockfileList, resolve(l))
	}

	return &enricher.Pipeline{
		WorkDir:       workDir,
		Collector:     collector.New(reg, copts...),
		SourceContext: cfg.SourceContext(workDir),
		Parsers:       lockfiles.Default(),
		Lockfiles:     lockfileList,
		Overwrite:     cfg.Hashes.Overwrite,
		Expanders:     deps.Default(cfg.Discover.TreeFile, cfg.Discover.Command, cfg.Discover.Timeout, logger),
		Log:           logger,
	}, nil
}

func newOrchestrator() *upload.Orchestrator {
	o := upload.NewOrchestrator(logger)
	o.Register(&upload.SbomifyDestination{
		BaseURL:     cfg.API.BaseURL,
		Token:       cfg.API.Token,
		ComponentID: cfg.API.ComponentID,
	})
	dt := cfg.Upload.DependencyTrack
	o.Register(&upload.DependencyTrackDestination{
		URL:            dt.URL,
		APIKey:         dt.APIKey,
		ProjectUUID:    dt.ProjectUUID,
		ProjectName:    dt.ProjectName,
		ProjectVersion: dt.ProjectVersion,
		AutoCreate:     dt.AutoCreate,
	})
	o.Register(upload.NewS3Destination(cfg.S3()))
	o.Register(&upload.DirectoryDestination{Dir: resolve(cfg.Upload.Directory)})
	return o
}
