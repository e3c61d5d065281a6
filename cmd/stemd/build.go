package main

import (
	"github.com/rs/zerolog"

	"stemd/internal/common/fsutil"
	"stemd/internal/config"
	"stemd/internal/hasher"
	"stemd/internal/modelcfg"
	"stemd/internal/orchestrator"
	"stemd/internal/registry"
	"stemd/internal/resolver"
)

// buildOrchestrator wires resolvers, separator and device probe from c.
// A missing models directory is logged and leaves the scan empty so that
// explicit paths still work.
func buildOrchestrator(c config.Config, logger zerolog.Logger) (*orchestrator.Orchestrator, error) {
	modelsDir, err := fsutil.ExpandHome(c.ModelsDir)
	if err != nil {
		return nil, err
	}
	models, err := registry.LoadDir(modelsDir)
	if err != nil {
		logger.Warn().Err(err).Str("models_dir", modelsDir).Msg("model scan failed")
		models = nil
	}

	cache := hasher.NewCache()
	resolvers := make(map[modelcfg.Arch]*resolver.Resolver)
	for arch, dir := range map[modelcfg.Arch]string{
		modelcfg.ArchMDX:    c.MDXMetadataDir,
		modelcfg.ArchVR:     c.VRMetadataDir,
		modelcfg.ArchDemucs: c.DemucsMetadataDir,
	} {
		meta, err := fsutil.ExpandHome(dir)
		if err != nil {
			return nil, err
		}
		opts := resolver.Options{MetadataDir: meta, Cache: cache, Logger: &logger}
		if arch == modelcfg.ArchVR {
			if opts.ParamsDir, err = fsutil.ExpandHome(c.VRParamsDir); err != nil {
				return nil, err
			}
		}
		resolvers[arch] = resolver.New(opts)
	}

	var sep orchestrator.Separator
	if len(c.SeparatorCmd) > 0 {
		sep = orchestrator.NewSubprocessSeparator(c.SeparatorCmd, nil, &logger)
	}

	return orchestrator.New(orchestrator.Config{
		Models:        models,
		Resolvers:     resolvers,
		Cache:         cache,
		Separator:     sep,
		Probe:         orchestrator.NewSystemProbe(c.ReclaimCmd),
		Logger:        &logger,
		DefaultDevice: orchestrator.Device(c.DefaultDevice),
		MaxWait:       c.MaxWait.Std(),
	}), nil
}
