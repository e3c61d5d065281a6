package resolver

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"stemd/internal/common/fsutil"
	"stemd/internal/hasher"
	"stemd/internal/introspect"
	"stemd/internal/modelcfg"
	"stemd/internal/registry"
)

// Artifact is a model weight file together with its architecture family.
type Artifact struct {
	Path string
	Arch modelcfg.Arch
}

// Options configures a Resolver. Zero values are usable.
type Options struct {
	// MetadataDir holds {hash}.json, model_data.json and mdx_c_configs/.
	// Empty means "model_data" next to each artifact.
	MetadataDir string
	// ParamsDir holds VR band-split presets. Empty means
	// {MetadataDir}/modelparams.
	ParamsDir string
	// Cache memoises fingerprints. A fresh cache is created when nil.
	Cache *hasher.Cache
	// Introspect overrides artifact introspection, mainly for tests.
	Introspect func(path string) (*introspect.Partial, error)
	Logger     *zerolog.Logger
}

// Resolver runs the configuration cascade. It is safe for concurrent use.
type Resolver struct {
	metadataDir string
	params      string
	cache       *hasher.Cache
	introspect  func(string) (*introspect.Partial, error)
	log         zerolog.Logger

	mu      sync.Mutex
	indexes map[string]*registry.Index
}

// New constructs a Resolver.
func New(opts Options) *Resolver {
	r := &Resolver{
		metadataDir: opts.MetadataDir,
		params:      opts.ParamsDir,
		cache:       opts.Cache,
		introspect:  opts.Introspect,
		log:         zerolog.Nop(),
		indexes:     make(map[string]*registry.Index),
	}
	if r.cache == nil {
		r.cache = hasher.NewCache()
	}
	if r.introspect == nil {
		r.introspect = introspect.Introspect
	}
	if opts.Logger != nil {
		r.log = opts.Logger.With().Str("component", "resolver").Logger()
	}
	return r
}

// Cache exposes the fingerprint cache owned by the resolver.
func (r *Resolver) Cache() *hasher.Cache { return r.cache }

// IsArtifactNotFound reports whether err came from a missing artifact.
func IsArtifactNotFound(err error) bool { return modelcfg.IsArtifactNotFound(err) }

// Resolve produces the configuration for a. The returned config always has
// both stems set. The only error is a missing artifact.
func (r *Resolver) Resolve(a Artifact, explicitPath string, o Overrides) (modelcfg.ModelConfig, error) {
	if a.Arch == "" {
		a.Arch = modelcfg.ArchMDX
	}
	if !fsutil.IsFile(a.Path) {
		return modelcfg.ModelConfig{}, modelcfg.ErrArtifactNotFound(a.Path)
	}
	lg := r.log.With().Str("model", filepath.Base(a.Path)).Str("arch", string(a.Arch)).Logger()
	metaDir := r.metadataDirFor(a.Path)

	if explicitPath != "" {
		if fsutil.IsFile(explicitPath) {
			if cfg, ok := r.fromExplicit(a, explicitPath, metaDir, lg); ok {
				return r.done(cfg, lg), nil
			}
		} else {
			lg.Warn().Str("config", explicitPath).Msg("explicit config not found")
		}
	}

	hash, err := r.cache.Fingerprint(a.Path)
	if err != nil {
		if modelcfg.IsArtifactNotFound(err) {
			return modelcfg.ModelConfig{}, err
		}
		lg.Warn().Err(err).Msg("fingerprint failed; skipping hash tiers")
	}

	if hash != "" {
		doc := filepath.Join(metaDir, hash+".json")
		if fsutil.IsFile(doc) {
			e, err := registry.ReadDocument(doc)
			if err != nil {
				lg.Warn().Err(err).Str("tier", string(modelcfg.SourceHashFile)).Msg("unreadable metadata")
			} else if cfg, ok := r.fromEntry(a, e, metaDir, modelcfg.SourceHashFile, hash, lg); ok {
				return r.done(r.applyOverrides(cfg, o), lg), nil
			}
		}
		lg.Debug().Str("tier", string(modelcfg.SourceHashFile)).Str("hash", hash).Msg("miss")

		e, ok := builtinEntries[a.Arch][hash]
		if !ok {
			e, ok = r.index(metaDir, lg).Lookup(hash)
		}
		if ok {
			if cfg, ok := r.fromEntry(a, e, metaDir, modelcfg.SourceRegistry, hash, lg); ok {
				return r.done(r.applyOverrides(cfg, o), lg), nil
			}
		}
		lg.Debug().Str("tier", string(modelcfg.SourceRegistry)).Str("hash", hash).Msg("miss")
	}

	if a.Arch == modelcfg.ArchMDX {
		p, err := r.introspect(a.Path)
		if err != nil {
			lg.Warn().Err(err).Str("tier", string(modelcfg.SourceIntrospected)).Msg("introspection failed")
		}
		if p != nil {
			cfg := modelcfg.New(modelcfg.MDXParams{
				DimF:         p.DimF,
				DimTExponent: p.DimTExponent,
				NFFT:         p.NFFT,
				Compensate:   modelcfg.DefaultMDXCompensate,
			}, p.PrimaryStem, modelcfg.SourceIntrospected, hash)
			return r.done(r.applyOverrides(cfg, o), lg), nil
		}
		lg.Debug().Str("tier", string(modelcfg.SourceIntrospected)).Msg("miss")
	}

	return r.done(r.applyOverrides(r.defaults(a, hash), o), lg), nil
}

func (r *Resolver) done(cfg modelcfg.ModelConfig, lg zerolog.Logger) modelcfg.ModelConfig {
	resolutionsTotal.WithLabelValues(string(cfg.Source)).Inc()
	lg.Debug().
		Str("source", string(cfg.Source)).
		Str("primary", cfg.PrimaryStem).
		Str("secondary", cfg.SecondaryStem).
		Msg("resolved")
	return cfg
}

func (r *Resolver) fromExplicit(a Artifact, path, metaDir string, lg zerolog.Logger) (modelcfg.ModelConfig, bool) {
	e, err := registry.ReadDocument(path)
	if err != nil {
		lg.Warn().Err(err).Str("config", path).Msg("explicit config unreadable; continuing")
		return modelcfg.ModelConfig{}, false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if (ext == ".yaml" || ext == ".yml") && a.Arch != modelcfg.ArchDemucs {
		preset := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return mdxcConfig(preset, e, nil, modelcfg.SourceExplicit, ""), true
	}
	cfg, ok := r.fromEntry(a, e, metaDir, modelcfg.SourceExplicit, "", lg)
	if !ok {
		lg.Warn().Str("config", path).Msg("explicit config not usable; continuing")
	}
	return cfg, ok
}

// fromEntry interprets one metadata document for artifact a.
func (r *Resolver) fromEntry(a Artifact, e registry.Entry, metaDir string, src modelcfg.Source, hash string, lg zerolog.Logger) (modelcfg.ModelConfig, bool) {
	if name, ok := e.String("config_yaml"); ok {
		doc, err := registry.LoadMDXCPreset(filepath.Join(metaDir, registry.MDXCConfigDir), name)
		if err != nil {
			lg.Warn().Err(err).Str("preset", name).Str("tier", string(src)).Msg("mdx-c preset unavailable")
			return modelcfg.ModelConfig{}, false
		}
		return mdxcConfig(name, doc, e, src, hash), true
	}

	switch a.Arch {
	case modelcfg.ArchVR:
		return r.vrConfig(e, src, hash, lg)
	case modelcfg.ArchDemucs:
		return demucsConfig(a.Path, e, src, hash), true
	case modelcfg.ArchMDXC:
		if training, ok := e.Map("training"); ok && training != nil {
			return mdxcConfig("", e, nil, src, hash), true
		}
	}
	return mdxConfig(e, src, hash), true
}

func mdxConfig(e registry.Entry, src modelcfg.Source, hash string) modelcfg.ModelConfig {
	p := modelcfg.DefaultMDXParams()
	if v, ok := e.Int("mdx_dim_f_set"); ok {
		p.DimF = v
	}
	if v, ok := e.Int("mdx_dim_t_set"); ok {
		p.DimTExponent = v
	}
	if v, ok := e.Int("mdx_n_fft_scale_set"); ok {
		p.NFFT = v
	}
	if v, ok := e.Float("compensate"); ok {
		p.Compensate = v
	}
	p.IsKaraoke, _ = e.Bool("is_karaoke")
	primary, _ := e.String("primary_stem")
	return modelcfg.New(p, primary, src, hash)
}

// mdxcConfig reads the instrument set from a YAML document. meta is the
// registry entry that referenced it, or nil.
func mdxcConfig(preset string, doc, meta registry.Entry, src modelcfg.Source, hash string) modelcfg.ModelConfig {
	p := modelcfg.MDXCParams{Preset: preset, Document: doc}
	primary := modelcfg.StemVocals

	training, _ := doc.Map("training")
	if target, _ := training.String("target_instrument"); target != "" {
		p.TargetInstrument = target
		p.Stems = []string{target}
		primary = target
	} else {
		stems, ok := training.Strings("instruments")
		if !ok {
			stems = []string{modelcfg.StemVocals, modelcfg.StemInstrumental}
		}
		p.Stems = stems
		if len(stems) > 0 {
			primary = stems[0]
		}
	}

	if meta != nil {
		p.IsRoformer, _ = meta.Bool("is_roformer")
		p.ModelType, _ = meta.String("model_type")
	}
	if model, ok := doc.Map("model"); ok {
		switch {
		case model.Has("num_bands") || model.Has("freqs_per_bands"):
			p.IsRoformer = true
			if p.ModelType == "" {
				p.ModelType = "Roformer"
			}
		case model.Has("band_SR") || model.Has("sources"):
			p.IsRoformer = true
			if p.ModelType == "" {
				p.ModelType = "SCNet"
			}
		}
	}
	return modelcfg.New(p, primary, src, hash)
}

func (r *Resolver) vrConfig(e registry.Entry, src modelcfg.Source, hash string, lg zerolog.Logger) (modelcfg.ModelConfig, bool) {
	name, ok := e.String("vr_model_param")
	if !ok || name == "" {
		return modelcfg.ModelConfig{}, false
	}
	preset, err := registry.LoadVRPreset(r.paramsDir(), name)
	if err != nil {
		lg.Warn().Err(err).Str("preset", name).Str("tier", string(src)).Msg("vr preset unavailable")
		return modelcfg.ModelConfig{}, false
	}
	p := modelcfg.VRParams{
		ParamPreset: preset.Name,
		SampleRate:  preset.SampleRate,
		Bands:       preset.Bands(),
		Capacity:    defaultVRCapacity,
	}
	nout, okA := e.Int("nout")
	lstm, okB := e.Int("nout_lstm")
	if okA && okB {
		p.Capacity = [2]int{nout, lstm}
		p.IsVR51 = true
	}
	p.IsKaraoke, _ = e.Bool("is_karaoke")
	p.IsBVModel, _ = e.Bool("is_bv_model")
	if p.IsBVModel {
		p.BVRebalance, _ = e.Float("is_bv_model_rebalanced")
	}
	primary, _ := e.String("primary_stem")
	return modelcfg.New(p, primary, src, hash), true
}

func demucsConfig(path string, e registry.Entry, src modelcfg.Source, hash string) modelcfg.ModelConfig {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p := modelcfg.DemucsParams{Version: DemucsVersion(filepath.Base(path)), Sources: DemucsSources(name)}
	if v, ok := e.String("version"); ok && v != "" {
		p.Version = v
	}
	if s, ok := e.Strings("sources"); ok && len(s) > 0 {
		p.Sources = make([]string, len(s))
		for i, v := range s {
			p.Sources[i] = modelcfg.NormalizeStem(v)
		}
	}
	primary, _ := e.String("primary_stem")
	if primary == "" {
		primary = modelcfg.StemPrimary
	}
	return modelcfg.New(p, primary, src, hash)
}

var defaultVRCapacity = [2]int{32, 128}

// defaults is the last tier. It never fails.
func (r *Resolver) defaults(a Artifact, hash string) modelcfg.ModelConfig {
	switch a.Arch {
	case modelcfg.ArchVR:
		p := modelcfg.VRParams{
			ParamPreset: modelcfg.DefaultVRParamPreset,
			SampleRate:  44100,
			Capacity:    defaultVRCapacity,
		}
		if preset, err := registry.LoadVRPreset(r.paramsDir(), p.ParamPreset); err == nil {
			p.SampleRate = preset.SampleRate
			p.Bands = preset.Bands()
		}
		return modelcfg.New(p, modelcfg.StemVocals, modelcfg.SourceDefault, hash)
	case modelcfg.ArchDemucs:
		return demucsConfig(a.Path, registry.Entry{}, modelcfg.SourceDefault, hash)
	case modelcfg.ArchMDXC:
		p := modelcfg.MDXCParams{Stems: []string{modelcfg.StemVocals, modelcfg.StemInstrumental}}
		return modelcfg.New(p, modelcfg.StemVocals, modelcfg.SourceDefault, hash)
	default:
		return modelcfg.New(modelcfg.DefaultMDXParams(), modelcfg.StemVocals, modelcfg.SourceDefault, hash)
	}
}

func (r *Resolver) metadataDirFor(artifact string) string {
	if r.metadataDir != "" {
		if d, err := fsutil.ExpandHome(r.metadataDir); err == nil {
			return d
		}
		return r.metadataDir
	}
	return filepath.Join(filepath.Dir(artifact), "model_data")
}

func (r *Resolver) paramsDir() string {
	if r.params != "" {
		if d, err := fsutil.ExpandHome(r.params); err == nil {
			return d
		}
		return r.params
	}
	if r.metadataDir != "" {
		return filepath.Join(r.metadataDir, "modelparams")
	}
	return "modelparams"
}

// index loads model_data.json for dir once and keeps it for the resolver's
// lifetime. A broken registry file is logged and treated as empty.
func (r *Resolver) index(dir string, lg zerolog.Logger) *registry.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	if x, ok := r.indexes[dir]; ok {
		return x
	}
	x, err := registry.LoadIndex(filepath.Join(dir, registry.IndexFile))
	if err != nil {
		lg.Warn().Err(err).Str("dir", dir).Msg("registry unreadable; tier disabled")
		x = registry.NewIndex(nil)
	}
	r.indexes[dir] = x
	return x
}
