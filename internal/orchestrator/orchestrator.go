package orchestrator

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stemd/internal/hasher"
	"stemd/internal/modelcfg"
	"stemd/internal/resolver"
	"stemd/pkg/types"
)

// Orchestrator runs one separation job at a time.
type Orchestrator struct {
	mu         sync.RWMutex
	state      State
	currentJob string
	lastErr    string
	started    uint64
	succeeded  uint64
	failed     uint64
	fallbacks  uint64
	startTime  time.Time

	models        []types.Model
	archs         map[modelcfg.Arch]Architecture
	cache         *hasher.Cache
	separator     Separator
	probe         DeviceProbe
	downloader    Downloader
	publisher     EventPublisher
	progress      ProgressSink
	log           zerolog.Logger
	defaultDevice Device

	// Admission primitives
	genCh       chan struct{} // size 1: single in-flight job
	queueCh     chan struct{} // buffered: queue slots
	maxWait     time.Duration
	reclaimWait time.Duration
}

// New constructs an Orchestrator from cfg, applying defaults.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		state:         StateIdle,
		models:        append([]types.Model(nil), cfg.Models...),
		cache:         cfg.Cache,
		separator:     cfg.Separator,
		probe:         cfg.Probe,
		downloader:    cfg.Downloader,
		publisher:     cfg.Publisher,
		progress:      cfg.Progress,
		log:           zerolog.Nop(),
		defaultDevice: cfg.DefaultDevice,
		startTime:     time.Now(),
	}
	if cfg.Logger != nil {
		o.log = cfg.Logger.With().Str("component", "orchestrator").Logger()
	}
	if o.cache == nil {
		o.cache = hasher.NewCache()
	}
	if o.probe == nil {
		o.probe = NewSystemProbe(nil)
	}
	if o.publisher == nil {
		o.publisher = noopPublisher{}
	}
	if o.progress == nil {
		o.progress = NopProgress{}
	}
	if o.defaultDevice == "" {
		o.defaultDevice = DeviceAuto
	}
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	o.maxWait = cfg.MaxWait
	if o.maxWait <= 0 {
		o.maxWait = defaultMaxWait
	}
	o.reclaimWait = cfg.ReclaimWait
	if o.reclaimWait <= 0 {
		o.reclaimWait = defaultReclaimWait
	}
	o.genCh = make(chan struct{}, 1)
	o.queueCh = make(chan struct{}, depth)

	resolvers := make(map[modelcfg.Arch]*resolver.Resolver, len(cfg.Resolvers))
	for k, v := range cfg.Resolvers {
		if v != nil {
			resolvers[k] = v
		}
	}
	if _, ok := resolvers[modelcfg.ArchMDXC]; !ok {
		if r, ok := resolvers[modelcfg.ArchMDX]; ok {
			resolvers[modelcfg.ArchMDXC] = r
		}
	}
	var fallback *resolver.Resolver
	pick := func(a modelcfg.Arch) *resolver.Resolver {
		if r, ok := resolvers[a]; ok {
			return r
		}
		if fallback == nil {
			fallback = resolver.New(resolver.Options{Cache: o.cache, Logger: cfg.Logger})
		}
		return fallback
	}
	b := func(a modelcfg.Arch) base {
		return base{kind: a, resolver: pick(a), separator: o.invokeSeparator}
	}
	o.archs = map[modelcfg.Arch]Architecture{
		modelcfg.ArchMDX:    &mdxArchitecture{base: b(modelcfg.ArchMDX)},
		modelcfg.ArchMDXC:   &mdxArchitecture{base: b(modelcfg.ArchMDXC)},
		modelcfg.ArchVR:     &vrArchitecture{base: b(modelcfg.ArchVR)},
		modelcfg.ArchDemucs: &demucsArchitecture{base: b(modelcfg.ArchDemucs)},
	}
	return o
}

// SetEventPublisher installs an EventPublisher. Nil restores the no-op default.
func (o *Orchestrator) SetEventPublisher(p EventPublisher) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p == nil {
		o.publisher = noopPublisher{}
		return
	}
	o.publisher = p
}

// SetLogger installs a structured logger.
func (o *Orchestrator) SetLogger(l zerolog.Logger) {
	o.mu.Lock()
	o.log = l.With().Str("component", "orchestrator").Logger()
	o.mu.Unlock()
}

// Ready reports whether jobs can be executed.
func (o *Orchestrator) Ready() bool {
	return o.SanityCheck().SeparatorFound
}

// ListModels returns the scanned local models.
func (o *Orchestrator) ListModels() []types.Model {
	o.mu.RLock()
	defer o.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(o.models))
	copy(out, o.models)
	return out
}

// Cache exposes the shared fingerprint cache.
func (o *Orchestrator) Cache() *hasher.Cache { return o.cache }

func (o *Orchestrator) architecture(a modelcfg.Arch) (Architecture, bool) {
	arch, ok := o.archs[a]
	return arch, ok
}

func (o *Orchestrator) publish(e Event) {
	o.mu.RLock()
	p := o.publisher
	o.mu.RUnlock()
	p.Publish(e)
}

func (o *Orchestrator) logger() zerolog.Logger {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.log
}
