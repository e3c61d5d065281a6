package orchestrator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stemd/internal/hasher"
	"stemd/internal/modelcfg"
	"stemd/internal/resolver"
	"stemd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 30 * time.Second
	defaultReclaimWait   = 10 * time.Second
)

// Downloader fetches a model that is not present locally and returns its path.
type Downloader interface {
	EnsureModel(ctx context.Context, identifier string, arch modelcfg.Arch) (string, error)
}

// Config encapsulates all tunables for Orchestrator construction.
type Config struct {
	// Models is the scanned local model directory used to resolve identifiers.
	Models []types.Model
	// Resolvers per architecture. mdxc falls back to the mdx resolver, and
	// any remaining gap to a resolver with default options.
	Resolvers map[modelcfg.Arch]*resolver.Resolver
	// Cache is shared by resolvers built here and reported in Status.
	Cache      *hasher.Cache
	Separator  Separator
	Probe      DeviceProbe
	Downloader Downloader
	Publisher  EventPublisher
	Progress   ProgressSink
	Logger     *zerolog.Logger

	// DefaultDevice applies when a request leaves the device empty.
	DefaultDevice Device
	MaxQueueDepth int
	MaxWait       time.Duration
	ReclaimWait   time.Duration
}
