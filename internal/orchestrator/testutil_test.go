package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stemd/pkg/types"
)

// writeFile creates a file of size bytes and returns its path.
func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// fixture lays out a model and an input track in a temp dir.
type fixture struct {
	dir    string
	model  string
	input  string
	outDir string
}

func newFixture(t *testing.T, modelName string) fixture {
	t.Helper()
	d := t.TempDir()
	return fixture{
		dir:    d,
		model:  writeFile(t, d, filepath.Join("models", modelName), 4096),
		input:  writeFile(t, d, "song.wav", 4096),
		outDir: filepath.Join(d, "out"),
	}
}

func (f fixture) request(arch string) types.SeparateRequest {
	return types.SeparateRequest{Arch: arch, Model: f.model, Input: f.input, OutputDir: f.outDir}
}

// fakeSeparator records jobs, writes the requested outputs on success and
// returns errs[i] for the i-th call (the last entry repeats).
type fakeSeparator struct {
	mu    sync.Mutex
	jobs  []Job
	errs  []error
	block chan struct{}
}

func (f *fakeSeparator) Separate(ctx context.Context, job Job) error {
	f.mu.Lock()
	n := len(f.jobs)
	f.jobs = append(f.jobs, job)
	var err error
	if len(f.errs) > 0 {
		err = f.errs[min(n, len(f.errs)-1)]
	}
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	for _, p := range job.Outputs {
		if werr := os.WriteFile(p, []byte("RIFF"), 0o644); werr != nil {
			return werr
		}
	}
	return nil
}

func (f *fakeSeparator) calls() []Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Job(nil), f.jobs...)
}

// countingProbe reports a fixed GPU availability and counts reclaims.
type countingProbe struct {
	gpu        bool
	reclaimErr error
	reclaims   atomic.Int32
}

func (p *countingProbe) GPUAvailable() bool { return p.gpu }

func (p *countingProbe) Reclaim(context.Context) error {
	p.reclaims.Add(1)
	return p.reclaimErr
}

var (
	errCUDAOOM   = errors.New("RuntimeError: CUDA out of memory. Tried to allocate 2.00 GiB")
	errBadModel  = errors.New("Invalid model format: unexpected key in state_dict")
	errDiskFull  = errors.New("OSError: [Errno 28] No space left on device")
	errDirectML  = errors.New("DirectML device removed")
	errRandomish = errors.New("something odd happened xyz123")
)

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}
