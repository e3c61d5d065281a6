package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stemd/internal/httpapi"
	"stemd/internal/introspect"
	"stemd/internal/modelcfg"
	"stemd/internal/orchestrator"
	"stemd/internal/registry"
	"stemd/internal/resolver"
)

// TestHelperProcess is re-executed as the separator binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)
	b, _ := io.ReadAll(os.Stdin)
	var job struct {
		Outputs map[string]string `json:"outputs"`
	}
	if err := json.Unmarshal(b, &job); err != nil {
		fmt.Fprintf(os.Stderr, "bad job: %v\n", err)
		os.Exit(2)
	}
	switch os.Getenv("HELPER_MODE") {
	case "oom":
		fmt.Fprintln(os.Stderr, "RuntimeError: CUDA out of memory")
		os.Exit(1)
	case "hang":
		time.Sleep(30 * time.Second)
	}
	for _, p := range job.Outputs {
		if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(4)
		}
	}
}

// createTempModelsDir creates a temporary directory populated with placeholder
// model files and returns the directory path.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, make([]byte, 2048), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// createInput writes a placeholder audio file large enough to pass preflight.
func createInput(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "song.wav")
	if err := os.WriteFile(p, make([]byte, 4096), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

func noIntrospect(string) (*introspect.Partial, error) { return nil, errors.New("not introspectable") }

// newServer wires a real orchestrator, backed by the helper separator in
// the given mode, behind the HTTP API.
func newServer(t *testing.T, modelsDir, mode string, cfg orchestrator.Config) (*httptest.Server, *orchestrator.Orchestrator) {
	t.Helper()
	models, err := registry.LoadDir(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	r := resolver.New(resolver.Options{Introspect: noIntrospect})
	cfg.Models = models
	cfg.Resolvers = map[modelcfg.Arch]*resolver.Resolver{modelcfg.ArchMDX: r, modelcfg.ArchVR: r, modelcfg.ArchDemucs: r}
	cfg.Cache = r.Cache()
	cfg.Separator = orchestrator.NewSubprocessSeparator(
		[]string{os.Args[0], "-test.run=TestHelperProcess", "--"},
		[]string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
		nil,
	)
	if cfg.Probe == nil {
		cfg.Probe = orchestrator.StaticProbe(true)
	}
	o := orchestrator.New(cfg)
	srv := httptest.NewServer(httpapi.NewMux(o))
	t.Cleanup(srv.Close)
	return srv, o
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	return httpPostJSONCtx(t, context.Background(), url, payload)
}

func httpPostJSONCtx(t *testing.T, ctx context.Context, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func separateBody(t *testing.T, model, input, outDir string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]string{"arch": "mdx", "model": model, "input": input, "output_dir": outDir})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
