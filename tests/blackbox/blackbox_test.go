package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// findFreePort picks an available TCP port on localhost.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the stemd binary")
	}
	binPath := filepath.Join(t.TempDir(), "stemd")
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/stemd")
	cmd.Dir = projectRootFromThisFile(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(out))
	}
	return binPath
}

func writeFile(t *testing.T, path string, size int) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

type serverProc struct {
	cmd  *exec.Cmd
	base string // http base URL, e.g. http://127.0.0.1:18080
}

// startServer runs "stemd serve" with a config file and no separator, so
// /readyz reports unavailable.
func startServer(t *testing.T, bin, modelsDir string) *serverProc {
	t.Helper()
	port := findFreePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cfgPath := filepath.Join(t.TempDir(), "stemd.toml")
	cfg := fmt.Sprintf("addr = \"127.0.0.1:%d\"\nmodels_dir = %q\ndefault_device = \"cpu\"\n", port, modelsDir)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := exec.Command(bin, "--config", cfgPath, "--json-logs", "serve")
	cmd.Env = append(os.Environ(), "STEMD_SEPARATOR_CMD=")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill(); _ = cmd.Wait() })
	// Wait for healthz
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &serverProc{cmd: cmd, base: base}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	modelsDir := t.TempDir()
	writeFile(t, filepath.Join(modelsDir, "alpha.onnx"), 2048)
	writeFile(t, filepath.Join(modelsDir, "beta.pth"), 2048)
	sp := startServer(t, bin, modelsDir)

	resp, body := get(t, sp.base+"/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models %d %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("/models content-type=%s", ct)
	}
	var modelsResp struct {
		Models []struct {
			ID   string `json:"id"`
			Arch string `json:"arch"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		t.Fatalf("/models json: %v body=%s", err, string(body))
	}
	if len(modelsResp.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(modelsResp.Models))
	}

	// No separator configured
	resp, body = get(t, sp.base+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz %d %s", resp.StatusCode, string(body))
	}

	resp, body = postJSON(t, sp.base+"/resolve", []byte(`{"arch":"vr","model":"beta"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/resolve %d %s", resp.StatusCode, string(body))
	}
	if !bytes.Contains(body, []byte(`"primary_stem"`)) {
		t.Fatalf("/resolve body: %s", string(body))
	}

	input := writeFile(t, filepath.Join(t.TempDir(), "song.wav"), 4096)
	payload := fmt.Sprintf(`{"arch":"mdx","model":"alpha","input":%q,"output_dir":%q}`, input, t.TempDir())
	resp, body = postJSON(t, sp.base+"/separate", []byte(payload))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/separate without separator: %d %s", resp.StatusCode, string(body))
	}

	resp, body = get(t, sp.base+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, string(body))
	}
}

func TestBlackbox_Separate_ModelNotFound_404(t *testing.T) {
	bin := buildBinary(t)
	modelsDir := t.TempDir()
	writeFile(t, filepath.Join(modelsDir, "alpha.onnx"), 2048)
	sp := startServer(t, bin, modelsDir)

	input := writeFile(t, filepath.Join(t.TempDir(), "song.wav"), 4096)
	payload := fmt.Sprintf(`{"arch":"mdx","model":"missing","input":%q,"output_dir":%q}`, input, t.TempDir())
	resp, body := postJSON(t, sp.base+"/separate", []byte(payload))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d, body=%s", resp.StatusCode, string(body))
	}
}

func TestBlackbox_HashCommand(t *testing.T) {
	bin := buildBinary(t)
	model := writeFile(t, filepath.Join(t.TempDir(), "alpha.onnx"), 2048)
	out, err := exec.Command(bin, "hash", model).Output()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	fields := strings.Fields(string(out))
	if len(fields) != 2 || len(fields[0]) != 32 || fields[1] != model {
		t.Fatalf("unexpected output: %q", out)
	}
}
