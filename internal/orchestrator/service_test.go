package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"stemd/internal/modelcfg"
	"stemd/pkg/types"
)

func TestResolve_DefaultAndExplicit(t *testing.T) {
	f := newFixture(t, "model.onnx")
	o, _ := newTestOrchestrator(t, &fakeSeparator{}, StaticProbe(false))

	resp, err := o.Resolve(testCtx(t), types.ResolveRequest{Arch: "mdx", Model: f.model})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resp.Source != string(modelcfg.SourceDefault) || resp.PrimaryStem != "Vocals" || resp.SecondaryStem != "Instrumental" || resp.Hash == "" {
		t.Fatalf("unexpected: %+v", resp)
	}

	explicit := filepath.Join(f.dir, "cfg.json")
	if err := os.WriteFile(explicit, []byte(`{"mdx_dim_f_set":2048,"mdx_dim_t_set":8,"mdx_n_fft_scale_set":5120,"primary_stem":"Instrumental"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err = o.Resolve(testCtx(t), types.ResolveRequest{Arch: "mdx", Model: f.model, ConfigPath: explicit})
	if err != nil {
		t.Fatalf("resolve explicit: %v", err)
	}
	if resp.Source != string(modelcfg.SourceExplicit) || resp.PrimaryStem != "Instrumental" || resp.Hash != "" {
		t.Fatalf("unexpected: %+v", resp)
	}
	p, ok := resp.Params.(modelcfg.MDXParams)
	if !ok || p.DimF != 2048 || p.NFFT != 5120 {
		t.Fatalf("params: %#v", resp.Params)
	}
}

func TestResolve_Errors(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeSeparator{}, StaticProbe(false))
	if _, err := o.Resolve(testCtx(t), types.ResolveRequest{Arch: "mdx"}); !IsInvalidRequest(err) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if _, err := o.Resolve(testCtx(t), types.ResolveRequest{Arch: "vr", Model: "/nope/model.pth"}); !IsArtifactNotFound(err) {
		t.Fatalf("expected artifact not found, got %v", err)
	}
}

func TestSeparate_MapsResult(t *testing.T) {
	f := newFixture(t, "model.onnx")
	o, _ := newTestOrchestrator(t, &fakeSeparator{errs: []error{errCUDAOOM, nil}}, StaticProbe(true))
	resp, err := o.Separate(testCtx(t), f.request("mdx"))
	if err != nil {
		t.Fatalf("separate: %v", err)
	}
	if resp.JobID == "" || resp.DeviceUsed != "cpu" || !resp.FallbackOccurred || len(resp.Outputs) != 2 {
		t.Fatalf("unexpected: %+v", resp)
	}
	if len(resp.Attempts) != 2 || resp.Attempts[0].Outcome != "failed" || resp.Attempts[0].Error == "" || resp.Attempts[1].Outcome != "succeeded" {
		t.Fatalf("attempts: %+v", resp.Attempts)
	}
	if resp.Config.Arch != "mdx" || resp.Config.Source != "default" {
		t.Fatalf("config: %+v", resp.Config)
	}
}
