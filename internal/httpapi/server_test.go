package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stemd/internal/classify"
	"stemd/internal/modelcfg"
	"stemd/internal/orchestrator"
	"stemd/pkg/types"
)

type mockService struct {
	models      []types.Model
	status      types.StatusResponse
	ready       bool
	resolveErr  error
	separateErr error
	block       bool
	lastReq     types.SeparateRequest
}

func (m *mockService) ListModels() []types.Model    { return append([]types.Model(nil), m.models...) }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func (m *mockService) Resolve(ctx context.Context, req types.ResolveRequest) (types.ResolveResponse, error) {
	if m.resolveErr != nil {
		return types.ResolveResponse{}, m.resolveErr
	}
	return types.ResolveResponse{
		Model: req.Model, Arch: req.Arch, Source: "registry",
		PrimaryStem: "Vocals", SecondaryStem: "Instrumental",
		Params: modelcfg.DefaultMDXParams(),
	}, nil
}

func (m *mockService) Separate(ctx context.Context, req types.SeparateRequest) (types.SeparateResponse, error) {
	m.lastReq = req
	if m.block {
		<-ctx.Done()
		return types.SeparateResponse{}, ctx.Err()
	}
	if m.separateErr != nil {
		return types.SeparateResponse{}, m.separateErr
	}
	return types.SeparateResponse{JobID: "job-1", Outputs: []string{"/out/song_(Vocals).wav"}, DeviceUsed: "gpu"}, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const separateBody = `{"arch":"mdx","model":"Kim_Vocal_2","input":"/in/song.wav","output_dir":"/out"}`

func TestModelsHandler(t *testing.T) {
	svc := &mockService{models: []types.Model{{ID: "m1"}, {ID: "m2"}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 {
		t.Fatalf("models len=%d", len(body.Models))
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "idle", Fallbacks: 3}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.State != "idle" || body.Fallbacks != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealthzAndReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", w.Code)
	}

	r = NewMux(&mockService{ready: false})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "unavailable") {
		t.Fatalf("readyz not ready: %d %q", w.Code, w.Body.String())
	}
}

func TestResolveHandler(t *testing.T) {
	r := NewMux(&mockService{})
	w := postJSON(r, "/resolve", `{"arch":"mdx","model":"Kim_Vocal_2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	params, _ := body["params"].(map[string]any)
	if body["source"] != "registry" || params["mdx_dim_f_set"] != float64(modelcfg.DefaultMDXDimF) {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSeparateHandler_OK(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := postJSON(r, "/separate", `{"arch":"vr","model":"1_HP-UVR","input":"/in/a.wav","output_dir":"/out","device":"cpu","primary_only":true,"overrides":{"vr_model_param":"4band_v2"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.SeparateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.JobID != "job-1" || len(body.Outputs) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if svc.lastReq.Device != "cpu" || !svc.lastReq.PrimaryOnly || svc.lastReq.Overrides.VRParamPreset == nil || *svc.lastReq.Overrides.VRParamPreset != "4band_v2" {
		t.Fatalf("request not decoded: %+v", svc.lastReq)
	}
}

func TestSeparateHandler_RequestChecks(t *testing.T) {
	r := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodPost, "/separate", bytes.NewBufferString(separateBody))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("missing content type: %d", w.Code)
	}
	if w := postJSON(r, "/separate", `{"arch":`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", w.Code)
	}
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(16)
	if w := postJSON(r, "/separate", separateBody); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: %d", w.Code)
	}
}

func TestSeparateHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		code     int
		category string
	}{
		{"not found", modelcfg.ErrArtifactNotFound("/models/x.onnx"), http.StatusNotFound, ""},
		{"too busy", orchestrator.ErrTooBusy("job-1"), http.StatusTooManyRequests, ""},
		{"no separator", orchestrator.ErrDependencyUnavailable("no separator configured"), http.StatusServiceUnavailable, ""},
		{"model failure", classify.Wrap(errors.New("Invalid model format")), http.StatusUnprocessableEntity, "Model"},
		{"audio failure", classify.Wrap(errors.New("unsupported format: .xyz")), http.StatusUnprocessableEntity, "Audio"},
		{"device exhausted", classify.Wrap(errors.New("CUDA out of memory")), http.StatusServiceUnavailable, "Device"},
		{"unknown failure", classify.Wrap(errors.New("xyz123")), http.StatusInternalServerError, "Unknown"},
		{"custom http", mockHTTPError{msg: "teapot", code: http.StatusTeapot}, http.StatusTeapot, ""},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewMux(&mockService{separateErr: tc.err})
			w := postJSON(r, "/separate", separateBody)
			if w.Code != tc.code {
				t.Fatalf("status=%d want %d", w.Code, tc.code)
			}
			var body types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("json: %v", err)
			}
			if body.Code != tc.code || body.Category != tc.category || body.Error == "" {
				t.Fatalf("unexpected body: %+v", body)
			}
			if tc.category != "" && body.Suggestion == "" {
				t.Fatalf("missing suggestion: %+v", body)
			}
		})
	}
}

func TestSeparateHandler_Timeout(t *testing.T) {
	defer SetSeparateTimeout(0)
	SetSeparateTimeout(50 * time.Millisecond)
	r := NewMux(&mockService{block: true})
	if w := postJSON(r, "/separate", separateBody); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on timeout, got %d", w.Code)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}
