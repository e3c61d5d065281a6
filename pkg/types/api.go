package types

// ResolveRequest asks for the configuration of one model without running it.
type ResolveRequest struct {
	// Architecture family: mdx, mdxc, vr or demucs.
	Arch string `json:"arch" validate:"required,oneof=mdx mdxc vr demucs"`
	// Model path or identifier known to the local model directory.
	Model string `json:"model" validate:"required"`
	// Optional explicit config document (JSON or YAML).
	ConfigPath string    `json:"config_path,omitempty"`
	Overrides  Overrides `json:"overrides,omitempty"`
}

// ResolveResponse describes a resolved model configuration.
type ResolveResponse struct {
	Model         string `json:"model"`
	Path          string `json:"path"`
	Arch          string `json:"arch"`
	Source        string `json:"source"`
	Hash          string `json:"hash,omitempty"`
	PrimaryStem   string `json:"primary_stem"`
	SecondaryStem string `json:"secondary_stem"`
	// Architecture-specific parameters.
	Params any `json:"params"`
}

// SeparateRequest runs one separation job.
type SeparateRequest struct {
	Arch       string `json:"arch" validate:"required,oneof=mdx mdxc vr demucs"`
	Model      string `json:"model" validate:"required"`
	Input      string `json:"input" validate:"required"`
	OutputDir  string `json:"output_dir" validate:"required"`
	Device     string `json:"device,omitempty" validate:"omitempty,oneof=auto gpu cpu"`
	ConfigPath string `json:"config_path,omitempty"`
	// Stem selection, e.g. "vocals" or "all". Empty selects the model's primary stem.
	Stem          string            `json:"stem,omitempty"`
	PrimaryOnly   bool              `json:"primary_only,omitempty"`
	SecondaryOnly bool              `json:"secondary_only,omitempty"`
	Overrides     Overrides         `json:"overrides,omitempty"`
	Options       ProcessingOptions `json:"options,omitempty"`
}

// Attempt reports one execution try.
type Attempt struct {
	Device   string `json:"device"`
	Outcome  string `json:"outcome"`
	Fallback bool   `json:"fallback"`
	Error    string `json:"error,omitempty"`
}

// SeparateResponse is returned by POST /separate on success.
type SeparateResponse struct {
	JobID            string          `json:"job_id"`
	Outputs          []string        `json:"outputs"`
	DeviceUsed       string          `json:"device_used"`
	FallbackOccurred bool            `json:"fallback_occurred"`
	Config           ResolveResponse `json:"config"`
	Attempts         []Attempt       `json:"attempts"`
	DurationMS       int64           `json:"duration_ms"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	Error string `json:"error"`
	// HTTP status code.
	Code int `json:"code"`
	// Error category for classified separation failures.
	Category string `json:"category,omitempty"`
	// Remediation hint for classified separation failures.
	Suggestion string `json:"suggestion,omitempty"`
}

// HashCacheStatus summarizes the fingerprint cache.
type HashCacheStatus struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Orchestrator state (idle, resolving_config, acquiring_device, running).
	State string `json:"state"`
	// Job currently executing, if any.
	CurrentJob string `json:"current_job,omitempty"`
	// Number of jobs waiting for the execution slot.
	QueueLen  int    `json:"queue_len"`
	Started   uint64 `json:"jobs_started"`
	Succeeded uint64 `json:"jobs_succeeded"`
	Failed    uint64 `json:"jobs_failed"`
	Fallbacks uint64 `json:"fallbacks_total"`
	// Last error observed by the orchestrator (if any).
	LastError      string          `json:"last_error,omitempty"`
	GPUAvailable   bool            `json:"gpu_available"`
	HashCache      HashCacheStatus `json:"hash_cache"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	ServerTimeUnix int64           `json:"server_time_unix"`
}
