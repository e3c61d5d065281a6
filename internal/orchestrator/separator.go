package orchestrator

import (
	"context"
	"os/exec"
)

// Separator performs the actual stem separation for one job and writes the
// files named in Job.Outputs. Errors are classified by the orchestrator, so
// implementations should surface the underlying runtime message.
type Separator interface {
	Separate(ctx context.Context, job Job) error
}

// SeparatorFunc adapts a function to Separator.
type SeparatorFunc func(ctx context.Context, job Job) error

func (f SeparatorFunc) Separate(ctx context.Context, job Job) error { return f(ctx, job) }

func (o *Orchestrator) invokeSeparator(ctx context.Context, job Job) error {
	if o.separator == nil {
		return ErrDependencyUnavailable("no separator configured")
	}
	return o.separator.Separate(ctx, job)
}

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	SeparatorFound bool   `json:"separator_found"`
	SeparatorPath  string `json:"separator_path,omitempty"`
	GPUAvailable   bool   `json:"gpu_available"`
	Error          string `json:"error,omitempty"`
}

// SanityCheck validates that the separator can be invoked.
// It does not mutate state and is safe to call at any time.
func (o *Orchestrator) SanityCheck() SanityReport {
	r := SanityReport{GPUAvailable: o.probe.GPUAvailable()}
	switch s := o.separator.(type) {
	case nil:
		r.Error = "no separator configured"
	case *SubprocessSeparator:
		if len(s.command) == 0 {
			r.Error = "separator command is empty"
			return r
		}
		p, err := exec.LookPath(s.command[0])
		if err != nil {
			r.SeparatorPath = s.command[0]
			r.Error = err.Error()
			return r
		}
		r.SeparatorFound = true
		r.SeparatorPath = p
	default:
		r.SeparatorFound = true
	}
	return r
}
