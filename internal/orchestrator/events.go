package orchestrator

// Event represents an orchestrator lifecycle event.
// Minimal and stable: name + job ID and optional fields via key/values.
type Event struct {
	Name   string
	JobID  string
	Fields map[string]any
}

// Event names published during a job.
const (
	EventResolveStart   = "resolve_start"
	EventResolveDone    = "resolve_done"
	EventDeviceSelected = "device_selected"
	EventRunStart       = "run_start"
	EventRunFailed      = "run_failed"
	EventFallback       = "fallback"
	EventRunDone        = "run_done"
	EventRunFatal       = "run_fatal"
)

// EventPublisher receives events from the orchestrator. Implementations should
// be lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// ProgressSink receives coarse stage names and free-form messages while a job
// runs, for terminal or UI rendering.
type ProgressSink interface {
	Stage(name string)
	Message(text string)
}

// NopProgress discards progress.
type NopProgress struct{}

func (NopProgress) Stage(string)   {}
func (NopProgress) Message(string) {}
