package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	stderrTailBytes  = 4096
	terminateTimeout = 2 * time.Second
)

// SubprocessSeparator runs an external command per job. The job is written to
// the command's stdin as JSON; a non-zero exit is reported with the tail of
// stderr so the failure can be classified.
type SubprocessSeparator struct {
	command []string
	env     []string
	log     zerolog.Logger
}

// NewSubprocessSeparator returns a separator running command. env entries of
// the form KEY=VALUE are appended to the inherited environment.
func NewSubprocessSeparator(command, env []string, logger *zerolog.Logger) *SubprocessSeparator {
	s := &SubprocessSeparator{
		command: append([]string(nil), command...),
		env:     append([]string(nil), env...),
		log:     zerolog.Nop(),
	}
	if logger != nil {
		s.log = logger.With().Str("adapter", "subprocess").Logger()
	}
	return s
}

func (s *SubprocessSeparator) Separate(ctx context.Context, job Job) error {
	if len(s.command) == 0 {
		return ErrDependencyUnavailable("separator command is empty")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), s.env...)
	cmd.Env = append(cmd.Env, "STEMD_JOB_ID="+job.ID, "STEMD_DEVICE="+string(job.Device))
	// Ask politely first, then kill after terminateTimeout.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = terminateTimeout

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &lineLogger{log: s.log, jobID: job.ID}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start separator: %w", err)
	}
	s.log.Debug().Str("event", "start").Str("job_id", job.ID).Int("pid", cmd.Process.Pid).Str("device", string(job.Device)).Msg("separator started")
	werr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if werr != nil {
		s.log.Debug().Str("event", "exit").Str("job_id", job.ID).Err(werr).Dur("dur", time.Since(start)).Msg("separator failed")
		return fmt.Errorf("separator exited: %v; stderr tail: %s", werr, tail(stderr.Bytes(), stderrTailBytes))
	}
	s.log.Debug().Str("event", "exit").Str("job_id", job.ID).Dur("dur", time.Since(start)).Msg("separator done")
	return nil
}

// lineLogger logs complete stdout lines of the separator at debug level.
type lineLogger struct {
	log   zerolog.Logger
	jobID string
	buf   []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		idx := bytes.IndexByte(l.buf, '\n')
		if idx < 0 {
			break
		}
		if line := bytes.TrimSpace(l.buf[:idx]); len(line) > 0 {
			l.log.Debug().Str("job_id", l.jobID).Msg(string(line))
		}
		l.buf = l.buf[idx+1:]
	}
	return len(p), nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(bytes.TrimSpace(b))
}
