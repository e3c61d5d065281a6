package orchestrator

import (
	"time"

	"stemd/pkg/types"
)

// Status builds a detailed status response for /status.
func (o *Orchestrator) Status() types.StatusResponse {
	o.mu.RLock()
	resp := types.StatusResponse{
		State:      string(o.state),
		CurrentJob: o.currentJob,
		Started:    o.started,
		Succeeded:  o.succeeded,
		Failed:     o.failed,
		Fallbacks:  o.fallbacks,
		LastError:  o.lastErr,
	}
	started := o.startTime
	o.mu.RUnlock()

	resp.QueueLen = o.queued()
	resp.GPUAvailable = o.probe.GPUAvailable()
	st := o.cache.Stats()
	resp.HashCache = types.HashCacheStatus{Entries: st.Entries, Hits: st.Hits, Misses: st.Misses}
	now := time.Now()
	resp.UptimeSeconds = int64(now.Sub(started).Seconds())
	resp.ServerTimeUnix = now.Unix()
	return resp
}
