package depcoord

import (
	"github.com/hashicorp/go-hclog"
)

// loggingHook adapts a hclog.Logger into a Hook, replacing the teacher's
// fmt.Printf-based Extension.Wrap logging (extensions/logging.go) with
// structured, leveled, named log lines — the same upgrade
// hashicorp-terraform applies over ad-hoc printf logging
// (internal/backend/remote-state/oci/log.go).
type loggingHook struct {
	BaseHook
	log hclog.Logger
}

func newLoggingHook(log hclog.Logger) *loggingHook {
	return &loggingHook{log: log.Named("depcoord")}
}

func (h *loggingHook) OnRefreshStart(attempt uint32, reasonMissing bool) {
	reason := "task_required_update"
	if reasonMissing {
		reason = "missing_dependency"
	}
	h.log.Debug("refresh starting", "attempt", attempt, "reason", reason)
}

func (h *loggingHook) OnRefreshEnd(attempt uint32, kind string, err error) {
	switch kind {
	case "success":
		h.log.Info("refresh succeeded", "attempt", attempt)
	case "failure":
		h.log.Warn("refresh failed", "attempt", attempt, "error", err)
	case "cancelled":
		h.log.Debug("refresh cancelled", "attempt", attempt)
	}
}

func (h *loggingHook) OnTaskStart(version uint64) {
	h.log.Trace("task starting", "version", version)
}

func (h *loggingHook) OnTaskEnd(version uint64, kind string, err error) {
	switch kind {
	case "success":
		h.log.Trace("task succeeded", "version", version)
	case "failure":
		h.log.Debug("task failed", "version", version, "error", err)
	case "cancelled":
		h.log.Debug("task cancelled", "version", version)
	case "refresh_dependency":
		h.log.Debug("task reported stale dependency", "version", version)
	}
}

func (h *loggingHook) OnWaiterParked(queueLen int) {
	h.log.Trace("call parked behind in-flight refresh", "queue_len", queueLen)
}

func (h *loggingHook) OnWaiterResumed(kind string) {
	h.log.Trace("parked call resumed", "kind", kind)
}
