package routing

import (
	"fmt"
	"time"

	"github.com/healis/realtime-service/internal/domain/model"
)

// DefaultResponseDeadline is the window within which staff are expected
// to acknowledge a critical event. Advisory metadata on the audit record,
// not an enforced timeout.
const DefaultResponseDeadline = 5 * time.Minute

// CriticalPath is the synchronous extra step applied to critical-tier
// events between target resolution and queueing. It is the one place
// where processing is not fire-and-forget: the deadline must be stamped
// before the event counts as processed.
type CriticalPath struct {
	offset time.Duration
	now    func() time.Time
}

func NewCriticalPath(offset time.Duration) *CriticalPath {
	if offset <= 0 {
		offset = DefaultResponseDeadline
	}
	return &CriticalPath{offset: offset, now: time.Now}
}

// Deadline computes the response deadline for a critical event, in unix
// milliseconds. Failure here degrades audit fidelity only; delivery has
// already been dispatched by the resolved targets.
func (cp *CriticalPath) Deadline(ev model.Eventer) (int64, error) {
	if ev == nil {
		return 0, fmt.Errorf("critical path: nil event")
	}
	if !Escalates(ev) {
		return 0, fmt.Errorf("critical path: event %s is not critical", ev.GetID())
	}
	receipt := time.UnixMilli(ev.GetOccurredAt())
	if receipt.IsZero() || ev.GetOccurredAt() <= 0 {
		receipt = cp.now()
	}
	return receipt.Add(cp.offset).UnixMilli(), nil
}
