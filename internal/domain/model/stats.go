package model

// HealthStatus is the tri-state signal derived from queue pressure and
// transport availability. It is computed on demand, never stored.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthSnapshot is one sample of the derived health signal.
type HealthSnapshot struct {
	Status        HealthStatus `json:"status"`
	Connections   int          `json:"connections"`
	QueueSize     int          `json:"queueSize"`
	QueueCapacity int          `json:"queueCapacity"`
	UptimeSeconds int64        `json:"uptimeSeconds"`
}

// ConnectionStats is the observability view over the registry and queue.
type ConnectionStats struct {
	TotalConnections int            `json:"totalConnections"`
	PerDepartment    map[string]int `json:"perDepartmentCounts"`
	PerRole          map[string]int `json:"perRoleCounts"`
	QueueSize        int            `json:"queueSize"`
}

// AuditRecord is the durable representation of a processed event handed
// to the persistence sink. DeadlineAt is set only on the critical path.
type AuditRecord struct {
	EventID    string         `json:"event_id"`
	Kind       string         `json:"kind"`
	Priority   string         `json:"priority"`
	ActorID    string         `json:"actor_id,omitempty"`
	Department string         `json:"department,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt int64          `json:"occurred_at"`
	Targets    int            `json:"targets"`
	Delivered  int            `json:"delivered"`
	DeadlineAt int64          `json:"deadline_at,omitempty"`
}
