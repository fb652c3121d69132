package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/healis/realtime-service/internal/domain/model"
	"github.com/healis/realtime-service/internal/domain/queue"
	"github.com/healis/realtime-service/internal/domain/registry"
	"github.com/healis/realtime-service/internal/domain/rooms"
	"github.com/healis/realtime-service/internal/domain/routing"
	"github.com/healis/realtime-service/internal/observe"
)

// AuditAppender is the persistence collaborator consumed by the core:
// an append-only event sink, fire-and-forget from the core's view.
type AuditAppender interface {
	Append(ctx context.Context, record *model.AuditRecord) error
}

// [DISPATCHER] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (WebSocket/HTTP)
type Dispatcher interface {
	Admit(ctx context.Context, rawCredential string) (registry.Connector, error)
	Disconnect(conn registry.Connector)
	JoinDepartment(connID uuid.UUID, department string) error
	LeaveDepartment(connID uuid.UUID, department string) error
	SubscribeUpdates(connID uuid.UUID, departments []string) error
	Publish(ctx context.Context, actor model.Identity, kind model.EventKind, priority string, payload map[string]any) error
	PublishSystem(kind model.EventKind, payload map[string]any)
	Stats() model.ConnectionStats
	RecentEvents(limit int) []*queue.Entry
}

// Options tune the dispatch service.
type Options struct {
	// MailboxSize is the per-connection outbound buffer capacity.
	MailboxSize int
	// SendTimeout bounds one mailbox handoff before backpressure kicks in.
	SendTimeout time.Duration
	// DedupSize caps the recently-seen event-id cache.
	DedupSize int
}

func (o *Options) fill() {
	if o.MailboxSize <= 0 {
		o.MailboxSize = 1024
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 500 * time.Millisecond
	}
	if o.DedupSize <= 0 {
		o.DedupSize = 1024
	}
}

// DispatchService orchestrates the event path: admit -> join/leave ->
// publish -> route -> fan out -> critical path -> queue -> async audit.
type DispatchService struct {
	gate    *AuthGate
	reg     registry.Registrar
	rooms   *rooms.Index
	ring    *queue.Ring
	crit    *routing.CriticalPath
	audit   AuditAppender
	logger  *slog.Logger
	metrics *observe.Metrics
	seen    *lru.Cache[string, struct{}]
	opts    Options
	baseCtx context.Context
}

var _ Dispatcher = (*DispatchService)(nil)

func NewDispatchService(
	gate *AuthGate,
	reg registry.Registrar,
	idx *rooms.Index,
	ring *queue.Ring,
	crit *routing.CriticalPath,
	audit AuditAppender,
	logger *slog.Logger,
	metrics *observe.Metrics,
	opts Options,
) (*DispatchService, error) {
	opts.fill()
	seen, err := lru.New[string, struct{}](opts.DedupSize)
	if err != nil {
		return nil, fmt.Errorf("dispatch: dedup cache: %w", err)
	}
	return &DispatchService{
		gate:    gate,
		reg:     reg,
		rooms:   idx,
		ring:    ring,
		crit:    crit,
		audit:   audit,
		logger:  logger,
		metrics: metrics,
		seen:    seen,
		opts:    opts,
		baseCtx: context.Background(),
	}, nil
}

// Admit verifies the credential and, only on success, creates and
// registers a connection. A rejected credential leaves no trace: the
// connection is never registered.
func (s *DispatchService) Admit(ctx context.Context, rawCredential string) (registry.Connector, error) {
	identity, err := s.gate.Admit(rawCredential)
	if err != nil {
		s.metrics.EventsRejected.WithLabelValues("auth").Inc()
		return nil, err
	}

	conn := registry.NewConnector(ctx, identity, s.opts.MailboxSize)
	s.reg.Register(conn)
	s.metrics.ActiveConnections.Inc()

	s.logger.Info("connection admitted",
		"conn_id", conn.GetID(),
		"user_id", identity.UserID,
		"role", identity.Role,
		"department", identity.Department)
	return conn, nil
}

// Disconnect tears a connection down. Idempotent, always succeeds.
// Registry removal happens first so no broadcast can target the id while
// room membership is being cleared.
func (s *DispatchService) Disconnect(conn registry.Connector) {
	if conn == nil {
		return
	}
	id := conn.GetID()
	if s.reg.Remove(id) {
		s.metrics.ActiveConnections.Dec()
	}
	s.rooms.DropConnection(id)
	conn.Close()
	s.logger.Info("connection closed", "conn_id", id)
}

// JoinDepartment adds the connection to an explicit department group.
func (s *DispatchService) JoinDepartment(connID uuid.UUID, department string) error {
	if department == "" {
		return fmt.Errorf("dispatch: empty department name")
	}
	if _, err := s.reg.Lookup(connID); err != nil {
		return err
	}
	s.rooms.Join(connID, department)
	return nil
}

// LeaveDepartment removes the connection from a department group.
func (s *DispatchService) LeaveDepartment(connID uuid.UUID, department string) error {
	if _, err := s.reg.Lookup(connID); err != nil {
		return err
	}
	s.rooms.Leave(connID, department)
	return nil
}

// SubscribeUpdates joins a list of department groups in one action.
func (s *DispatchService) SubscribeUpdates(connID uuid.UUID, departments []string) error {
	if _, err := s.reg.Lookup(connID); err != nil {
		return err
	}
	for _, d := range departments {
		if d != "" {
			s.rooms.Join(connID, d)
		}
	}
	return nil
}

// Publish classifies an inbound clinical event, fans it out, and records
// it. Delivery completes before the durable write is even attempted.
func (s *DispatchService) Publish(ctx context.Context, actor model.Identity, kind model.EventKind, priority string, payload map[string]any) error {
	if payload == nil {
		s.metrics.EventsRejected.WithLabelValues("routing").Inc()
		return &routing.RoutingError{Reason: "missing payload"}
	}

	// A retried client frame carrying the same eventId is admitted once.
	if rawID, ok := payload["eventId"].(string); ok && rawID != "" {
		if found, _ := s.seen.ContainsOrAdd(rawID, struct{}{}); found {
			s.metrics.EventsRejected.WithLabelValues("duplicate").Inc()
			return nil
		}
	}

	tier := routing.PriorityFor(kind, priority, payload)
	ev := model.NewClinicalEvent(kind, tier, actor.UserID, actor.Department, payload)

	targets, err := routing.Route(ev)
	if err != nil {
		s.metrics.EventsRejected.WithLabelValues("routing").Inc()
		s.logger.Warn("event dropped", "kind", kind.String(), "error", err)
		return err
	}

	resolved, delivered := s.fanOut(ev, targets)
	s.metrics.EventsProcessed.WithLabelValues(kind.String(), tier.String()).Inc()

	entry := &queue.Entry{
		Event:     ev,
		Processed: true,
		Targets:   resolved,
		Delivered: delivered,
	}

	// [CRITICAL_PATH] Synchronous, in-line, before queueing. A failure
	// degrades audit fidelity only; the fan-out above already ran.
	if routing.Escalates(ev) {
		deadline, derr := s.crit.Deadline(ev)
		if derr != nil {
			s.logger.Error("critical path degraded", "event_id", ev.GetID(), "error", derr)
		} else {
			entry.DeadlineAt = deadline
		}
	}

	s.ring.Push(entry)
	s.metrics.QueueOccupancy.Set(float64(s.ring.Len()))

	// [ASYNC_PERSIST] Best-effort background append. Broadcast completion
	// never waits on durability.
	go s.appendAudit(entry)

	return nil
}

// PublishSystem injects a server-originated event (health alerts, metric
// samples) into the delivery path. System events are not audited: the
// ring holds clinical traffic only.
func (s *DispatchService) PublishSystem(kind model.EventKind, payload map[string]any) {
	tier := model.PriorityLow
	if kind == model.SystemAlert {
		tier = model.PriorityHigh
	}
	ev := model.NewClinicalEvent(kind, tier, "", "", payload)
	targets, err := routing.Route(ev)
	if err != nil {
		s.logger.Warn("system event dropped", "kind", kind.String(), "error", err)
		return
	}
	s.fanOut(ev, targets)
}

// fanOut resolves the concrete connection set for each target and hands
// one frame to every mailbox. Each target is attempted independently and
// concurrently: a slow or closed connection neither delays nor drops
// delivery to the others.
func (s *DispatchService) fanOut(ev model.Eventer, targets []routing.Target) (resolved, delivered int) {
	start := time.Now()

	type handoff struct {
		conn  registry.Connector
		frame *model.OutboundFrame
	}

	var handoffs []handoff
	dedup := make(map[string]struct{})

	add := func(conn registry.Connector, eventName string) {
		key := conn.GetID().String() + "|" + eventName
		if _, dup := dedup[key]; dup {
			return
		}
		dedup[key] = struct{}{}
		handoffs = append(handoffs, handoff{
			conn: conn,
			frame: &model.OutboundFrame{
				Envelope: model.NewEnvelope(eventName, map[string]any{
					"eventId":  ev.GetID(),
					"priority": ev.GetPriority().String(),
					"payload":  ev.GetPayload(),
				}),
				Priority: ev.GetPriority(),
			},
		})
	}

	for _, t := range targets {
		switch t.Scope {
		case routing.ScopeDepartment:
			for _, id := range s.rooms.MembersOf(t.Name) {
				if conn, ok := s.reg.Get(id); ok {
					add(conn, t.EventName)
				}
			}
		case routing.ScopeRole:
			s.reg.ForEach(func(conn registry.Connector) bool {
				if conn.GetIdentity().Role == t.Name {
					add(conn, t.EventName)
				}
				return true
			})
		case routing.ScopeUser:
			s.reg.ForEach(func(conn registry.Connector) bool {
				if conn.GetIdentity().UserID == t.Name {
					add(conn, t.EventName)
				}
				return true
			})
		case routing.ScopeAll:
			s.reg.ForEach(func(conn registry.Connector) bool {
				add(conn, t.EventName)
				return true
			})
		}
	}

	var ok uint64
	var wg sync.WaitGroup
	for _, h := range handoffs {
		wg.Add(1)
		go func(h handoff) {
			defer wg.Done()
			if h.conn.Send(h.frame, s.opts.SendTimeout) {
				atomic.AddUint64(&ok, 1)
				s.metrics.Deliveries.WithLabelValues("delivered").Inc()
			} else {
				s.metrics.Deliveries.WithLabelValues("dropped").Inc()
			}
		}(h)
	}
	wg.Wait()

	s.metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	return len(handoffs), int(atomic.LoadUint64(&ok))
}

// appendAudit forwards the processed entry to the persistence sink with
// its own deadline, detached from the request lifecycle.
func (s *DispatchService) appendAudit(entry *queue.Entry) {
	ctx, cancel := context.WithTimeout(s.baseCtx, 5*time.Second)
	defer cancel()

	ev := entry.Event
	record := &model.AuditRecord{
		EventID:    ev.GetID(),
		Kind:       ev.GetKind().String(),
		Priority:   ev.GetPriority().String(),
		ActorID:    ev.GetActorID(),
		Department: ev.GetDepartment(),
		Payload:    ev.GetPayload(),
		OccurredAt: ev.GetOccurredAt(),
		Targets:    entry.Targets,
		Delivered:  entry.Delivered,
		DeadlineAt: entry.DeadlineAt,
	}

	if err := s.audit.Append(ctx, record); err != nil {
		// Audit completeness degrades; delivery already happened and the
		// failure never propagates to connections.
		s.logger.Warn("audit append failed", "event_id", record.EventID, "error", err)
	}
}

// Stats assembles the observability view over registry, rooms and queue.
func (s *DispatchService) Stats() model.ConnectionStats {
	perRole := make(map[string]int)
	s.reg.ForEach(func(conn registry.Connector) bool {
		perRole[conn.GetIdentity().Role]++
		return true
	})

	return model.ConnectionStats{
		TotalConnections: s.reg.Len(),
		PerDepartment:    s.rooms.Counts(),
		PerRole:          perRole,
		QueueSize:        s.ring.Len(),
	}
}

// RecentEvents returns the last processed entries, newest last.
func (s *DispatchService) RecentEvents(limit int) []*queue.Entry {
	return s.ring.Recent(limit)
}
