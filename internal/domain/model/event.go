package model

import (
	"time"

	"github.com/google/uuid"
)

type EventKind int16

const (
	PatientUpdate  EventKind = iota + 1 // [CLINICAL]
	MedicineAlert                       // [CLINICAL]
	LabTestUpdate                       // [CLINICAL]
	EmergencyAlert                      // [CLINICAL] always critical
	SystemAlert                         // [SYSTEM]
	MetricsUpdate                       // [SYSTEM]
)

var kindNames = map[EventKind]string{
	PatientUpdate:  "patient-update",
	MedicineAlert:  "medicine-alert",
	LabTestUpdate:  "lab-test-update",
	EmergencyAlert: "emergency-alert",
	SystemAlert:    "system-alert",
	MetricsUpdate:  "metrics-update",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEventKind maps an inbound wire action name to its kind.
func ParseEventKind(name string) (EventKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

type EventPriority int32

const (
	PriorityLow      EventPriority = 10
	PriorityMedium   EventPriority = 20
	PriorityHigh     EventPriority = 30
	PriorityCritical EventPriority = 40
)

var priorityNames = map[EventPriority]string{
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

func (p EventPriority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePriority maps a wire priority label to its tier. Unknown labels
// fall back to medium so a sloppy client cannot smuggle an event past
// the router with an unclassifiable tier.
func ParsePriority(name string) EventPriority {
	for p, n := range priorityNames {
		if n == name {
			return p
		}
	}
	return PriorityMedium
}

// Eventer defines the contract for all data packets flowing through the hub.
type Eventer interface {
	GetID() string
	GetKind() EventKind
	GetPriority() EventPriority
	GetOccurredAt() int64
	GetActorID() string
	GetDepartment() string
	GetPayload() map[string]any
}

// [GUARD] Ensure compliance with the Eventer interface.
var _ Eventer = (*ClinicalEvent)(nil)

// ClinicalEvent is the immutable record of one inbound clinical signal.
// All fields are fixed at construction; in particular the priority tier
// never changes once assigned by the router.
type ClinicalEvent struct {
	id         string
	kind       EventKind
	priority   EventPriority
	occurredAt int64
	actorID    string
	department string
	payload    map[string]any
}

func (e *ClinicalEvent) GetID() string               { return e.id }
func (e *ClinicalEvent) GetKind() EventKind          { return e.kind }
func (e *ClinicalEvent) GetPriority() EventPriority  { return e.priority }
func (e *ClinicalEvent) GetOccurredAt() int64        { return e.occurredAt }
func (e *ClinicalEvent) GetActorID() string          { return e.actorID }
func (e *ClinicalEvent) GetDepartment() string       { return e.department }
func (e *ClinicalEvent) GetPayload() map[string]any  { return e.payload }

// NewClinicalEvent is the universal factory for inbound clinical signals.
func NewClinicalEvent(kind EventKind, priority EventPriority, actorID, department string, payload map[string]any) *ClinicalEvent {
	return &ClinicalEvent{
		id:         uuid.NewString(),
		kind:       kind,
		priority:   priority,
		occurredAt: time.Now().UnixMilli(),
		actorID:    actorID,
		department: department,
		payload:    payload,
	}
}
