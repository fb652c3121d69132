// Package routing classifies clinical events and resolves their delivery
// target sets. Everything here is a pure function of event kind, payload
// fields, and priority: no network or storage side effects.
package routing

import (
	"fmt"

	"github.com/healis/realtime-service/internal/domain/model"
)

// TargetScope discriminates how a delivery target is resolved.
type TargetScope int8

const (
	ScopeDepartment TargetScope = iota + 1
	ScopeRole
	ScopeUser
	ScopeAll
)

// Target names one resolved recipient set plus the wire event name its
// members receive. One routed event commonly yields several targets with
// different names (a critical patient update reaches its department as
// patient-update and admins as critical-patient-alert).
type Target struct {
	Scope     TargetScope
	Name      string // group / role / user id; empty for ScopeAll
	EventName string
}

// RoutingError marks a malformed or unroutable event. The event is
// dropped and logged; no broadcast is attempted.
type RoutingError struct {
	Reason string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing: %s", e.Reason)
}

// Payload field names the policy table inspects.
const (
	FieldAlertType   = "alertType"
	FieldRequestedBy = "requestedBy"
	FieldStatus      = "status"
)

// Stock-related alert sub-types (medicine urgency ladder).
const (
	AlertOutOfStock = "out-of-stock"
	AlertLowStock   = "low-stock"
	AlertExpired    = "expired"
)

// PriorityFor applies the per-kind defaulting rules when the caller did
// not supply a priority label. Emergency alerts are pinned to critical
// regardless of input: a client cannot downgrade one.
func PriorityFor(kind model.EventKind, requested string, payload map[string]any) model.EventPriority {
	if kind == model.EmergencyAlert {
		return model.PriorityCritical
	}
	if requested != "" {
		return model.ParsePriority(requested)
	}
	switch kind {
	case model.MedicineAlert:
		// Stock exhaustion outranks routine inventory chatter.
		switch stringField(payload, FieldAlertType) {
		case AlertOutOfStock, AlertExpired:
			return model.PriorityHigh
		default:
			return model.PriorityMedium
		}
	default:
		return model.PriorityMedium
	}
}

// Route resolves the delivery target set for an event. Table-driven by
// event kind; unknown kinds are a RoutingError.
func Route(ev model.Eventer) ([]Target, error) {
	if ev == nil {
		return nil, &RoutingError{Reason: "nil event"}
	}

	switch ev.GetKind() {
	case model.PatientUpdate:
		targets := []Target{
			{Scope: ScopeDepartment, Name: model.DepartmentEmergency, EventName: model.EnvelopePatientUpdate},
			{Scope: ScopeDepartment, Name: model.DepartmentNursing, EventName: model.EnvelopePatientUpdate},
		}
		if ev.GetPriority() == model.PriorityCritical {
			targets = append(targets, Target{Scope: ScopeRole, Name: model.RoleAdmin, EventName: model.EnvelopeCriticalPatientAlert})
		}
		return targets, nil

	case model.MedicineAlert:
		pharmacyName := model.EnvelopeMedicineAlert
		switch stringField(ev.GetPayload(), FieldAlertType) {
		case AlertOutOfStock, AlertLowStock, AlertExpired:
			pharmacyName = model.EnvelopeStockAlert
		}
		return []Target{
			{Scope: ScopeDepartment, Name: model.DepartmentPharmacy, EventName: pharmacyName},
			{Scope: ScopeRole, Name: model.RoleAdmin, EventName: model.EnvelopeMedicineAlert},
		}, nil

	case model.LabTestUpdate:
		targets := []Target{
			{Scope: ScopeDepartment, Name: model.DepartmentLaboratory, EventName: model.EnvelopeLabTestUpdate},
		}
		if clinician := stringField(ev.GetPayload(), FieldRequestedBy); clinician != "" {
			targets = append(targets, Target{Scope: ScopeUser, Name: clinician, EventName: model.EnvelopeLabTestResult})
			if stringField(ev.GetPayload(), FieldStatus) == "completed" {
				targets = append(targets, Target{Scope: ScopeUser, Name: clinician, EventName: model.EnvelopeResultsReady})
			}
		}
		return targets, nil

	case model.EmergencyAlert:
		return []Target{
			{Scope: ScopeAll, EventName: model.EnvelopeEmergencyAlert},
		}, nil

	case model.SystemAlert:
		return []Target{
			{Scope: ScopeAll, EventName: model.EnvelopeSystemAlert},
		}, nil

	case model.MetricsUpdate:
		return []Target{
			{Scope: ScopeRole, Name: model.RoleAdmin, EventName: model.EnvelopeMetricsUpdate},
		}, nil
	}

	return nil, &RoutingError{Reason: fmt.Sprintf("unroutable event kind %d", ev.GetKind())}
}

// Escalates reports whether the event must pass through the critical
// path before queueing. Emergency alerts always do; everything else only
// at the critical tier.
func Escalates(ev model.Eventer) bool {
	return ev.GetKind() == model.EmergencyAlert || ev.GetPriority() == model.PriorityCritical
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
