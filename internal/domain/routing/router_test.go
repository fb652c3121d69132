package routing

import (
	"testing"

	"github.com/healis/realtime-service/internal/domain/model"
)

func hasTarget(targets []Target, scope TargetScope, name, eventName string) bool {
	for _, t := range targets {
		if t.Scope == scope && t.Name == name && t.EventName == eventName {
			return true
		}
	}
	return false
}

func TestRoutePatientUpdate(t *testing.T) {
	ev := model.NewClinicalEvent(model.PatientUpdate, model.PriorityMedium, "u1", "emergency", map[string]any{})
	targets, err := Route(ev)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if !hasTarget(targets, ScopeDepartment, model.DepartmentEmergency, model.EnvelopePatientUpdate) {
		t.Fatalf("missing emergency department target: %v", targets)
	}
	if !hasTarget(targets, ScopeDepartment, model.DepartmentNursing, model.EnvelopePatientUpdate) {
		t.Fatalf("missing nursing department target: %v", targets)
	}
	if hasTarget(targets, ScopeRole, model.RoleAdmin, model.EnvelopeCriticalPatientAlert) {
		t.Fatalf("non-critical update must not reach admins: %v", targets)
	}
}

func TestRouteCriticalPatientUpdateAddsAdmins(t *testing.T) {
	ev := model.NewClinicalEvent(model.PatientUpdate, model.PriorityCritical, "u1", "emergency", map[string]any{})
	targets, err := Route(ev)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if !hasTarget(targets, ScopeRole, model.RoleAdmin, model.EnvelopeCriticalPatientAlert) {
		t.Fatalf("critical update must target admins: %v", targets)
	}
}

func TestRouteMedicineAlert(t *testing.T) {
	tests := []struct {
		name         string
		alertType    string
		pharmacyName string
	}{
		{"stock exhaustion", AlertOutOfStock, model.EnvelopeStockAlert},
		{"low stock", AlertLowStock, model.EnvelopeStockAlert},
		{"expired", AlertExpired, model.EnvelopeStockAlert},
		{"generic", "recall", model.EnvelopeMedicineAlert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := model.NewClinicalEvent(model.MedicineAlert, model.PriorityMedium, "", "", map[string]any{FieldAlertType: tt.alertType})
			targets, err := Route(ev)
			if err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if !hasTarget(targets, ScopeDepartment, model.DepartmentPharmacy, tt.pharmacyName) {
				t.Fatalf("pharmacy target wrong: %v", targets)
			}
			if !hasTarget(targets, ScopeRole, model.RoleAdmin, model.EnvelopeMedicineAlert) {
				t.Fatalf("admin target missing: %v", targets)
			}
		})
	}
}

func TestRouteLabTestUpdateWithClinician(t *testing.T) {
	ev := model.NewClinicalEvent(model.LabTestUpdate, model.PriorityMedium, "", "", map[string]any{
		FieldRequestedBy: "doc-7",
		FieldStatus:      "completed",
	})
	targets, err := Route(ev)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if !hasTarget(targets, ScopeDepartment, model.DepartmentLaboratory, model.EnvelopeLabTestUpdate) {
		t.Fatalf("laboratory target missing: %v", targets)
	}
	if !hasTarget(targets, ScopeUser, "doc-7", model.EnvelopeLabTestResult) {
		t.Fatalf("requesting clinician must be targeted: %v", targets)
	}
	if !hasTarget(targets, ScopeUser, "doc-7", model.EnvelopeResultsReady) {
		t.Fatalf("completed test must additionally push results-ready: %v", targets)
	}
}

func TestRouteLabTestUpdateWithoutClinician(t *testing.T) {
	ev := model.NewClinicalEvent(model.LabTestUpdate, model.PriorityMedium, "", "", map[string]any{})
	targets, err := Route(ev)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	for _, tg := range targets {
		if tg.Scope == ScopeUser {
			t.Fatalf("no clinician field, yet user target present: %v", targets)
		}
	}
}

func TestRouteEmergencyAlert(t *testing.T) {
	// Supplied priority is irrelevant: emergency pins to critical and
	// always reaches everyone.
	tier := PriorityFor(model.EmergencyAlert, "low", nil)
	if tier != model.PriorityCritical {
		t.Fatalf("emergency priority = %v, want critical", tier)
	}
	ev := model.NewClinicalEvent(model.EmergencyAlert, tier, "", "", map[string]any{})
	targets, err := Route(ev)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if !hasTarget(targets, ScopeAll, "", model.EnvelopeEmergencyAlert) {
		t.Fatalf("emergency must target all connections: %v", targets)
	}
	if !Escalates(ev) {
		t.Fatalf("emergency must always escalate to the critical path")
	}
}

func TestRouteUnknownKind(t *testing.T) {
	ev := model.NewClinicalEvent(model.EventKind(99), model.PriorityLow, "", "", map[string]any{})
	if _, err := Route(ev); err == nil {
		t.Fatalf("expected RoutingError for unknown kind")
	}
	if _, err := Route(nil); err == nil {
		t.Fatalf("expected RoutingError for nil event")
	}
}

func TestPriorityDefaults(t *testing.T) {
	tests := []struct {
		name      string
		kind      model.EventKind
		requested string
		payload   map[string]any
		want      model.EventPriority
	}{
		{"explicit wins", model.PatientUpdate, "high", nil, model.PriorityHigh},
		{"patient default", model.PatientUpdate, "", nil, model.PriorityMedium},
		{"medicine stock-out", model.MedicineAlert, "", map[string]any{FieldAlertType: AlertOutOfStock}, model.PriorityHigh},
		{"medicine expired", model.MedicineAlert, "", map[string]any{FieldAlertType: AlertExpired}, model.PriorityHigh},
		{"medicine routine", model.MedicineAlert, "", map[string]any{FieldAlertType: AlertLowStock}, model.PriorityMedium},
		{"emergency ignores input", model.EmergencyAlert, "low", nil, model.PriorityCritical},
		{"unknown label falls back", model.LabTestUpdate, "urgent-ish", nil, model.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PriorityFor(tt.kind, tt.requested, tt.payload); got != tt.want {
				t.Fatalf("PriorityFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
