package model

import "time"

// Outbound event names carried in the envelope. These are the wire
// vocabulary clients subscribe to; several map onto one EventKind
// (a completed lab test goes out as both lab-test-update and
// results-ready).
const (
	EnvelopePatientUpdate        = "patient-update"
	EnvelopeCriticalPatientAlert = "critical-patient-alert"
	EnvelopeMedicineAlert        = "medicine-alert"
	EnvelopeStockAlert           = "stock-alert"
	EnvelopeLabTestUpdate        = "lab-test-update"
	EnvelopeLabTestResult        = "lab-test-result"
	EnvelopeResultsReady         = "results-ready"
	EnvelopeEmergencyAlert       = "emergency-alert"
	EnvelopeSystemAlert          = "system-alert"
	EnvelopeMetricsUpdate        = "metrics-update"
)

// Envelope is the uniform wrapper for every server-originated frame.
type Envelope struct {
	EventName string `json:"eventName"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// NewEnvelope wraps payload data for transmission. Source is always
// "system": clients never relay raw peer frames.
func NewEnvelope(eventName string, data any) *Envelope {
	return &Envelope{
		EventName: eventName,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Source:    "system",
	}
}
