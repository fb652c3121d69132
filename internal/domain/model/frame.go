package model

// OutboundFrame pairs a wire envelope with the priority of the event that
// produced it. Priority rides alongside so a saturated connection mailbox
// can shed low-priority frames in favor of critical ones.
type OutboundFrame struct {
	Envelope *Envelope
	Priority EventPriority
}
