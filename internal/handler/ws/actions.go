package ws

import (
	"context"
	"encoding/json"

	"github.com/healis/realtime-service/internal/domain/model"
	"github.com/healis/realtime-service/internal/domain/registry"
)

// Client-originated action names that are not event publications.
const (
	actionJoinDepartment   = "join-department"
	actionLeaveDepartment  = "leave-department"
	actionSubscribeUpdates = "subscribe-updates"
)

// actionFrame is the inbound wire shape: {"action": ..., "data": {...}}.
type actionFrame struct {
	Action string         `json:"action"`
	Data   map[string]any `json:"data"`
}

// handleAction decodes and executes one client frame. All failures are
// terminal for the frame only: log, drop, keep the connection.
func (h *Handler) handleAction(conn registry.Connector, raw []byte) {
	var frame actionFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.logger.Warn("malformed action frame", "conn_id", conn.GetID(), "error", err)
		return
	}

	switch frame.Action {
	case actionJoinDepartment:
		name, _ := frame.Data["name"].(string)
		if err := h.dispatcher.JoinDepartment(conn.GetID(), name); err != nil {
			h.logger.Warn("join-department rejected", "conn_id", conn.GetID(), "error", err)
		}

	case actionLeaveDepartment:
		name, _ := frame.Data["name"].(string)
		if err := h.dispatcher.LeaveDepartment(conn.GetID(), name); err != nil {
			h.logger.Warn("leave-department rejected", "conn_id", conn.GetID(), "error", err)
		}

	case actionSubscribeUpdates:
		groups := stringSlice(frame.Data["groups"])
		if err := h.dispatcher.SubscribeUpdates(conn.GetID(), groups); err != nil {
			h.logger.Warn("subscribe-updates rejected", "conn_id", conn.GetID(), "error", err)
		}

	default:
		kind, ok := model.ParseEventKind(frame.Action)
		if !ok || !publishable(kind) {
			h.logger.Warn("unknown action", "conn_id", conn.GetID(), "action", frame.Action)
			return
		}
		priority, _ := frame.Data["priority"].(string)
		err := h.dispatcher.Publish(context.Background(), conn.GetIdentity(), kind, priority, frame.Data)
		if err != nil {
			// Fire-and-forget semantics: the publisher sees nothing.
			h.logger.Warn("event dropped", "conn_id", conn.GetID(), "action", frame.Action, "error", err)
		}
	}
}

// publishable reports whether clients may originate events of this kind.
// system-alert and metrics-update are server-only: they are minted by the
// health monitor, and accepting them from the wire would let any staff
// connection spoof a hospital-wide alert.
func publishable(kind model.EventKind) bool {
	switch kind {
	case model.PatientUpdate, model.MedicineAlert, model.LabTestUpdate, model.EmergencyAlert:
		return true
	}
	return false
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
