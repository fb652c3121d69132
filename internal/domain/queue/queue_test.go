package queue

import (
	"testing"

	"github.com/healis/realtime-service/internal/domain/model"
)

func entry(kind model.EventKind, tag string) *Entry {
	return &Entry{
		Event:     model.NewClinicalEvent(kind, model.PriorityMedium, "", "", map[string]any{"tag": tag}),
		Processed: true,
	}
}

func tagOf(e *Entry) string {
	v, _ := e.Event.GetPayload()["tag"].(string)
	return v
}

func TestRingFIFOEviction(t *testing.T) {
	r := NewRing(3)
	for _, tag := range []string{"a", "b", "c", "d"} {
		r.Push(entry(model.PatientUpdate, tag))
	}

	if r.Len() != 3 {
		t.Fatalf("expected len 3 after capacity+1 pushes, got %d", r.Len())
	}
	got := r.Recent(3)
	want := []string{"b", "c", "d"}
	for i, e := range got {
		if tagOf(e) != want[i] {
			t.Fatalf("recent[%d] = %q, want %q", i, tagOf(e), want[i])
		}
	}
}

func TestRingRecentShorterThanRequested(t *testing.T) {
	r := NewRing(10)
	r.Push(entry(model.PatientUpdate, "only"))

	got := r.Recent(5)
	if len(got) != 1 || tagOf(got[0]) != "only" {
		t.Fatalf("expected single entry, got %d", len(got))
	}
	if r.Recent(0) != nil {
		t.Fatalf("recent(0) should be nil")
	}
}

func TestRingRecentIsRepeatable(t *testing.T) {
	r := NewRing(4)
	for _, tag := range []string{"a", "b", "c"} {
		r.Push(entry(model.LabTestUpdate, tag))
	}

	first := r.Recent(2)
	second := r.Recent(2)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("recent should be non-destructive")
	}
	if tagOf(first[0]) != "b" || tagOf(second[0]) != "b" {
		t.Fatalf("repeated reads disagree: %q vs %q", tagOf(first[0]), tagOf(second[0]))
	}
	if r.Len() != 3 {
		t.Fatalf("reads must not consume entries, len = %d", r.Len())
	}
}

func TestRingAtCapacity(t *testing.T) {
	r := NewRing(2)
	if r.AtCapacity() {
		t.Fatalf("empty ring reports at capacity")
	}
	r.Push(entry(model.MedicineAlert, "a"))
	r.Push(entry(model.MedicineAlert, "b"))
	if !r.AtCapacity() {
		t.Fatalf("full ring should report at capacity")
	}
	// Eviction keeps it exactly at capacity, never over.
	r.Push(entry(model.MedicineAlert, "c"))
	if r.Len() != 2 || r.Cap() != 2 {
		t.Fatalf("len=%d cap=%d after overflow push", r.Len(), r.Cap())
	}
}

func TestRingDefaultCapacity(t *testing.T) {
	r := NewRing(0)
	if r.Cap() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, r.Cap())
	}
}
