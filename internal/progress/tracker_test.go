package progress

import (
	"errors"
	"testing"
)

type recordingSurface struct {
	last []Row
}

func (s *recordingSurface) Update(rows []Row) {
	s.last = append([]Row(nil), rows...)
}

func TestRegister_FailsWithoutSurface(t *testing.T) {
	tr := NewTracker(nil, 3)
	if _, err := tr.Register("task"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestTracker_CapsVisibleRows(t *testing.T) {
	surface := &recordingSurface{}
	tr := NewTracker(surface, 3)

	var ids []TaskID
	for i := 0; i < 7; i++ {
		id, err := tr.Register("item")
		if err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	if got := tr.VisibleCount(); got != 3 {
		t.Fatalf("visible count: got %d want 3", got)
	}
	if got := tr.ActiveCount(); got != 7 {
		t.Fatalf("active count: got %d want 7", got)
	}
	if len(surface.last) != 3 {
		t.Fatalf("rendered rows: got %d want 3", len(surface.last))
	}

	// Completing a visible task promotes the oldest hidden one; the cap
	// holds as long as enough tasks remain.
	tr.Complete(ids[0])
	if got := tr.VisibleCount(); got != 3 {
		t.Fatalf("visible count after promote: got %d want 3", got)
	}
	if surface.last[len(surface.last)-1].ID != ids[3] {
		t.Fatalf("expected task 3 to be promoted, got %v", surface.last[len(surface.last)-1].ID)
	}

	for _, id := range ids[1:] {
		tr.Complete(id)
	}
	if got := tr.VisibleCount(); got != 0 {
		t.Fatalf("visible count after draining: got %d want 0", got)
	}
	if got := tr.ActiveCount(); got != 0 {
		t.Fatalf("active count after draining: got %d want 0", got)
	}
}

func TestTracker_VisibleEqualsActiveBelowCap(t *testing.T) {
	tr := NewTracker(&recordingSurface{}, 5)
	for i := 0; i < 3; i++ {
		if _, err := tr.Register("item"); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if got := tr.VisibleCount(); got != 3 {
		t.Fatalf("visible count: got %d want 3", got)
	}
}

func TestComplete_IgnoresUnknownAndRepeatedHandles(t *testing.T) {
	surface := &recordingSurface{}
	tr := NewTracker(surface, 2)
	id, err := tr.Register("item")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tr.Complete("no-such-task")
	tr.Complete(id)
	tr.Complete(id)

	if got := tr.ActiveCount(); got != 0 {
		t.Fatalf("active count: got %d want 0", got)
	}
}

func TestApply_PrefersExplicitPercent(t *testing.T) {
	surface := &recordingSurface{}
	tr := NewTracker(surface, 2)
	id, err := tr.Register("item")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tr.Apply(id, Update{PercentStr: "42.5%", Downloaded: 1, Total: 4})
	if got := surface.last[0].Percent; got != 42.5 {
		t.Fatalf("explicit percent: got %v want 42.5", got)
	}

	tr.Apply(id, Update{Downloaded: 1, Total: 4})
	if got := surface.last[0].Percent; got != 25 {
		t.Fatalf("computed percent: got %v want 25", got)
	}

	tr.Apply(id, Update{Downloaded: 1, TotalEstimate: 2})
	if got := surface.last[0].Percent; got != 50 {
		t.Fatalf("estimated percent: got %v want 50", got)
	}

	// No usable size information pulses the bar forward instead of
	// leaving it frozen.
	tr.Apply(id, Update{})
	if got := surface.last[0].Percent; got != 50+pulseAdvance {
		t.Fatalf("pulse: got %v want %v", got, 50+pulseAdvance)
	}
}

func TestApply_AppendsSpeedWithoutStacking(t *testing.T) {
	surface := &recordingSurface{}
	tr := NewTracker(surface, 2)
	id, err := tr.Register("song")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tr.Apply(id, Update{PercentStr: "10%", Speed: "1.00MiB/s"})
	tr.Apply(id, Update{PercentStr: "20%", Speed: "2.00MiB/s"})

	if got, want := surface.last[0].Description, "song (2.00MiB/s)"; got != want {
		t.Fatalf("description: got %q want %q", got, want)
	}
}

func TestSetPercent_ClampsRange(t *testing.T) {
	surface := &recordingSurface{}
	tr := NewTracker(surface, 2)
	id, err := tr.Register("item")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	tr.SetPercent(id, 150)
	if got := surface.last[0].Percent; got != 100 {
		t.Fatalf("clamp high: got %v want 100", got)
	}
	tr.SetPercent(id, -3)
	if got := surface.last[0].Percent; got != 0 {
		t.Fatalf("clamp low: got %v want 0", got)
	}
}

func TestTracker_NilReceiverAndZeroHandleAreNoOps(t *testing.T) {
	var tr *Tracker

	id, err := tr.Register("item")
	if err != nil {
		t.Fatalf("nil tracker register: %v", err)
	}
	if id != "" {
		t.Fatalf("expected zero handle from nil tracker, got %q", id)
	}
	tr.Complete(id)
	tr.SetPercent(id, 50)
	tr.Apply(id, Update{PercentStr: "10%"})
	if got := tr.VisibleCount(); got != 0 {
		t.Fatalf("nil tracker visible count: got %d", got)
	}

	real := NewTracker(&recordingSurface{}, 2)
	real.Complete("")
	real.SetPercent("", 50)
	real.Describe("", "x")
}
