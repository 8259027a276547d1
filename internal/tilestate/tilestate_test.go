package tilestate

import "testing"

type recordingHooks struct {
	calls          []string
	allocateResult bool
}

func (h *recordingHooks) OnFree(tileIndex uint32)       { h.calls = append(h.calls, "Free") }
func (h *recordingHooks) OnRequested(tileIndex uint32)  { h.calls = append(h.calls, "Requested") }
func (h *recordingHooks) OnMapped(tileIndex uint32)     { h.calls = append(h.calls, "Mapped") }
func (h *recordingHooks) OnStandby(tileIndex uint32)    { h.calls = append(h.calls, "Standby") }
func (h *recordingHooks) OnLeaveStandby(tileIndex uint32) {
	h.calls = append(h.calls, "LeaveStandby")
}
func (h *recordingHooks) OnAllocated(tileIndex uint32) bool {
	h.calls = append(h.calls, "Allocated")
	return h.allocateResult
}

func TestLegalLifecycle(t *testing.T) {
	hooks := &recordingHooks{allocateResult: true}
	m := New(1, hooks)

	if !m.Transition(0, Requested) {
		t.Fatalf("Free -> Requested should succeed")
	}
	if !m.Transition(0, Allocated) {
		t.Fatalf("Requested -> Allocated should succeed")
	}
	if !m.Transition(0, Mapped) {
		t.Fatalf("Allocated -> Mapped should succeed")
	}
	if !m.Transition(0, Standby) {
		t.Fatalf("Mapped -> Standby should succeed")
	}
	if !m.Transition(0, Mapped) {
		t.Fatalf("Standby -> Mapped should succeed")
	}
	if !m.Transition(0, Free) {
		t.Fatalf("Mapped -> Free should succeed")
	}

	want := []string{"Requested", "Allocated", "Mapped", "Standby", "LeaveStandby", "Mapped", "Free"}
	if len(hooks.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", hooks.calls, want)
	}
	for i := range want {
		if hooks.calls[i] != want[i] {
			t.Fatalf("calls[%d] = %s, want %s (full: %v)", i, hooks.calls[i], want[i], hooks.calls)
		}
	}
}

func TestAllocationFailureAbortsTransition(t *testing.T) {
	hooks := &recordingHooks{allocateResult: false}
	m := New(1, hooks)
	m.Transition(0, Requested)

	if m.Transition(0, Allocated) {
		t.Fatalf("expected Transition to report failure when the Allocated hook rejects")
	}
	if m.State(0) != Requested {
		t.Fatalf("State() = %s, want Requested (transition must not apply on failure)", m.State(0))
	}
}

func TestIllegalTransitionPanics(t *testing.T) {
	hooks := &recordingHooks{allocateResult: true}
	m := New(1, hooks)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on illegal transition Free -> Mapped")
		}
	}()
	m.Transition(0, Mapped)
}

func TestSameStateTransitionPanics(t *testing.T) {
	hooks := &recordingHooks{allocateResult: true}
	m := New(1, hooks)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic transitioning Free -> Free")
		}
	}()
	m.Transition(0, Free)
}

func TestFreeFromStandbyLeavesStandbyFirst(t *testing.T) {
	hooks := &recordingHooks{allocateResult: true}
	m := New(1, hooks)
	m.Transition(0, Requested)
	m.Transition(0, Allocated)
	m.Transition(0, Mapped)
	m.Transition(0, Standby)

	hooks.calls = nil
	if !m.Transition(0, Free) {
		t.Fatalf("Standby -> Free should succeed")
	}
	want := []string{"LeaveStandby", "Free"}
	if len(hooks.calls) != 2 || hooks.calls[0] != want[0] || hooks.calls[1] != want[1] {
		t.Fatalf("calls = %v, want %v", hooks.calls, want)
	}
}

func TestResetBypassesHooks(t *testing.T) {
	hooks := &recordingHooks{allocateResult: true}
	m := New(1, hooks)
	m.Transition(0, Requested)
	m.Reset(0)
	if m.State(0) != Free {
		t.Fatalf("State() = %s, want Free", m.State(0))
	}
	if len(hooks.calls) != 1 {
		t.Fatalf("Reset should not invoke any hook, calls = %v", hooks.calls)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Free:       "Free",
		Requested:  "Requested",
		Allocated:  "Allocated",
		Mapped:     "Mapped",
		Standby:    "Standby",
		State(99):  "Invalid",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %s, want %s", s, got, want)
		}
	}
}
