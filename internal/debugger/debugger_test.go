package debugger

import "testing"

func TestStateShouldStopEntry(t *testing.T) {
	s := newState()
	stop, reason := s.shouldStop(1, 0)
	if !stop || reason != "entry" {
		t.Fatalf("first stop: got (%v, %q), want (true, \"entry\")", stop, reason)
	}
	// The entry stop only fires once.
	stop, _ = s.shouldStop(2, 0)
	if stop {
		t.Fatalf("second call should not re-report entry, mode=%v", s.mode)
	}
}

func TestStateBreakpoints(t *testing.T) {
	s := newState()
	s.shouldStop(1, 0) // consume the entry stop
	s.setBreakpoint("prog.jdb", 5)

	if stop, _ := s.shouldStop(4, 0); stop {
		t.Fatalf("line 4 has no breakpoint, should not stop")
	}
	stop, reason := s.shouldStop(5, 0)
	if !stop || reason != "breakpoint" {
		t.Fatalf("line 5: got (%v, %q), want (true, \"breakpoint\")", stop, reason)
	}

	s.clearBreakpoints()
	if stop, _ := s.shouldStop(5, 0); stop {
		t.Fatalf("breakpoint at line 5 should be cleared")
	}
}

func TestStateStepSameDepth(t *testing.T) {
	s := newState()
	s.shouldStop(1, 0) // entry
	s.mode = ModeStep
	s.depth = 1

	if stop, _ := s.shouldStop(2, 2); stop {
		t.Fatalf("deeper call (depth 2 > 1) should not stop a same-depth step")
	}
	stop, reason := s.shouldStop(2, 1)
	if !stop || reason != "step" {
		t.Fatalf("same depth: got (%v, %q), want (true, \"step\")", stop, reason)
	}
}

func TestStateStepIn(t *testing.T) {
	s := newState()
	s.shouldStop(1, 0) // entry
	s.mode = ModeStepIn

	stop, reason := s.shouldStop(2, 3)
	if !stop || reason != "step" {
		t.Fatalf("stepin should stop regardless of depth: got (%v, %q)", stop, reason)
	}
}

func TestStateStepOut(t *testing.T) {
	s := newState()
	s.shouldStop(1, 0) // entry
	s.mode = ModeStepOut
	s.depth = 2

	if stop, _ := s.shouldStop(2, 2); stop {
		t.Fatalf("same depth should not satisfy stepout")
	}
	stop, reason := s.shouldStop(3, 1)
	if !stop || reason != "step" {
		t.Fatalf("shallower depth: got (%v, %q), want (true, \"step\")", stop, reason)
	}
}
