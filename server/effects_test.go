package main

import "testing"

func TestEffectsExpire(t *testing.T) {
	e := NewEffects()
	e.AddTrace(0, 0, 10.04, 10.06, 1)
	e.AddTrace(0, 0, 20, 20, 4)

	tr := e.Traces()
	if len(tr) != 2 {
		t.Fatalf("traces = %d, want 2", len(tr))
	}
	if tr[0].X2 != 10 || tr[0].Y2 != 10.1 {
		t.Errorf("trace end = (%v,%v), want rounded (10,10.1)", tr[0].X2, tr[0].Y2)
	}

	e.Expire(1 + traceFrames)
	if e.Len() != 1 {
		t.Errorf("after first expiry len = %d, want 1", e.Len())
	}
	e.Expire(4 + traceFrames)
	if e.Len() != 0 {
		t.Errorf("after second expiry len = %d, want 0", e.Len())
	}
}

func TestEffectsTracesIsCopy(t *testing.T) {
	e := NewEffects()
	e.AddTrace(1, 2, 3, 4, 0)
	tr := e.Traces()
	tr[0].X1 = 99
	if e.Traces()[0].X1 != 1 {
		t.Error("Traces exposed the internal slice")
	}
}
