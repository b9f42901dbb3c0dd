package lifecycle

import "testing"

func TestCurrent_DefaultStarting(t *testing.T) {
	Reset()
	if got := Current(); got != Starting {
		t.Errorf("Current() = %v, want starting", got)
	}
	if IsDraining() {
		t.Error("IsDraining() = true, want false by default")
	}
}

func TestSet_Serving(t *testing.T) {
	Reset()
	Set(Serving)
	if got := Current(); got != Serving {
		t.Errorf("Current() = %v, want serving", got)
	}
}

func TestSet_DrainingIsTerminal(t *testing.T) {
	Reset()
	defer Reset()
	Set(Draining)
	Set(Serving)
	if !IsDraining() {
		t.Errorf("Current() = %v after Set(Serving), want shutting-down", Current())
	}
}

func TestPhase_String(t *testing.T) {
	tests := map[Phase]string{
		Starting:  "starting",
		Serving:   "serving",
		Draining:  "shutting-down",
		Phase(42): "unknown",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, got, want)
		}
	}
}
