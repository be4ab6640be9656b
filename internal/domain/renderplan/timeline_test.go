package renderplan

import (
	"testing"
	"time"

	"github.com/dkotenko/clipcut/internal/ports"
)

func cuts() []ports.SilenceInterval {
	return []ports.SilenceInterval{
		{Start: 0, End: sec(2)},
		{Start: sec(3), End: sec(6)},
		{Start: sec(8), End: sec(10)},
	}
}

func TestOutputTime_NoCuts(t *testing.T) {
	t.Parallel()

	got, ok := OutputTime(nil, 1.2, sec(6))
	if !ok || got != sec(5) {
		t.Fatalf("OutputTime = %v, %v; want 5s", got, ok)
	}
}

func TestOutputTime_SkipsRemovedSpans(t *testing.T) {
	t.Parallel()

	// 4s of source sits 2s into the second kept span; 3s of kept material
	// precede it, so output time is 3s/1.0.
	got, ok := OutputTime(cuts(), 1, sec(4))
	if !ok || got != sec(3) {
		t.Fatalf("OutputTime = %v, %v; want 3s", got, ok)
	}

	if _, ok := OutputTime(cuts(), 1, sec(2500*0.001)); ok {
		t.Fatalf("timestamp inside a removed span must not map")
	}
}

func TestOutputTime_AppliesSpeedAfterCuts(t *testing.T) {
	t.Parallel()

	// Kept time before 9s of source: 2 + 3 + 1 = 6s; at 1.2x that plays at 5s.
	got, ok := OutputTime(cuts(), 1.2, sec(9))
	if !ok || got != sec(5) {
		t.Fatalf("OutputTime = %v, %v; want 5s", got, ok)
	}
}

func TestTimeMap_SnapsRemovedInstantsForward(t *testing.T) {
	t.Parallel()

	m := Plan{Cuts: cuts(), Speed: 1}.TimeMap()

	// 2.5s falls in the removed gap; it snaps to the start of the second
	// kept span, which plays at 2s of output.
	if got := m(sec(2.5)); got != sec(2) {
		t.Fatalf("TimeMap(2.5s) = %v, want 2s", got)
	}
	if got := m(sec(4)); got != sec(3) {
		t.Fatalf("TimeMap(4s) = %v, want 3s", got)
	}
	// Past all kept material: clamp to the 7s output end.
	if got := m(sec(50)); got != sec(7) {
		t.Fatalf("TimeMap(50s) = %v, want 7s", got)
	}
}

func TestTimeMap_NoCutsDividesBySpeed(t *testing.T) {
	t.Parallel()

	m := Plan{Speed: 2}.TimeMap()
	if got := m(sec(6)); got != sec(3) {
		t.Fatalf("TimeMap(6s) = %v, want 3s", got)
	}
}

// Reconstructing source time from a sped output time and the cut list is the
// inverse of the cut-then-speed composition.
func TestSourceTime_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, src := range []time.Duration{0, sec(1), sec(3.5), sec(5.9), sec(8.25), sec(10)} {
		out, ok := OutputTime(cuts(), 1.2, src)
		if !ok {
			t.Fatalf("source %v unexpectedly removed", src)
		}
		back := SourceTime(cuts(), 1.2, out)
		if diff := back - src; diff < -time.Millisecond || diff > time.Millisecond {
			t.Fatalf("round trip %v -> %v -> %v", src, out, back)
		}
	}
}

func TestSourceTime_PastEndClampsToLastCut(t *testing.T) {
	t.Parallel()

	if got := SourceTime(cuts(), 1, sec(100)); got != sec(10) {
		t.Fatalf("SourceTime = %v, want 10s", got)
	}
}
