package musictime

import (
	"testing"
	"time"
)

func TestQuarterAtSixtyBPMIsOneSecond(t *testing.T) {
	if got := ToSeconds(TicksPerQuarter, 60); got != 1.0 {
		t.Fatalf("ToSeconds(tpq, 60) = %v, want 1", got)
	}
	for _, bpm := range []int{1, 60, 90, 120, 333} {
		if got := ToSeconds(0, bpm); got != 0 {
			t.Fatalf("ToSeconds(0, %d) = %v, want 0", bpm, got)
		}
	}
}

func TestTimeBaseResolution(t *testing.T) {
	tb := TimeBase{TicksPerQuarter: 96, BPM: 120}
	if got := tb.Seconds(96 * 4); got != 2.0 {
		t.Fatalf("one bar at 120 = %v, want 2", got)
	}
	if got := tb.Duration(96); got != 500*time.Millisecond {
		t.Fatalf("quarter duration = %v, want 500ms", got)
	}
	d := tb.Durations()
	if d.Whole != 384 || d.Eighth != 48 || d.TripletEighth != 32 {
		t.Fatalf("unexpected durations %+v", d)
	}
}

func TestDegenerateTempo(t *testing.T) {
	if got := (TimeBase{TicksPerQuarter: 480}).Seconds(480); got != 0 {
		t.Fatalf("zero bpm should give 0, got %v", got)
	}
	if got := Quarter.Div(0); got != Quarter {
		t.Fatalf("Div(0) = %v, want %v", got, Quarter)
	}
	if got := Eighth.Mul(4); got != Half {
		t.Fatalf("Eighth*4 = %v, want %v", got, Half)
	}
}
