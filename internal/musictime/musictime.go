package musictime

import "time"

// Tick is a tempo-independent count of clock pulses. Only a conversion with
// a BPM gives it wall-clock meaning.
type Tick uint32

// TicksPerQuarter is the default resolution.
const TicksPerQuarter Tick = 480

const (
	Whole         = TicksPerQuarter * 4
	Half          = TicksPerQuarter * 2
	Quarter       = TicksPerQuarter
	Eighth        = TicksPerQuarter / 2
	TripletEighth = TicksPerQuarter / 3
	Sixteenth     = TicksPerQuarter / 4
)

func (t Tick) Mul(n uint32) Tick { return t * Tick(n) }

// Div returns t unchanged when n is zero.
func (t Tick) Div(n uint32) Tick {
	if n == 0 {
		return t
	}
	return t / Tick(n)
}

// ToSeconds converts ticks at the default resolution.
func ToSeconds(t Tick, bpm int) float64 {
	return TimeBase{TicksPerQuarter: int(TicksPerQuarter), BPM: bpm}.Seconds(t)
}

// TimeBase pairs a resolution with a tempo.
type TimeBase struct {
	TicksPerQuarter int
	BPM             int
}

func (tb TimeBase) Seconds(t Tick) float64 {
	if tb.BPM <= 0 || tb.TicksPerQuarter <= 0 {
		return 0
	}
	return float64(t) * 60 / (float64(tb.BPM) * float64(tb.TicksPerQuarter))
}

func (tb TimeBase) Duration(t Tick) time.Duration {
	return SecondsToDuration(tb.Seconds(t))
}

// Durations holds the named note lengths for a resolution.
type Durations struct {
	Whole, Half, Quarter, Eighth, TripletEighth, Sixteenth Tick
}

func (tb TimeBase) Durations() Durations {
	q := Tick(0)
	if tb.TicksPerQuarter > 0 {
		q = Tick(tb.TicksPerQuarter)
	}
	return Durations{
		Whole:         q * 4,
		Half:          q * 2,
		Quarter:       q,
		Eighth:        q / 2,
		TripletEighth: q / 3,
		Sixteenth:     q / 4,
	}
}

func SecondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
