package compiler

import (
	"errors"
	"fmt"
	"time"

	"github.com/amenocturne/infinite-echoes/internal/musictime"
)

// Config is the compiler's view of the engine settings. Envelope values are
// passed through to every play command untouched.
type Config struct {
	TicksPerQuarter  int     `yaml:"ticks_per_quarter_note"`
	BPM              int     `yaml:"bpm"`
	MaxScheduleAhead float64 `yaml:"max_schedule_ahead_seconds"`
	Attack           float64 `yaml:"attack_time"`
	Release          float64 `yaml:"release_time"`
	OutputGain       float64 `yaml:"output_gain"`
}

func DefaultConfig() Config {
	return Config{
		TicksPerQuarter:  int(musictime.TicksPerQuarter),
		BPM:              120,
		MaxScheduleAhead: 5,
		Attack:           0.01,
		Release:          0.1,
		OutputGain:       0.3,
	}
}

var ErrInvalidConfig = errors.New("invalid compiler config")

func (c Config) Validate() error {
	switch {
	case c.TicksPerQuarter <= 0:
		return fmt.Errorf("%w: ticks_per_quarter_note must be positive, got %d", ErrInvalidConfig, c.TicksPerQuarter)
	case c.BPM <= 0:
		return fmt.Errorf("%w: bpm must be positive, got %d", ErrInvalidConfig, c.BPM)
	case c.MaxScheduleAhead <= 0:
		return fmt.Errorf("%w: max_schedule_ahead_seconds must be positive, got %g", ErrInvalidConfig, c.MaxScheduleAhead)
	case c.Attack < 0 || c.Release < 0:
		return fmt.Errorf("%w: envelope times must not be negative", ErrInvalidConfig)
	case c.OutputGain < 0:
		return fmt.Errorf("%w: output_gain must not be negative, got %g", ErrInvalidConfig, c.OutputGain)
	}
	return nil
}

func (c Config) TimeBase() musictime.TimeBase {
	return musictime.TimeBase{TicksPerQuarter: c.TicksPerQuarter, BPM: c.BPM}
}

// Window is the schedule-ahead window as a duration.
func (c Config) Window() time.Duration {
	return musictime.SecondsToDuration(c.MaxScheduleAhead)
}
