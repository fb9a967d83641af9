package coredb

import "time"

// TimeSource supplies the creation timestamp stamped onto new
// documents. Tests should supply a FixedClock so assertions don't
// race real wall-clock time.
type TimeSource interface {
	NowMillis() float64
}

// systemClock is the default TimeSource, backed by the system clock.
type systemClock struct{}

func (systemClock) NowMillis() float64 { return float64(time.Now().UnixMilli()) }

// FixedClock is a TimeSource that always returns the same timestamp.
type FixedClock struct {
	Millis float64
}

func (f FixedClock) NowMillis() float64 { return f.Millis }
