package track

import "time"

// Clock abstracts the time source driving a tracking session so dry runs
// and tests can replay a pass scheduled at any absolute time.
type Clock interface {
	// Now returns the current instant on this clock's timeline
	Now() time.Time

	// After fires once the given duration has elapsed on this timeline
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

// offsetClock runs at wall speed but shifted by a fixed amount, so a pass
// scheduled for tomorrow can be replayed starting now.
type offsetClock struct {
	offset time.Duration
}

// NewOffsetClock returns a clock reading virtualNow at the moment of the
// call and advancing at wall speed from there.
func NewOffsetClock(virtualNow time.Time) Clock {
	return &offsetClock{offset: time.Until(virtualNow)}
}

func (c *offsetClock) Now() time.Time                         { return time.Now().Add(c.offset) }
func (c *offsetClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// scaledClock runs faster than the wall clock by a constant factor, for
// replaying long passes quickly. Scheduling jitter is magnified by the same
// factor, which exercises the tracking loop's late-wake-up handling.
type scaledClock struct {
	realBase    time.Time
	virtualBase time.Time
	scale       float64
}

// NewScaledClock returns a clock reading virtualNow at the moment of the
// call and advancing scale times faster than wall time.
func NewScaledClock(virtualNow time.Time, scale float64) Clock {
	if scale <= 0 {
		scale = 1.0
	}
	return &scaledClock{
		realBase:    time.Now(),
		virtualBase: virtualNow,
		scale:       scale,
	}
}

func (c *scaledClock) Now() time.Time {
	elapsed := time.Since(c.realBase)
	return c.virtualBase.Add(time.Duration(float64(elapsed) * c.scale))
}

func (c *scaledClock) After(d time.Duration) <-chan time.Time {
	return time.After(time.Duration(float64(d) / c.scale))
}
