package snapshot

import "sync/atomic"

// epochClock is a thread-safe monotonic counter used to tag each snapshot
// round with an opaque, ever-increasing id for log correlation. It is a
// direct adaptation of serf's LamportClock: same atomic-counter shape, with
// Witness dropped because there is exactly one observer in this system and
// no peer clock to ever reconcile against.
type epochClock struct {
	counter uint64
}

// Time returns the current value of the clock without advancing it.
func (c *epochClock) Time() uint64 {
	return atomic.LoadUint64(&c.counter)
}

// Increment advances the clock and returns the new value.
func (c *epochClock) Increment() uint64 {
	return atomic.AddUint64(&c.counter, 1)
}
