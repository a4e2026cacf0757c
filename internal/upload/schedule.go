package upload

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultRetryDelays is the pause before each retry of a failed transfer.
var DefaultRetryDelays = []time.Duration{0, 3 * time.Second, 5 * time.Second, 10 * time.Second, 20 * time.Second}

// scheduleBackOff walks a fixed list of delays and then stops.
type scheduleBackOff struct {
	delays []time.Duration
	next   int
}

func newScheduleBackOff(delays []time.Duration) *scheduleBackOff {
	return &scheduleBackOff{delays: append([]time.Duration(nil), delays...)}
}

func (b *scheduleBackOff) NextBackOff() time.Duration {
	if b.next >= len(b.delays) {
		return backoff.Stop
	}
	d := b.delays[b.next]
	b.next++
	return d
}

func (b *scheduleBackOff) Reset() { b.next = 0 }
