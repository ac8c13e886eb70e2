package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateCacheFirstSampleReadsZero(t *testing.T) {
	r := newRateCache()

	down, up := r.update(1, 1000, 500, time.Now())

	assert.Zero(t, down)
	assert.Zero(t, up)
}

func TestRateCacheDerivesRates(t *testing.T) {
	r := newRateCache()
	base := time.Now()

	r.update(1, 1000, 500, base)
	down, up := r.update(1, 11000, 2500, base.Add(10*time.Second))

	assert.Equal(t, int64(1000), down)
	assert.Equal(t, int64(200), up)
}

func TestRateCacheCounterResetReadsZero(t *testing.T) {
	r := newRateCache()
	base := time.Now()

	r.update(1, 100000, 50000, base)

	// Device rebooted; counters restarted below the previous sample.
	down, up := r.update(1, 300, 100, base.Add(15*time.Second))

	assert.Zero(t, down)
	assert.Zero(t, up)

	// The fresh baseline is the post-reset counters.
	down, up = r.update(1, 1800, 850, base.Add(30*time.Second))
	assert.Equal(t, int64(100), down)
	assert.Equal(t, int64(50), up)
}

func TestRateCacheTracksDevicesIndependently(t *testing.T) {
	r := newRateCache()
	base := time.Now()

	r.update(1, 1000, 1000, base)
	r.update(2, 9999, 9999, base)

	down, _ := r.update(1, 2000, 1000, base.Add(time.Second))
	assert.Equal(t, int64(1000), down)

	r.forget(2)

	down, up := r.update(2, 10999, 10999, base.Add(time.Second))
	assert.Zero(t, down)
	assert.Zero(t, up)
}
