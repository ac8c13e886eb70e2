package collector

import (
	"sync"
	"time"
)

// rateCache derives byte-per-second rates from the monotonically growing
// interface counters by remembering the previous sample per device. A
// counter that moves backwards (device reboot, counter reset) yields a
// zero rate and a fresh baseline rather than a huge negative spike.
type rateCache struct {
	mu   sync.Mutex
	last map[int64]rateSample
}

type rateSample struct {
	download int64
	upload   int64
	at       time.Time
}

func newRateCache() *rateCache {
	return &rateCache{last: make(map[int64]rateSample)}
}

// update records the current totals and returns the rates since the
// previous sample. The first sample for a device always reads 0.
func (r *rateCache) update(deviceID, download, upload int64, at time.Time) (downloadRate, uploadRate int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.last[deviceID]
	r.last[deviceID] = rateSample{download: download, upload: upload, at: at}

	if !ok {
		return 0, 0
	}

	elapsed := at.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}

	dDown := download - prev.download
	dUp := upload - prev.upload

	if dDown < 0 {
		dDown = 0
	}

	if dUp < 0 {
		dUp = 0
	}

	return int64(float64(dDown) / elapsed), int64(float64(dUp) / elapsed)
}

// forget drops the cached sample for a device.
func (r *rateCache) forget(deviceID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.last, deviceID)
}
