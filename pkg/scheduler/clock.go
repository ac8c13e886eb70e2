package scheduler

import "time"

// systemClock is the production Clock. Tests swap in a fake so loop
// cadence can be driven tick by tick.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Ticker(d time.Duration) Ticker {
	return systemTicker{ticker: time.NewTicker(d)}
}

// systemTicker adapts time.Ticker to the Ticker interface.
type systemTicker struct {
	ticker *time.Ticker
}

func (s systemTicker) Chan() <-chan time.Time { return s.ticker.C }

func (s systemTicker) Stop() { s.ticker.Stop() }
