/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package scheduler drives the four periodic loops of the monitoring
// core: subnet discovery, device identification, router neighbor
// discovery and metrics collection. Every loop carries a single-flight
// guard: a tick that fires while the previous pass is still running is
// skipped, never queued.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/storage"
)

// Loop names, used for status reporting and interval updates.
const (
	LoopDiscovery       = "discovery"
	LoopIdentification  = "identification"
	LoopRouterDiscovery = "router_discovery"
	LoopMetrics         = "metrics"
)

// Default loop cadences.
const (
	DefaultDiscoveryInterval       = 5 * time.Minute
	DefaultIdentificationInterval  = 15 * time.Minute
	DefaultRouterDiscoveryInterval = 10 * time.Minute
	DefaultMetricsInterval         = 15 * time.Second

	defaultMetricsParallelism = 8
)

// Config holds the loop cadences and sweep targets. Zero values fall
// back to the defaults above.
type Config struct {
	DiscoveryInterval       time.Duration `json:"discovery_interval"`
	IdentificationInterval  time.Duration `json:"identification_interval"`
	RouterDiscoveryInterval time.Duration `json:"router_discovery_interval"`
	MetricsInterval         time.Duration `json:"metrics_interval"`

	// Subnets swept by the discovery loop.
	Subnets []string `json:"subnets"`

	// MetricsParallelism bounds concurrent device collections.
	MetricsParallelism int `json:"metrics_parallelism"`
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.DiscoveryInterval <= 0 {
		out.DiscoveryInterval = DefaultDiscoveryInterval
	}

	if out.IdentificationInterval <= 0 {
		out.IdentificationInterval = DefaultIdentificationInterval
	}

	if out.RouterDiscoveryInterval <= 0 {
		out.RouterDiscoveryInterval = DefaultRouterDiscoveryInterval
	}

	if out.MetricsInterval <= 0 {
		out.MetricsInterval = DefaultMetricsInterval
	}

	if out.MetricsParallelism <= 0 {
		out.MetricsParallelism = defaultMetricsParallelism
	}

	return out
}

// LoopStatus is one loop's truthful state: a pass that failed mid-cycle
// leaves the loop running and records the error.
type LoopStatus struct {
	Running  bool          `json:"running"`
	InFlight bool          `json:"in_flight"`
	Interval time.Duration `json:"interval"`
	LastRun  time.Time     `json:"last_run,omitempty"`
	LastErr  string        `json:"last_error,omitempty"`
}

type loop struct {
	name string

	mu       sync.Mutex
	interval time.Duration
	running  bool
	inFlight bool
	lastRun  time.Time
	lastErr  error

	// reload carries a new interval into the loop goroutine. Capacity 1,
	// stale values dropped, following the poll-interval hot-reload idiom.
	reload chan time.Duration
}

func newLoop(name string, interval time.Duration) *loop {
	return &loop{
		name:     name,
		interval: interval,
		reload:   make(chan time.Duration, 1),
	}
}

func (l *loop) getInterval() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.interval
}

func (l *loop) setRunning(v bool) {
	l.mu.Lock()
	l.running = v
	l.mu.Unlock()
}

// acquire takes the single-flight guard. Returns false when a pass is
// already in flight.
func (l *loop) acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inFlight {
		return false
	}

	l.inFlight = true

	return true
}

func (l *loop) release(at time.Time, err error) {
	l.mu.Lock()
	l.inFlight = false
	l.lastRun = at
	l.lastErr = err
	l.mu.Unlock()
}

func (l *loop) status() LoopStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := LoopStatus{
		Running:  l.running,
		InFlight: l.inFlight,
		Interval: l.interval,
		LastRun:  l.lastRun,
	}

	if l.lastErr != nil {
		st.LastErr = l.lastErr.Error()
	}

	return st
}

// Scheduler owns the four loops and their manual trigger entry points.
type Scheduler struct {
	store      storage.Store
	collectors Collector
	sweeper    Sweeper
	sink       Sink
	clock      Clock
	logger     logger.Logger
	config     Config

	loops map[string]*loop

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// New builds a scheduler. A nil clock means real time.
func New(store storage.Store, collectors Collector, sweeper Sweeper, sink Sink, config *Config, clock Clock, log logger.Logger) *Scheduler {
	if clock == nil {
		clock = systemClock{}
	}

	cfg := config.withDefaults()

	return &Scheduler{
		store:      store,
		collectors: collectors,
		sweeper:    sweeper,
		sink:       sink,
		clock:      clock,
		logger:     log.WithComponent("scheduler"),
		config:     cfg,
		loops: map[string]*loop{
			LoopDiscovery:       newLoop(LoopDiscovery, cfg.DiscoveryInterval),
			LoopIdentification:  newLoop(LoopIdentification, cfg.IdentificationInterval),
			LoopRouterDiscovery: newLoop(LoopRouterDiscovery, cfg.RouterDiscoveryInterval),
			LoopMetrics:         newLoop(LoopMetrics, cfg.MetricsInterval),
		},
	}
}

// Start launches all four loops. Each loop runs one pass immediately and
// then follows its cadence.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true

	jobs := map[string]func(context.Context) error{
		LoopDiscovery:       s.discoveryPass,
		LoopIdentification:  s.identificationPass,
		LoopRouterDiscovery: s.routerDiscoveryPass,
		LoopMetrics:         s.metricsPass,
	}

	for name, l := range s.loops {
		l := l
		job := jobs[name]

		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.runLoop(loopCtx, l, job)
		}()
	}

	s.logger.Info().
		Dur("discovery", s.config.DiscoveryInterval).
		Dur("identification", s.config.IdentificationInterval).
		Dur("router_discovery", s.config.RouterDiscoveryInterval).
		Dur("metrics", s.config.MetricsInterval).
		Msg("Scheduler started")

	return nil
}

// Stop cancels the loops and waits for their goroutines. In-flight
// passes finish on their own via context cancellation.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.started = false
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()

	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context, l *loop, job func(context.Context) error) {
	l.setRunning(true)
	defer l.setRunning(false)

	ticker := s.clock.Ticker(l.getInterval())
	defer func() { ticker.Stop() }()

	s.fire(ctx, l, job)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.fire(ctx, l, job)
		case d := <-l.reload:
			// Only this loop reschedules; siblings keep their cadence.
			ticker.Stop()
			ticker = s.clock.Ticker(d)

			s.logger.Info().Str("loop", l.name).Dur("interval", d).Msg("Loop interval updated")
			s.fire(ctx, l, job)
		}
	}
}

// fire runs one pass asynchronously under the single-flight guard. A
// panicking pass releases the guard instead of wedging the loop forever.
func (s *Scheduler) fire(ctx context.Context, l *loop, job func(context.Context) error) {
	if !l.acquire() {
		s.logger.Debug().Str("loop", l.name).Msg("Skipping tick, previous pass still running")

		return
	}

	go func() {
		var err error

		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("pass panicked: %v", r)

				s.logger.Error().Str("loop", l.name).Interface("panic", r).Msg("Loop pass panicked")
			}

			l.release(s.clock.Now(), err)
		}()

		err = job(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("loop", l.name).Msg("Loop pass failed")
		}
	}()
}

// Status reports every loop's current state.
func (s *Scheduler) Status() map[string]LoopStatus {
	out := make(map[string]LoopStatus, len(s.loops))

	for name, l := range s.loops {
		out[name] = l.status()
	}

	return out
}

// SetInterval reschedules one loop and requests an immediate pass. Other
// loops are untouched.
func (s *Scheduler) SetInterval(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, d)
	}

	l, ok := s.loops[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLoop, name)
	}

	l.mu.Lock()
	l.interval = d
	l.mu.Unlock()

	// Drop a stale pending reload rather than block.
	select {
	case <-l.reload:
	default:
	}

	l.reload <- d

	return nil
}

// SetDiscoveryInterval reschedules the subnet discovery loop.
func (s *Scheduler) SetDiscoveryInterval(d time.Duration) error {
	return s.SetInterval(LoopDiscovery, d)
}

// SetIdentificationInterval reschedules the identification loop.
func (s *Scheduler) SetIdentificationInterval(d time.Duration) error {
	return s.SetInterval(LoopIdentification, d)
}

// SetRouterDiscoveryInterval reschedules the neighbor discovery loop.
func (s *Scheduler) SetRouterDiscoveryInterval(d time.Duration) error {
	return s.SetInterval(LoopRouterDiscovery, d)
}

// SetMetricsInterval reschedules the metrics collection loop.
func (s *Scheduler) SetMetricsInterval(d time.Duration) error {
	return s.SetInterval(LoopMetrics, d)
}

// RunDiscovery sweeps one subnet immediately, or all configured subnets
// when subnet is empty. Shares the discovery loop's single-flight guard.
func (s *Scheduler) RunDiscovery(ctx context.Context, subnet string) ([]*models.Device, error) {
	l := s.loops[LoopDiscovery]

	if !l.acquire() {
		return nil, fmt.Errorf("%w: %s", ErrLoopBusy, LoopDiscovery)
	}

	var err error
	defer func() { l.release(s.clock.Now(), err) }()

	if subnet != "" {
		var created []*models.Device

		created, err = s.sweeper.Sweep(ctx, subnet)

		return created, err
	}

	var created []*models.Device

	created, err = s.sweepAll(ctx)

	return created, err
}

// RunRouterDiscovery refreshes one device's neighbor tables immediately.
func (s *Scheduler) RunRouterDiscovery(ctx context.Context, deviceID int64) ([]*models.Neighbor, error) {
	l := s.loops[LoopRouterDiscovery]

	if !l.acquire() {
		return nil, fmt.Errorf("%w: %s", ErrLoopBusy, LoopRouterDiscovery)
	}

	var err error
	defer func() { l.release(s.clock.Now(), err) }()

	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	var neighbors []*models.Neighbor

	neighbors, err = s.collectors.CollectNeighbors(ctx, device)

	return neighbors, err
}

// RunIdentification re-identifies one device immediately, regardless of
// its current score.
func (s *Scheduler) RunIdentification(ctx context.Context, deviceID int64) error {
	l := s.loops[LoopIdentification]

	if !l.acquire() {
		return fmt.Errorf("%w: %s", ErrLoopBusy, LoopIdentification)
	}

	var err error
	defer func() { l.release(s.clock.Now(), err) }()

	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	err = s.collectors.Identify(ctx, device)

	return err
}
