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

// Package ids keeps a short in-memory history of traffic between host
// pairs for anomaly heuristics. Nothing here is persisted; the window is
// rebuilt from live traffic after a restart.
package ids

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

const (
	defaultWindow  = 10 * time.Minute
	defaultMaxKeys = 10000
)

// Observation is one sighting of traffic from a source to a destination.
type Observation struct {
	Port        int
	Bytes       int64
	Connections int
	At          time.Time
}

// FlowStats summarizes the surviving window for one host pair.
type FlowStats struct {
	Ports        map[int]int
	TotalBytes   int64
	Connections  int
	Observations int
	OldestAt     time.Time
	NewestAt     time.Time
}

type flowEntry struct {
	key          string
	observations []Observation
	elem         *list.Element
}

// TrafficMemory is a sliding-window store keyed by "src->dst". Reads
// prune expired observations first, so callers never see stale traffic.
// Key count is bounded; inserting past the cap evicts the least recently
// touched pair.
type TrafficMemory struct {
	window  time.Duration
	maxKeys int

	mu    sync.Mutex
	flows map[string]*flowEntry
	order *list.List // front = most recently touched
}

// Option configures a TrafficMemory.
type Option func(*TrafficMemory)

// WithWindow overrides the observation window.
func WithWindow(d time.Duration) Option {
	return func(m *TrafficMemory) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithMaxKeys overrides the host-pair cap.
func WithMaxKeys(n int) Option {
	return func(m *TrafficMemory) {
		if n > 0 {
			m.maxKeys = n
		}
	}
}

// NewTrafficMemory builds an empty window.
func NewTrafficMemory(opts ...Option) *TrafficMemory {
	m := &TrafficMemory{
		window:  defaultWindow,
		maxKeys: defaultMaxKeys,
		flows:   make(map[string]*flowEntry),
		order:   list.New(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func flowKey(src, dst string) string {
	return fmt.Sprintf("%s->%s", src, dst)
}

// Record adds one observation for a host pair.
func (m *TrafficMemory) Record(src, dst string, obs Observation) {
	if obs.At.IsZero() {
		obs.At = time.Now()
	}

	key := flowKey(src, dst)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.flows[key]
	if !ok {
		m.evictIfFullLocked()

		entry = &flowEntry{key: key}
		entry.elem = m.order.PushFront(entry)
		m.flows[key] = entry
	} else {
		m.order.MoveToFront(entry.elem)
	}

	entry.observations = append(entry.observations, obs)
}

// evictIfFullLocked drops the least recently touched pair to make room.
func (m *TrafficMemory) evictIfFullLocked() {
	if len(m.flows) < m.maxKeys {
		return
	}

	back := m.order.Back()
	if back == nil {
		return
	}

	entry := back.Value.(*flowEntry)
	m.order.Remove(back)
	delete(m.flows, entry.key)
}

// Stats returns the window summary for one pair, pruning expired
// observations first. Returns false when nothing survives.
func (m *TrafficMemory) Stats(src, dst string) (FlowStats, bool) {
	key := flowKey(src, dst)
	cutoff := time.Now().Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.flows[key]
	if !ok {
		return FlowStats{}, false
	}

	survivors := pruneObservations(entry.observations, cutoff)
	if len(survivors) == 0 {
		// Empty keys are evicted, not kept around as tombstones.
		m.order.Remove(entry.elem)
		delete(m.flows, key)

		return FlowStats{}, false
	}

	entry.observations = survivors

	stats := FlowStats{
		Ports:    make(map[int]int),
		OldestAt: survivors[0].At,
		NewestAt: survivors[0].At,
	}

	for _, obs := range survivors {
		stats.Ports[obs.Port]++
		stats.TotalBytes += obs.Bytes
		stats.Connections += obs.Connections
		stats.Observations++

		if obs.At.Before(stats.OldestAt) {
			stats.OldestAt = obs.At
		}

		if obs.At.After(stats.NewestAt) {
			stats.NewestAt = obs.At
		}
	}

	return stats, true
}

// Len reports how many host pairs currently have history. Expired pairs
// linger until read or evicted; Len is a capacity gauge, not a traffic
// gauge.
func (m *TrafficMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.flows)
}

func pruneObservations(observations []Observation, cutoff time.Time) []Observation {
	out := observations[:0]

	for _, obs := range observations {
		if obs.At.After(cutoff) {
			out = append(out, obs)
		}
	}

	return out
}
