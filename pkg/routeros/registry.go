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

package routeros

import (
	"context"
	"sync"
	"time"

	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
)

// Registry holds at most one Session per device. GetOrCreate is the only
// mutation entry point, so two loops racing on the same device id cannot
// end up with duplicate sessions or disconnect one another's channel.
type Registry struct {
	dialer  Dialer
	logger  logger.Logger
	ports   []int
	timeout time.Duration

	mu       sync.Mutex
	sessions map[int64]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryPorts overrides candidate ports for every session.
func WithRegistryPorts(ports []int) RegistryOption {
	return func(r *Registry) {
		if len(ports) > 0 {
			r.ports = ports
		}
	}
}

// WithRegistryConnectTimeout overrides the per-port connect timeout for
// every session.
func WithRegistryConnectTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRegistry builds an empty session registry.
func NewRegistry(dialer Dialer, log logger.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		dialer:   dialer,
		logger:   log,
		ports:    DefaultPorts(),
		timeout:  defaultConnectTimeout,
		sessions: make(map[int64]*Session),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// GetOrCreate returns the device's session, creating one when none
// exists and connecting it as needed. Only the map lookup/insert holds
// the registry lock; the port walk runs outside it, so one unreachable
// device cannot serialize acquisition for every other device. Sessions
// serialize their own connects, so concurrent callers for the same
// device still share a single walk and a single channel.
func (r *Registry) GetOrCreate(ctx context.Context, device *models.Device) (*Session, error) {
	r.mu.Lock()

	s, ok := r.sessions[device.ID]
	if !ok {
		s = NewSession(device.ID, device.Host, device.Username, device.Password, r.dialer, r.logger,
			WithPorts(r.ports),
			WithConnectTimeout(r.timeout),
			WithOnClosed(r.dropIfCurrent),
		)
		r.sessions[device.ID] = s
	}

	r.mu.Unlock()

	if err := s.Connect(ctx); err != nil {
		r.remove(device.ID, s)

		return nil, err
	}

	return s, nil
}

// remove deletes the map entry only while it still points at s, so a
// failed connect cannot evict a successor session.
func (r *Registry) remove(deviceID int64, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[deviceID]; ok && cur == s {
		delete(r.sessions, deviceID)
	}
}

// Get returns the current session for a device, if any.
func (r *Registry) Get(deviceID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[deviceID]

	return s, ok
}

// Drop discards the device's session, closing its channel. Idempotent.
func (r *Registry) Drop(deviceID int64) {
	r.mu.Lock()
	s, ok := r.sessions[deviceID]
	delete(r.sessions, deviceID)
	r.mu.Unlock()

	if ok {
		_ = s.Close()
	}
}

// dropIfCurrent is the passive-disconnect callback: it removes the map
// entry only when it still points at the session that dropped.
func (r *Registry) dropIfCurrent(deviceID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[deviceID]; ok && !s.Connected() {
		delete(r.sessions, deviceID)
	}
}

// Close releases every session. Used at process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[int64]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
