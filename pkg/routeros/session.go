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

// Package routeros maintains stateful sessions to RouterOS devices over an
// opaque RPC capability and sanitizes everything that comes back.
package routeros

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/routerwatch/routerwatch/pkg/logger"
)

const defaultConnectTimeout = 20 * time.Second

// DefaultPorts are the candidate API ports tried in order by Connect.
func DefaultPorts() []int {
	return []int{8728, 8729, 80, 443}
}

// Session owns one authenticated channel to a single device. A failed
// command is never retried in place: callers drop the session via the
// Registry and the next scheduled tick reconnects.
type Session struct {
	deviceID int64
	host     string
	username string
	password string

	dialer  Dialer
	ports   []int
	timeout time.Duration
	logger  logger.Logger

	// connectMu serializes port walks so concurrent callers share one
	// dial instead of racing to open duplicate channels.
	connectMu sync.Mutex

	mu        sync.Mutex
	conn      Conn
	connected bool

	// onClosed fires when the transport drops without Close being called.
	onClosed func(deviceID int64)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPorts overrides the candidate port list.
func WithPorts(ports []int) SessionOption {
	return func(s *Session) {
		if len(ports) > 0 {
			s.ports = ports
		}
	}
}

// WithConnectTimeout overrides the per-port connect timeout.
func WithConnectTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithOnClosed registers a callback for passive disconnect detection.
func WithOnClosed(fn func(deviceID int64)) SessionOption {
	return func(s *Session) {
		s.onClosed = fn
	}
}

// NewSession builds an unconnected session for one device.
func NewSession(deviceID int64, host, username, password string, dialer Dialer, log logger.Logger, opts ...SessionOption) *Session {
	s := &Session{
		deviceID: deviceID,
		host:     host,
		username: username,
		password: password,
		dialer:   dialer,
		ports:    DefaultPorts(),
		timeout:  defaultConnectTimeout,
		logger:   log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Connected reports whether the session currently holds a live channel.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connected
}

// DeviceID returns the id of the device this session is bound to.
func (s *Session) DeviceID() int64 {
	return s.deviceID
}

// Connect walks the candidate ports in order and takes the first one that
// yields a session within the per-port timeout. A no-op when the channel
// is already live; a concurrent Connect waits for the walk in flight and
// then observes its result. Returns ErrAllPortsFailed when every
// candidate is exhausted; there is no backoff, the scheduled tick is the
// retry cadence.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	if s.connected && s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	for _, port := range s.ports {
		dialCtx, cancel := context.WithTimeout(ctx, s.timeout)
		conn, err := s.dialer.Dial(dialCtx, s.host, port, s.username, s.password)

		cancel()

		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("host", s.host).
				Int("port", port).
				Msg("Connect attempt failed")

			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.connected = true
		s.mu.Unlock()

		go s.watchClose(conn)

		s.logger.Info().
			Str("host", s.host).
			Int("port", port).
			Int64("device_id", s.deviceID).
			Msg("Connected to device")

		return nil
	}

	return fmt.Errorf("%w: %s", ErrAllPortsFailed, s.host)
}

// watchClose flips the session to not-connected when the transport drops
// underneath it, without the caller being told.
func (s *Session) watchClose(conn Conn) {
	<-conn.Closed()

	s.mu.Lock()
	// A newer conn may have replaced this one already.
	if s.conn != conn {
		s.mu.Unlock()
		return
	}

	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	s.logger.Warn().
		Str("host", s.host).
		Int64("device_id", s.deviceID).
		Msg("Connection closed unexpectedly")

	if s.onClosed != nil {
		s.onClosed(s.deviceID)
	}
}

// Run executes a command and sanitizes every returned row. Fails with
// ErrNotConnected when no channel is live.
func (s *Session) Run(ctx context.Context, command string, args ...string) ([]Row, error) {
	s.mu.Lock()
	conn := s.conn
	connected := s.connected
	s.mu.Unlock()

	if !connected || conn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, s.host)
	}

	rows, err := conn.Run(ctx, command, args...)
	if err != nil {
		return nil, fmt.Errorf("command %s failed: %w", command, err)
	}

	for i := range rows {
		rows[i] = sanitizeRow(rows[i])
	}

	return rows, nil
}

// Close releases the underlying channel. Safe to call on an already
// closed session.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()

	if conn == nil {
		return nil
	}

	return conn.Close()
}
