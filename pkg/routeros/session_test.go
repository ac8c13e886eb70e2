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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/logger"
)

var errDialRefused = errors.New("connection refused")

// MockDialer is a mock implementation of Dialer.
type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) Dial(ctx context.Context, host string, port int, username, password string) (Conn, error) {
	args := m.Called(ctx, host, port, username, password)

	if c := args.Get(0); c != nil {
		return c.(Conn), args.Error(1)
	}

	return nil, args.Error(1)
}

// fakeConn is a scriptable Conn for session tests.
type fakeConn struct {
	rows     []Row
	runErr   error
	closed   chan struct{}
	closeCnt int
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) Run(_ context.Context, _ string, _ ...string) ([]Row, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}

	return f.rows, nil
}

func (f *fakeConn) Closed() <-chan struct{} { return f.closed }

func (f *fakeConn) Close() error {
	f.closeCnt++
	return nil
}

func TestSessionConnectFirstPortWins(t *testing.T) {
	dialer := &MockDialer{}
	conn := newFakeConn()

	dialer.On("Dial", mock.Anything, "10.0.0.1", 8728, "admin", "secret").
		Return(conn, nil).Once()

	s := NewSession(1, "10.0.0.1", "admin", "secret", dialer, logger.NewTestLogger())

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.Connected())

	// Connecting an already-connected session is a no-op.
	require.NoError(t, s.Connect(context.Background()))
	dialer.AssertNumberOfCalls(t, "Dial", 1)
}

func TestSessionConnectFallsThroughPorts(t *testing.T) {
	dialer := &MockDialer{}
	conn := newFakeConn()

	dialer.On("Dial", mock.Anything, "10.0.0.1", 8728, "admin", "secret").
		Return(nil, errDialRefused).Once()
	dialer.On("Dial", mock.Anything, "10.0.0.1", 8729, "admin", "secret").
		Return(nil, errDialRefused).Once()
	dialer.On("Dial", mock.Anything, "10.0.0.1", 80, "admin", "secret").
		Return(conn, nil).Once()

	s := NewSession(1, "10.0.0.1", "admin", "secret", dialer, logger.NewTestLogger())

	require.NoError(t, s.Connect(context.Background()))
	assert.True(t, s.Connected())
	dialer.AssertExpectations(t)
}

func TestSessionConnectAllPortsExhausted(t *testing.T) {
	dialer := &MockDialer{}

	for _, port := range DefaultPorts() {
		dialer.On("Dial", mock.Anything, "10.0.0.9", port, "admin", "secret").
			Return(nil, errDialRefused).Once()
	}

	s := NewSession(9, "10.0.0.9", "admin", "secret", dialer, logger.NewTestLogger())

	err := s.Connect(context.Background())
	require.ErrorIs(t, err, ErrAllPortsFailed)
	assert.False(t, s.Connected())
	dialer.AssertExpectations(t)
}

func TestSessionRunNotConnected(t *testing.T) {
	s := NewSession(1, "10.0.0.1", "admin", "secret", &MockDialer{}, logger.NewTestLogger())

	_, err := s.Run(context.Background(), "/interface/print")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestSessionRunSanitizesRows(t *testing.T) {
	dialer := &MockDialer{}
	conn := newFakeConn()
	conn.rows = []Row{
		{"name": "ether1", "running": "true", "disabled": "", "rx-byte": "bogus", "mac-address": ""},
	}

	dialer.On("Dial", mock.Anything, "10.0.0.1", 8728, "admin", "secret").
		Return(conn, nil).Once()

	s := NewSession(1, "10.0.0.1", "admin", "secret", dialer, logger.NewTestLogger())
	require.NoError(t, s.Connect(context.Background()))

	rows, err := s.Run(context.Background(), "/interface/print")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, rows[0].Bool("running"))
	assert.False(t, rows[0].Bool("disabled"))
	assert.Equal(t, int64(0), rows[0].Int("rx-byte"))
	assert.Equal(t, "00:00:00:00:00:00", rows[0].MAC("mac-address"))
}

func TestSessionPassiveDisconnect(t *testing.T) {
	dialer := &MockDialer{}
	conn := newFakeConn()

	var closedID int64

	done := make(chan struct{})

	dialer.On("Dial", mock.Anything, "10.0.0.1", 8728, "admin", "secret").
		Return(conn, nil).Once()

	s := NewSession(7, "10.0.0.1", "admin", "secret", dialer, logger.NewTestLogger(),
		WithOnClosed(func(id int64) {
			closedID = id
			close(done)
		}))

	require.NoError(t, s.Connect(context.Background()))

	// Simulate the transport dropping without Close being called.
	close(conn.closed)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onClosed callback never fired")
	}

	assert.Equal(t, int64(7), closedID)
	assert.False(t, s.Connected())

	_, err := s.Run(context.Background(), "/system/resource/print")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestSessionCloseIdempotent(t *testing.T) {
	dialer := &MockDialer{}
	conn := newFakeConn()

	dialer.On("Dial", mock.Anything, "10.0.0.1", 8728, "admin", "secret").
		Return(conn, nil).Once()

	s := NewSession(1, "10.0.0.1", "admin", "secret", dialer, logger.NewTestLogger())
	require.NoError(t, s.Connect(context.Background()))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, conn.closeCnt)
}
