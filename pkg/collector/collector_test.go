package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
	"github.com/routerwatch/routerwatch/pkg/storage"
)

var errProbeFailed = errors.New("probe failed")

// fakeRunner scripts command replies per command path.
type fakeRunner struct {
	replies map[string][]routeros.Row
	errs    map[string]error
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		replies: make(map[string][]routeros.Row),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) Run(_ context.Context, command string, _ ...string) ([]routeros.Row, error) {
	f.calls = append(f.calls, command)

	if err, ok := f.errs[command]; ok {
		return nil, err
	}

	if rows, ok := f.replies[command]; ok {
		return rows, nil
	}

	return nil, fmt.Errorf("%w: %s", errProbeFailed, command)
}

// scriptConn routes Run by command, backed by a fakeRunner.
type scriptConn struct {
	runner *fakeRunner
	closed chan struct{}
}

func newScriptConn(runner *fakeRunner) *scriptConn {
	return &scriptConn{runner: runner, closed: make(chan struct{})}
}

func (s *scriptConn) Run(ctx context.Context, command string, args ...string) ([]routeros.Row, error) {
	return s.runner.Run(ctx, command, args...)
}

func (s *scriptConn) Closed() <-chan struct{} { return s.closed }

func (s *scriptConn) Close() error { return nil }

// scriptDialer answers every port with the same scripted conn, or always
// fails when conn is nil.
type scriptDialer struct {
	conn  routeros.Conn
	dials int
}

func (d *scriptDialer) Dial(_ context.Context, _ string, _ int, _, _ string) (routeros.Conn, error) {
	d.dials++

	if d.conn == nil {
		return nil, errProbeFailed
	}

	return d.conn, nil
}

func newTestSet(t *testing.T) (*Set, *storage.Memory) {
	t.Helper()

	mem := storage.NewMemory()

	return NewSet(nil, mem, logger.NewTestLogger()), mem
}

func seedDevice(t *testing.T, mem *storage.Memory) *models.Device {
	t.Helper()

	device, err := mem.CreateDevice(context.Background(), &models.Device{
		Name: "core", Host: "10.0.0.1", Username: "admin", Password: "secret",
	})
	require.NoError(t, err)

	return device
}

func TestCollectConnectFailureRaisesAlertAndMarksOffline(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	registry := routeros.NewRegistry(&scriptDialer{}, logger.NewTestLogger())
	set := NewSet(registry, mem, logger.NewTestLogger())

	device := seedDevice(t, mem)
	online := true
	require.NoError(t, mem.UpdateDevice(ctx, device.ID, &models.DeviceUpdate{IsOnline: &online}))

	_, err := set.Collect(ctx, device)
	require.Error(t, err)

	alerts := mem.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityError, alerts[0].Severity)
	assert.Equal(t, models.AlertSourceConnection, alerts[0].Source)
	assert.Contains(t, alerts[0].Message, "10.0.0.1")

	got, err := mem.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOnline)
}

func TestCollectMetricsFailureRaisesMetricsAlert(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	runner := newFakeRunner()
	runner.errs["/system/resource/print"] = errProbeFailed

	registry := routeros.NewRegistry(&scriptDialer{conn: newScriptConn(runner)}, logger.NewTestLogger())
	set := NewSet(registry, mem, logger.NewTestLogger())

	device := seedDevice(t, mem)

	_, err := set.Collect(ctx, device)
	require.Error(t, err)

	alerts := mem.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityError, alerts[0].Severity)
	assert.Equal(t, models.AlertSourceMetrics, alerts[0].Source)

	got, err := mem.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOnline)

	// The session is dropped so the next tick reconnects from scratch.
	_, ok := registry.Get(device.ID)
	assert.False(t, ok)
}

func TestCollectMetricsFailureResetsRateBaseline(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	runner := newFakeRunner()
	runner.replies["/system/resource/print"] = []routeros.Row{
		{"cpu-load": "7", "free-memory": "1000", "total-memory": "2000", "uptime": "1d2h"},
	}
	runner.replies["/interface/print"] = []routeros.Row{
		{"name": "ether1", "type": "ether", "running": "true", "disabled": "false",
			"rx-byte": "100", "tx-byte": "50", "mac-address": "4C:5E:0C:00:00:01"},
	}

	registry := routeros.NewRegistry(&scriptDialer{conn: newScriptConn(runner)}, logger.NewTestLogger())
	set := NewSet(registry, mem, logger.NewTestLogger())

	device := seedDevice(t, mem)

	_, err := set.Collect(ctx, device)
	require.NoError(t, err)

	_, sampled := set.rates.last[device.ID]
	require.True(t, sampled)

	// The device drops off; the stale counter baseline must go with it
	// or the first sample after reconnect spans the whole outage.
	runner.errs["/system/resource/print"] = errProbeFailed

	_, err = set.Collect(ctx, device)
	require.Error(t, err)

	_, sampled = set.rates.last[device.ID]
	assert.False(t, sampled)
}

func TestCollectSiblingFailureDoesNotAbortCycle(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	runner := newFakeRunner()
	runner.replies["/system/resource/print"] = []routeros.Row{
		{"cpu-load": "7", "free-memory": "1000", "total-memory": "2000", "uptime": "1d2h"},
	}
	runner.replies["/interface/print"] = []routeros.Row{
		{"name": "ether1", "type": "ether", "running": "true", "disabled": "false",
			"rx-byte": "100", "tx-byte": "50", "mac-address": "4C:5E:0C:00:00:01"},
	}
	// Everything else fails; the cycle must still produce a snapshot.

	registry := routeros.NewRegistry(&scriptDialer{conn: newScriptConn(runner)}, logger.NewTestLogger())
	set := NewSet(registry, mem, logger.NewTestLogger())

	device := seedDevice(t, mem)

	snapshot, err := set.Collect(ctx, device)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.True(t, snapshot.IsOnline)
	require.NotNil(t, snapshot.Metric)
	assert.Equal(t, int64(7), snapshot.Metric.CPULoad)
	require.Len(t, snapshot.Interfaces, 1)

	got, err := mem.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOnline)
	require.NotNil(t, got.LastSeen)
}

func TestUptimeRegressed(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		want     bool
	}{
		{name: "shrinking uptime", previous: "2w3d", current: "5m12s", want: true},
		{name: "growing uptime", previous: "1d2h", current: "1d3h", want: false},
		{name: "no previous sample", previous: "", current: "1h", want: false},
		{name: "unparseable current", previous: "1d", current: "garbage", want: false},
		{name: "equal uptime", previous: "1h30m", current: "1h30m", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uptimeRegressed(tt.previous, tt.current))
		})
	}
}

func TestEnrichMessage(t *testing.T) {
	tests := []struct {
		name   string
		device *models.Device
		want   string
	}{
		{
			name:   "model and version",
			device: &models.Device{Model: "RB4011", RouterOSVersion: "7.16"},
			want:   "Interface ether1 is down [RB4011, RouterOS 7.16]",
		},
		{
			name:   "model only",
			device: &models.Device{Model: "RB4011"},
			want:   "Interface ether1 is down [RB4011]",
		},
		{
			name:   "nothing known",
			device: &models.Device{},
			want:   "Interface ether1 is down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, enrichMessage(tt.device, "Interface ether1 is down"))
		})
	}
}
