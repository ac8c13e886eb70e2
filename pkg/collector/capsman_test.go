package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
)

func TestCapsmanPresentFirstProbeWins(t *testing.T) {
	set, _ := newTestSet(t)

	runner := newFakeRunner()
	runner.replies["/caps-man/manager/print"] = []routeros.Row{{"enabled": "true"}}

	assert.True(t, set.capsmanPresent(context.Background(), runner, 1))
	assert.Equal(t, []string{"/caps-man/manager/print"}, runner.calls)
}

func TestCapsmanPresentCascadesThroughProbes(t *testing.T) {
	set, _ := newTestSet(t)

	runner := newFakeRunner()
	runner.errs["/caps-man/manager/print"] = errProbeFailed
	runner.replies["/caps-man/configuration/print"] = nil // empty, keep going
	runner.replies["/caps-man/access-point/print"] = []routeros.Row{{"name": "cap1"}}

	assert.True(t, set.capsmanPresent(context.Background(), runner, 1))
	assert.Len(t, runner.calls, 3)
}

func TestCapsmanPresentAllProbesFail(t *testing.T) {
	set, _ := newTestSet(t)

	runner := newFakeRunner()
	for _, probe := range capsmanProbes {
		runner.errs[probe] = errProbeFailed
	}

	assert.False(t, set.capsmanPresent(context.Background(), runner, 1))
	assert.Len(t, runner.calls, len(capsmanProbes))
}

func TestCollectCapsmanUpdatesPresenceFlag(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	for _, probe := range capsmanProbes {
		runner.errs[probe] = errProbeFailed
	}

	device.HasCAPsMAN = true
	require.NoError(t, set.collectCapsman(ctx, runner, device))

	got, err := mem.GetDevice(ctx, device.ID)
	require.NoError(t, err)
	assert.False(t, got.HasCAPsMAN)
}

func capsmanRunner() *fakeRunner {
	runner := newFakeRunner()
	runner.replies["/caps-man/manager/print"] = []routeros.Row{{"enabled": "true"}}
	runner.replies["/caps-man/remote-cap/print"] = []routeros.Row{
		{"name": "office-ap", "identity": "office", "base-mac": "4C:5E:0C:AA:00:01",
			"address": "192.168.88.2", "board": "cAP ac", "version": "7.16", "state": "running"},
	}
	runner.replies["/caps-man/registration-table/print"] = []routeros.Row{
		{"interface": "office-ap-1", "mac-address": "AA:BB:CC:00:00:01",
			"rx-signal": "-61", "uptime": "1h2m"},
	}

	return runner
}

func TestCollectCapsmanReconcilesAPsAndClients(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	require.NoError(t, set.collectCapsman(ctx, capsmanRunner(), device))

	aps, err := mem.GetCapsmanAPs(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, aps, 1)
	assert.Equal(t, "office-ap", aps[0].Name)
	assert.Equal(t, "running", aps[0].State)
	assert.Equal(t, 1, aps[0].Clients)

	clients, err := mem.GetCapsmanClients(ctx, aps[0].ID)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "AA:BB:CC:00:00:01", clients[0].MACAddress)

	// First sight of a client is a join event.
	alerts := mem.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityInfo, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "connected")
}

func TestCollectCapsmanAPStateChangeAlerts(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := capsmanRunner()
	require.NoError(t, set.collectCapsman(ctx, runner, device))

	joined := len(mem.Alerts())

	runner.replies["/caps-man/remote-cap/print"] = []routeros.Row{
		{"name": "office-ap", "identity": "office", "base-mac": "4C:5E:0C:AA:00:01",
			"address": "192.168.88.2", "board": "cAP ac", "version": "7.16", "state": "disconnected"},
	}

	require.NoError(t, set.collectCapsman(ctx, runner, device))

	alerts := mem.Alerts()[joined:]
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityError, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "running")
	assert.Contains(t, alerts[0].Message, "disconnected")
}

func TestCollectCapsmanClientLeaveAlerts(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := capsmanRunner()
	require.NoError(t, set.collectCapsman(ctx, runner, device))

	before := len(mem.Alerts())

	runner.replies["/caps-man/registration-table/print"] = nil

	require.NoError(t, set.collectCapsman(ctx, runner, device))

	alerts := mem.Alerts()[before:]
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityInfo, alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "disconnected from AP office-ap")

	aps, err := mem.GetCapsmanAPs(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, aps, 1)
	assert.Zero(t, aps[0].Clients)
}

func TestMatchClientAP(t *testing.T) {
	aps := []*models.CapsmanAP{
		{Name: "office-ap"},
		{Name: "lobby"},
	}

	assert.Equal(t, aps[1], matchClientAP(aps, "lobby"))
	assert.Equal(t, aps[0], matchClientAP(aps, "office-ap-2"))
	assert.Nil(t, matchClientAP(aps, "warehouse-1"))
}
