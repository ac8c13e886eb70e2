package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
)

func interfaceRows() []routeros.Row {
	return []routeros.Row{
		{"name": "ether1", "type": "ether", "running": "true", "disabled": "false",
			"mac-address": "4C:5E:0C:00:00:01", "rx-byte": "1000", "tx-byte": "500"},
		{"name": "ether2", "type": "ether", "running": "false", "disabled": "false",
			"mac-address": "4C:5E:0C:00:00:02", "rx-byte": "0", "tx-byte": "0"},
	}
}

func TestCollectInterfacesReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.replies["/interface/print"] = interfaceRows()

	first, err := set.collectInterfaces(ctx, runner, device)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := set.collectInterfaces(ctx, runner, device)
	require.NoError(t, err)
	require.Len(t, second, 2)

	// Same natural keys keep their row identity across cycles.
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	stored, err := mem.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	assert.Empty(t, mem.Alerts())
}

func TestCollectInterfacesDownTransitionAlerts(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.replies["/interface/print"] = interfaceRows()

	_, err := set.collectInterfaces(ctx, runner, device)
	require.NoError(t, err)

	down := interfaceRows()
	down[0]["running"] = "false"
	runner.replies["/interface/print"] = down

	_, err = set.collectInterfaces(ctx, runner, device)
	require.NoError(t, err)

	alerts := mem.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, models.AlertSourceInterface, alerts[0].Source)
	assert.Contains(t, alerts[0].Message, "ether1")

	// The already-down ether2 stays silent on repeat cycles.
	_, err = set.collectInterfaces(ctx, runner, device)
	require.NoError(t, err)
	assert.Len(t, mem.Alerts(), 1)
}

func TestCollectInterfacesDeletesAbsent(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.replies["/interface/print"] = interfaceRows()

	_, err := set.collectInterfaces(ctx, runner, device)
	require.NoError(t, err)

	runner.replies["/interface/print"] = interfaceRows()[:1]

	_, err = set.collectInterfaces(ctx, runner, device)
	require.NoError(t, err)

	stored, err := mem.GetInterfaces(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "ether1", stored[0].Name)

	// Removal alone raises nothing.
	assert.Empty(t, mem.Alerts())
}

func TestInterfaceFromRow(t *testing.T) {
	row := routeros.Row{
		"name": "vlan10", "type": "vlan", "running": "true", "disabled": "false",
		"mac-address": "4C:5E:0C:00:00:03", "mtu": "1500",
		"rx-byte": "123", "tx-byte": "456", "link-downs": "2",
	}

	i := interfaceFromRow(7, row)

	assert.Equal(t, int64(7), i.DeviceID)
	assert.Equal(t, "vlan10", i.Name)
	assert.True(t, i.IsUp)
	assert.Equal(t, int64(1500), i.MTU)
	assert.Equal(t, int64(123), i.RxBytes)
	assert.Equal(t, int64(2), i.LinkDowns)
}
