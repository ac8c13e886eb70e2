package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/routeros"
)

func TestCollectNeighborsMergesARPAndLeases(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.replies["/ip/arp/print"] = []routeros.Row{
		{"address": "192.168.88.10", "mac-address": "AA:AA:AA:00:00:01",
			"interface": "bridge1", "complete": "true"},
		// Incomplete entries are noise from unanswered ARP requests.
		{"address": "192.168.88.99", "mac-address": "00:00:00:00:00:00",
			"interface": "bridge1", "complete": "false"},
	}
	runner.replies["/ip/dhcp-server/lease/print"] = []routeros.Row{
		// Same MAC as the ARP entry; only contributes the hostname.
		{"address": "192.168.88.10", "mac-address": "AA:AA:AA:00:00:01",
			"host-name": "laptop", "status": "bound"},
		// Lease-only client.
		{"address": "192.168.88.20", "mac-address": "BB:BB:BB:00:00:02",
			"host-name": "printer", "status": "bound"},
		// Expired leases don't count.
		{"address": "192.168.88.30", "mac-address": "CC:CC:CC:00:00:03",
			"host-name": "gone", "status": "waiting"},
	}

	neighbors, err := set.collectNeighbors(ctx, runner, device.ID)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)

	assert.Equal(t, "arp", neighbors[0].Source)
	assert.Equal(t, "192.168.88.10", neighbors[0].IPAddress)
	assert.Equal(t, "laptop", neighbors[0].Hostname)

	assert.Equal(t, "dhcp", neighbors[1].Source)
	assert.Equal(t, "printer", neighbors[1].Hostname)

	stored, err := mem.GetNeighbors(ctx, device.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestCollectNeighborsARPFailureAborts(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.errs["/ip/arp/print"] = errProbeFailed

	_, err := set.collectNeighbors(ctx, runner, device.ID)
	require.Error(t, err)
}

func TestCollectNeighborsLeaseFailureIsTolerated(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.replies["/ip/arp/print"] = []routeros.Row{
		{"address": "192.168.88.10", "mac-address": "AA:AA:AA:00:00:01",
			"interface": "bridge1", "complete": "true"},
	}
	runner.errs["/ip/dhcp-server/lease/print"] = errProbeFailed

	neighbors, err := set.collectNeighbors(ctx, runner, device.ID)
	require.NoError(t, err)
	assert.Len(t, neighbors, 1)
}
