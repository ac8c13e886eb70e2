package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/routeros"
)

func TestCollectMetricsStoresSample(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.replies["/system/resource/print"] = []routeros.Row{
		{"cpu-load": "23", "free-memory": "134217728", "total-memory": "268435456", "uptime": "4w6h46m50s"},
	}
	runner.replies["/system/health/print"] = []routeros.Row{
		{"name": "temperature", "value": "42"},
		{"name": "board-temperature", "value": "38"},
	}
	runner.replies["/interface/print"] = []routeros.Row{
		{"name": "ether1", "type": "ether", "running": "true", "disabled": "false",
			"rx-byte": "1000", "tx-byte": "400"},
	}

	metric, err := set.collectMetrics(ctx, runner, device)
	require.NoError(t, err)

	assert.Equal(t, int64(23), metric.CPULoad)
	assert.Equal(t, int64(134217728), metric.FreeMemory)
	assert.Equal(t, int64(42), metric.Temperature)
	assert.Equal(t, int64(38), metric.BoardTemp)
	assert.Equal(t, "4w6h46m50s", metric.Uptime)
	assert.Equal(t, int64(1000), metric.DownloadBandwidth)
	assert.Equal(t, int64(400), metric.UploadBandwidth)

	require.Len(t, mem.Metrics(), 1)
}

func TestCollectMetricsHealthOptional(t *testing.T) {
	ctx := context.Background()
	set, mem := newTestSet(t)
	device := seedDevice(t, mem)

	runner := newFakeRunner()
	runner.replies["/system/resource/print"] = []routeros.Row{
		{"cpu-load": "5", "free-memory": "1", "total-memory": "2", "uptime": "1h"},
	}
	runner.errs["/system/health/print"] = errProbeFailed
	runner.errs["/interface/print"] = errProbeFailed

	metric, err := set.collectMetrics(ctx, runner, device)
	require.NoError(t, err)
	assert.Zero(t, metric.Temperature)
	assert.Zero(t, metric.DownloadBandwidth)
}

func TestReadHealthLegacyFormat(t *testing.T) {
	temp, board := readHealth([]routeros.Row{
		{"temperature": "51", "board-temperature": "47", "voltage": "24"},
	})

	assert.Equal(t, int64(51), temp)
	assert.Equal(t, int64(47), board)
}

func TestTrafficTotals(t *testing.T) {
	rows := []routeros.Row{
		{"name": "ether1", "type": "ether", "running": "true", "disabled": "false",
			"rx-byte": "100", "tx-byte": "10"},
		// Bridges aggregate member counters and would double-count.
		{"name": "bridge1", "type": "bridge", "running": "true", "disabled": "false",
			"rx-byte": "999", "tx-byte": "999"},
		// Down interfaces only hold stale counters.
		{"name": "ether2", "type": "ether", "running": "false", "disabled": "false",
			"rx-byte": "50", "tx-byte": "5"},
		{"name": "ether3", "type": "ether", "running": "true", "disabled": "true",
			"rx-byte": "70", "tx-byte": "7"},
		{"name": "ether4", "type": "ether", "running": "true", "disabled": "false",
			"rx-byte": "200", "tx-byte": "20"},
	}

	download, upload := trafficTotals(rows)

	assert.Equal(t, int64(300), download)
	assert.Equal(t, int64(30), upload)
}
