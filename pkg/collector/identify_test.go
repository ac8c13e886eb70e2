package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
	"github.com/routerwatch/routerwatch/pkg/storage"
)

func TestIdentifyFillsHardwareIdentity(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()

	runner := newFakeRunner()
	runner.replies["/system/resource/print"] = []routeros.Row{
		{"board-name": "RB4011iGS+", "version": "7.16.1", "uptime": "4w2d"},
	}
	runner.replies["/system/routerboard/print"] = []routeros.Row{
		{"model": "RB4011iGS+5HacQ2HnD", "serial-number": "ABC123", "current-firmware": "7.16.1"},
	}

	registry := routeros.NewRegistry(&scriptDialer{conn: newScriptConn(runner)}, logger.NewTestLogger())
	set := NewSet(registry, mem, logger.NewTestLogger())

	device := seedDevice(t, mem)
	device.IsOnline = true

	_, err := mem.UpsertInterface(ctx, &models.Interface{
		DeviceID: device.ID, Name: "ether1", MACAddress: "4C:5E:0C:11:22:33",
	})
	require.NoError(t, err)

	require.NoError(t, set.Identify(ctx, device))

	got, err := mem.GetDevice(ctx, device.ID)
	require.NoError(t, err)

	// Routerboard model beats the resource board name.
	assert.Equal(t, "RB4011iGS+5HacQ2HnD", got.Model)
	assert.Equal(t, "ABC123", got.SerialNumber)
	assert.Equal(t, "7.16.1", got.RouterOSVersion)
	assert.Equal(t, "MikroTik", got.Vendor)
	assert.Equal(t, "router", got.Role)
	assert.GreaterOrEqual(t, got.IdentScore, IdentScoreComplete)
}

func TestIdentifyRoleFromCapabilities(t *testing.T) {
	assert.Equal(t, "controller", classifyRole(&models.Device{HasCAPsMAN: true, HasWireless: true}))
	assert.Equal(t, "access-point", classifyRole(&models.Device{HasWireless: true}))
	assert.Equal(t, "router", classifyRole(&models.Device{}))
}

func TestIdentScore(t *testing.T) {
	assert.Zero(t, identScore(&models.Device{}))

	full := &models.Device{
		Model: "RB4011", SerialNumber: "X", RouterOSVersion: "7.16",
		Firmware: "7.16", Vendor: "MikroTik", Role: "router", IsOnline: true,
	}
	assert.Equal(t, 100, identScore(full))

	partial := &models.Device{Model: "RB4011", Vendor: "MikroTik"}
	assert.Equal(t, 40, identScore(partial))
}

func TestClassifyVendorFromOUI(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	set := NewSet(nil, mem, logger.NewTestLogger())

	device := seedDevice(t, mem)

	_, err := mem.UpsertInterface(ctx, &models.Interface{
		DeviceID: device.ID, Name: "ether1", MACAddress: "24:a4:3c:00:11:22",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ubiquiti", set.classifyVendor(ctx, device))
}

func TestClassifyVendorFallsBackToAPIEvidence(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	set := NewSet(nil, mem, logger.NewTestLogger())

	device := seedDevice(t, mem)
	device.RouterOSVersion = "7.16"

	assert.Equal(t, "MikroTik", set.classifyVendor(ctx, device))

	unknown := &models.Device{ID: device.ID + 1}
	assert.Equal(t, "", set.classifyVendor(ctx, unknown))
}
