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

package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/routerwatch/routerwatch/pkg/models"
)

// IdentScoreComplete is the score at which the identification loop stops
// re-probing a device.
const IdentScoreComplete = 70

// ouiVendors maps the well-known OUI prefixes seen on managed networks.
// Deliberately small; anything else classifies as unknown rather than
// guessing.
var ouiVendors = map[string]string{
	"4C:5E:0C": "MikroTik",
	"64:D1:54": "MikroTik",
	"6C:3B:6B": "MikroTik",
	"B8:69:F4": "MikroTik",
	"CC:2D:E0": "MikroTik",
	"D4:CA:6D": "MikroTik",
	"DC:2C:6E": "MikroTik",
	"E4:8D:8C": "MikroTik",
	"48:8F:5A": "MikroTik",
	"24:A4:3C": "Ubiquiti",
	"F0:9F:C2": "Ubiquiti",
	"50:C7:BF": "TP-Link",
}

// Identify refreshes a device's hardware identity and recomputes its
// identification score. Devices at or above IdentScoreComplete are left
// alone by the periodic loop; manual triggers always re-run.
func (c *Set) Identify(ctx context.Context, device *models.Device) error {
	session, err := c.sessions.GetOrCreate(ctx, device)
	if err != nil {
		return err
	}

	update := &models.DeviceUpdate{}

	resource, err := session.Run(ctx, "/system/resource/print")
	if err != nil {
		return fmt.Errorf("resource query failed: %w", err)
	}

	if len(resource) > 0 {
		res := resource[0]

		if v := res.Str("version"); v != "" {
			device.RouterOSVersion = v
			update.RouterOSVersion = &device.RouterOSVersion
		}

		if v := res.Str("board-name"); v != "" && device.Model == "" {
			device.Model = v
			update.Model = &device.Model
		}

		if v := res.Str("uptime"); v != "" {
			device.Uptime = v
			update.Uptime = &device.Uptime
		}
	}

	// RouterBOARD details beat the resource board-name when available.
	if board, err := session.Run(ctx, "/system/routerboard/print"); err != nil {
		c.logger.Debug().Err(err).Int64("device_id", device.ID).Msg("Routerboard query failed")
	} else if len(board) > 0 {
		b := board[0]

		if v := b.Str("model"); v != "" {
			device.Model = v
			update.Model = &device.Model
		}

		if v := b.Str("serial-number"); v != "" {
			device.SerialNumber = v
			update.SerialNumber = &device.SerialNumber
		}

		if v := b.Str("current-firmware"); v != "" {
			device.Firmware = v
			update.Firmware = &device.Firmware
		}
	}

	device.Vendor = c.classifyVendor(ctx, device)
	update.Vendor = &device.Vendor

	device.Role = classifyRole(device)
	update.Role = &device.Role

	device.IdentScore = identScore(device)
	update.IdentScore = &device.IdentScore

	if err := c.store.UpdateDevice(ctx, device.ID, update); err != nil {
		return fmt.Errorf("failed to persist identification: %w", err)
	}

	c.logger.Info().
		Int64("device_id", device.ID).
		Str("model", device.Model).
		Str("vendor", device.Vendor).
		Str("role", device.Role).
		Int("score", device.IdentScore).
		Msg("Device identified")

	return nil
}

// classifyVendor looks up the OUI of the device's first hardware
// interface. A RouterOS API answering at all already implies MikroTik;
// the OUI check just confirms it from a second signal.
func (c *Set) classifyVendor(ctx context.Context, device *models.Device) string {
	ifaces, err := c.store.GetInterfaces(ctx, device.ID)
	if err != nil {
		return ""
	}

	for _, i := range ifaces {
		if len(i.MACAddress) < 8 || i.MACAddress == "00:00:00:00:00:00" {
			continue
		}

		prefix := strings.ToUpper(i.MACAddress[:8])
		if vendor, ok := ouiVendors[prefix]; ok {
			return vendor
		}
	}

	if device.Model != "" || device.RouterOSVersion != "" {
		return "MikroTik"
	}

	return ""
}

func classifyRole(device *models.Device) string {
	switch {
	case device.HasCAPsMAN:
		return "controller"
	case device.HasWireless:
		return "access-point"
	default:
		return "router"
	}
}

// identScore grades how completely a device is identified, 0-100.
func identScore(device *models.Device) int {
	score := 0

	if device.Model != "" {
		score += 15
	}

	if device.SerialNumber != "" {
		score += 15
	}

	if device.RouterOSVersion != "" {
		score += 15
	}

	if device.Firmware != "" {
		score += 10
	}

	if device.Vendor != "" {
		score += 25
	}

	if device.Role != "" {
		score += 10
	}

	if device.IsOnline {
		score += 10
	}

	if score > 100 {
		score = 100
	}

	return score
}
