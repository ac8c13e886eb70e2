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

	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
)

// collectWireless polls the local (non-CAPsMAN) wireless interfaces.
// Boards without the wireless package reject the command; that is the
// presence signal, not an error.
func (c *Set) collectWireless(ctx context.Context, run Runner, device *models.Device) error {
	rows, err := run.Run(ctx, "/interface/wireless/print")
	if err != nil {
		c.logger.Debug().Err(err).Int64("device_id", device.ID).Msg("No wireless package")

		return c.setWirelessPresence(ctx, device, false)
	}

	clients := c.wirelessClientCounts(ctx, run, device.ID)

	current := make([]*models.WirelessInterface, 0, len(rows))

	for _, row := range rows {
		w := wirelessFromRow(device.ID, row)
		w.Clients = clients[w.Name]
		current = append(current, w)
	}

	previous, err := c.store.GetWirelessInterfaces(ctx, device.ID)
	if err != nil {
		return fmt.Errorf("failed to load persisted wireless interfaces: %w", err)
	}

	c.emitEvents(ctx, device, diffWireless(previous, current))

	if err := c.reconcileWireless(ctx, previous, current); err != nil {
		return err
	}

	return c.setWirelessPresence(ctx, device, len(current) > 0)
}

func (c *Set) setWirelessPresence(ctx context.Context, device *models.Device, present bool) error {
	if device.HasWireless == present {
		return nil
	}

	device.HasWireless = present

	return c.store.UpdateDevice(ctx, device.ID, &models.DeviceUpdate{HasWireless: &present})
}

// wirelessClientCounts tallies registration-table entries per interface.
func (c *Set) wirelessClientCounts(ctx context.Context, run Runner, deviceID int64) map[string]int {
	counts := make(map[string]int)

	rows, err := run.Run(ctx, "/interface/wireless/registration-table/print")
	if err != nil {
		c.logger.Debug().Err(err).Int64("device_id", deviceID).Msg("Registration table query failed")

		return counts
	}

	for _, row := range rows {
		counts[row.Str("interface")]++
	}

	return counts
}

func (c *Set) reconcileWireless(ctx context.Context, previous, current []*models.WirelessInterface) error {
	previousByName := make(map[string]*models.WirelessInterface, len(previous))
	for _, w := range previous {
		previousByName[w.Name] = w
	}

	seen := make(map[string]struct{}, len(current))

	for _, w := range current {
		seen[w.Name] = struct{}{}

		if old, ok := previousByName[w.Name]; ok {
			w.ID = old.ID
		}

		stored, err := c.store.UpsertWirelessInterface(ctx, w)
		if err != nil {
			return fmt.Errorf("failed to upsert wireless interface %s: %w", w.Name, err)
		}

		w.ID = stored.ID
	}

	for _, old := range previous {
		if _, ok := seen[old.Name]; ok {
			continue
		}

		if err := c.store.DeleteWirelessInterface(ctx, old.ID); err != nil {
			return fmt.Errorf("failed to delete wireless interface %s: %w", old.Name, err)
		}
	}

	return nil
}

func wirelessFromRow(deviceID int64, row routeros.Row) *models.WirelessInterface {
	return &models.WirelessInterface{
		DeviceID:   deviceID,
		Name:       row.StrOr("name", "unknown"),
		SSID:       row.Str("ssid"),
		Band:       row.Str("band"),
		Frequency:  row.Str("frequency"),
		Channel:    row.Str("channel-width"),
		MACAddress: row.MAC("mac-address"),
		IsActive:   row.Bool("running") && !row.Bool("disabled"),
		Mode:       row.Str("mode"),
	}
}
