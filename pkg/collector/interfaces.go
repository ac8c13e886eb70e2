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
	"github.com/routerwatch/routerwatch/pkg/routeros"
)

// collectInterfaces polls the interface table, raises down-transition
// alerts against the previously persisted state, and reconciles the
// stored set so it mirrors the device. Returns the reconciled snapshot.
func (c *Set) collectInterfaces(ctx context.Context, run Runner, device *models.Device) ([]*models.Interface, error) {
	rows, err := run.Run(ctx, "/interface/print")
	if err != nil {
		return nil, fmt.Errorf("interface query failed: %w", err)
	}

	current := make([]*models.Interface, 0, len(rows))
	for _, row := range rows {
		current = append(current, interfaceFromRow(device.ID, row))
	}

	c.logInterfaceMarkers(device.ID, current)

	previous, err := c.store.GetInterfaces(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted interfaces: %w", err)
	}

	c.emitEvents(ctx, device, diffInterfaces(previous, current))

	if err := c.reconcileInterfaces(ctx, previous, current); err != nil {
		return nil, err
	}

	return current, nil
}

// reconcileInterfaces makes the persisted set equal the device snapshot,
// keyed by interface name: update matched rows, insert new ones, then
// delete what the device no longer reports. Deletes run last so a failed
// upsert never leaves the set smaller than the snapshot.
func (c *Set) reconcileInterfaces(ctx context.Context, previous, current []*models.Interface) error {
	previousByName := make(map[string]*models.Interface, len(previous))
	for _, i := range previous {
		previousByName[i.Name] = i
	}

	seen := make(map[string]struct{}, len(current))

	for _, i := range current {
		seen[i.Name] = struct{}{}

		if old, ok := previousByName[i.Name]; ok {
			i.ID = old.ID
		}

		stored, err := c.store.UpsertInterface(ctx, i)
		if err != nil {
			return fmt.Errorf("failed to upsert interface %s: %w", i.Name, err)
		}

		i.ID = stored.ID
	}

	for _, old := range previous {
		if _, ok := seen[old.Name]; ok {
			continue
		}

		if err := c.store.DeleteInterface(ctx, old.ID); err != nil {
			return fmt.Errorf("failed to delete interface %s: %w", old.Name, err)
		}
	}

	return nil
}

func interfaceFromRow(deviceID int64, row routeros.Row) *models.Interface {
	running := row.Bool("running")
	disabled := row.Bool("disabled")

	return &models.Interface{
		DeviceID:       deviceID,
		Name:           row.StrOr("name", "unknown"),
		Type:           row.Str("type"),
		MACAddress:     row.MAC("mac-address"),
		Comment:        row.Str("comment"),
		MTU:            row.Int("mtu"),
		Running:        running,
		Disabled:       disabled,
		IsUp:           running && !disabled,
		RxBytes:        row.Int("rx-byte"),
		TxBytes:        row.Int("tx-byte"),
		RxPackets:      row.Int("rx-packet"),
		TxPackets:      row.Int("tx-packet"),
		RxErrors:       row.Int("rx-error"),
		TxErrors:       row.Int("tx-error"),
		RxDrops:        row.Int("rx-drop"),
		TxDrops:        row.Int("tx-drop"),
		LinkDowns:      row.Int("link-downs"),
		LastLinkUpTime: row.Str("last-link-up-time"),
	}
}

// logInterfaceMarkers notes CAP and wlan interface names. Pure
// diagnostics: the markers tell an operator why a device later shows up
// as wireless or controller-managed.
func (c *Set) logInterfaceMarkers(deviceID int64, ifaces []*models.Interface) {
	for _, i := range ifaces {
		name := strings.ToLower(i.Name)

		if strings.Contains(name, "cap") || strings.HasPrefix(name, "wlan") {
			c.logger.Debug().
				Int64("device_id", deviceID).
				Str("interface", i.Name).
				Str("type", i.Type).
				Msg("Wireless marker interface present")
		}
	}
}
