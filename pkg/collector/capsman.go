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

// capsmanProbes is the ordered presence cascade. RouterOS versions differ
// in which CAPsMAN path answers on a configured controller, so the first
// probe returning rows wins; only all four coming back empty or failing
// means CAPsMAN is absent.
var capsmanProbes = []string{
	"/caps-man/manager/print",
	"/caps-man/configuration/print",
	"/caps-man/access-point/print",
	"/caps-man/interface/print",
}

// collectCapsman detects CAPsMAN, then reconciles managed APs and their
// registered clients. Client join/leave events are raised per AP before
// the registration table is persisted.
func (c *Set) collectCapsman(ctx context.Context, run Runner, device *models.Device) error {
	present := c.capsmanPresent(ctx, run, device.ID)

	if device.HasCAPsMAN != present {
		device.HasCAPsMAN = present

		if err := c.store.UpdateDevice(ctx, device.ID, &models.DeviceUpdate{HasCAPsMAN: &present}); err != nil {
			return fmt.Errorf("failed to update capsman presence: %w", err)
		}
	}

	if !present {
		return nil
	}

	aps, err := c.reconcileCapsmanAPs(ctx, run, device)
	if err != nil {
		return err
	}

	return c.reconcileCapsmanClients(ctx, run, device, aps)
}

func (c *Set) capsmanPresent(ctx context.Context, run Runner, deviceID int64) bool {
	for _, probe := range capsmanProbes {
		rows, err := run.Run(ctx, probe)
		if err != nil {
			c.logger.Debug().Err(err).Int64("device_id", deviceID).Str("probe", probe).Msg("CAPsMAN probe failed")

			continue
		}

		if len(rows) > 0 {
			return true
		}
	}

	return false
}

func (c *Set) reconcileCapsmanAPs(ctx context.Context, run Runner, device *models.Device) ([]*models.CapsmanAP, error) {
	rows, err := run.Run(ctx, "/caps-man/remote-cap/print")
	if err != nil {
		return nil, fmt.Errorf("remote-cap query failed: %w", err)
	}

	current := make([]*models.CapsmanAP, 0, len(rows))
	for _, row := range rows {
		current = append(current, capsmanAPFromRow(device.ID, row))
	}

	previous, err := c.store.GetCapsmanAPs(ctx, device.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted aps: %w", err)
	}

	c.emitEvents(ctx, device, diffCapsmanAPs(previous, current))

	previousByName := make(map[string]*models.CapsmanAP, len(previous))
	for _, ap := range previous {
		previousByName[ap.Name] = ap
	}

	seen := make(map[string]struct{}, len(current))

	for _, ap := range current {
		seen[ap.Name] = struct{}{}

		if old, ok := previousByName[ap.Name]; ok {
			ap.ID = old.ID
		}

		stored, err := c.store.UpsertCapsmanAP(ctx, ap)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert ap %s: %w", ap.Name, err)
		}

		ap.ID = stored.ID
	}

	for _, old := range previous {
		if _, ok := seen[old.Name]; ok {
			continue
		}

		// Dropping the AP drops its client rows with it.
		if err := c.store.DeleteCapsmanAP(ctx, old.ID); err != nil {
			return nil, fmt.Errorf("failed to delete ap %s: %w", old.Name, err)
		}
	}

	return current, nil
}

// reconcileCapsmanClients groups the registration table by owning AP and
// reconciles each group by client MAC.
func (c *Set) reconcileCapsmanClients(ctx context.Context, run Runner, device *models.Device, aps []*models.CapsmanAP) error {
	rows, err := run.Run(ctx, "/caps-man/registration-table/print")
	if err != nil {
		return fmt.Errorf("registration-table query failed: %w", err)
	}

	grouped := make(map[int64][]*models.CapsmanClient)

	for _, row := range rows {
		ap := matchClientAP(aps, row.Str("interface"))
		if ap == nil {
			c.logger.Debug().
				Int64("device_id", device.ID).
				Str("interface", row.Str("interface")).
				Msg("Registration entry matches no known AP")

			continue
		}

		grouped[ap.ID] = append(grouped[ap.ID], capsmanClientFromRow(device.ID, ap.ID, row))
	}

	for _, ap := range aps {
		current := grouped[ap.ID]

		if ap.Clients != len(current) {
			ap.Clients = len(current)

			if _, err := c.store.UpsertCapsmanAP(ctx, ap); err != nil {
				return fmt.Errorf("failed to update client count for ap %s: %w", ap.Name, err)
			}
		}

		previous, err := c.store.GetCapsmanClients(ctx, ap.ID)
		if err != nil {
			return fmt.Errorf("failed to load clients for ap %s: %w", ap.Name, err)
		}

		c.emitEvents(ctx, device, diffCapsmanClients(previous, current, ap.Name))

		previousByMAC := make(map[string]*models.CapsmanClient, len(previous))
		for _, cl := range previous {
			previousByMAC[cl.MACAddress] = cl
		}

		seen := make(map[string]struct{}, len(current))

		for _, cl := range current {
			seen[cl.MACAddress] = struct{}{}

			if old, ok := previousByMAC[cl.MACAddress]; ok {
				cl.ID = old.ID
			}

			if _, err := c.store.UpsertCapsmanClient(ctx, cl); err != nil {
				return fmt.Errorf("failed to upsert client %s: %w", cl.MACAddress, err)
			}
		}

		for _, old := range previous {
			if _, ok := seen[old.MACAddress]; ok {
				continue
			}

			if err := c.store.DeleteCapsmanClient(ctx, old.ID); err != nil {
				return fmt.Errorf("failed to delete client %s: %w", old.MACAddress, err)
			}
		}
	}

	return nil
}

// matchClientAP resolves which AP owns a registration entry. The table
// reports the CAP interface name, which carries the AP name as a prefix
// (e.g. "office-ap-1" registered on cap "office-ap").
func matchClientAP(aps []*models.CapsmanAP, iface string) *models.CapsmanAP {
	for _, ap := range aps {
		if ap.Name == iface {
			return ap
		}
	}

	for _, ap := range aps {
		if ap.Name != "" && strings.HasPrefix(iface, ap.Name) {
			return ap
		}
	}

	return nil
}

func capsmanAPFromRow(deviceID int64, row routeros.Row) *models.CapsmanAP {
	return &models.CapsmanAP{
		DeviceID:   deviceID,
		Name:       row.StrOr("name", row.StrOr("identity", "unknown")),
		MACAddress: row.MAC("base-mac"),
		IPAddress:  row.Str("address"),
		Model:      row.Str("board"),
		Version:    row.Str("version"),
		Identity:   row.Str("identity"),
		RadioMAC:   row.Str("radio-mac"),
		RadioName:  row.Str("radio-name"),
		State:      row.StrOr("state", "unknown"),
		Uptime:     row.Str("uptime"),
	}
}

func capsmanClientFromRow(deviceID, apID int64, row routeros.Row) *models.CapsmanClient {
	return &models.CapsmanClient{
		APID:           apID,
		DeviceID:       deviceID,
		MACAddress:     row.MAC("mac-address"),
		Interface:      row.Str("interface"),
		Hostname:       row.Str("comment"),
		SignalStrength: int(row.IntOr("rx-signal", 0)),
		TxRate:         row.Str("tx-rate"),
		RxRate:         row.Str("rx-rate"),
		ConnectedTime:  row.Str("uptime"),
	}
}
