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
	"time"

	"github.com/routerwatch/routerwatch/pkg/models"
)

// CollectNeighbors merges the device's ARP table with its DHCP lease
// table into the persisted neighbor set, keyed by MAC. ARP entries come
// first; leases fill in hostnames and contribute MACs ARP has not seen.
func (c *Set) CollectNeighbors(ctx context.Context, device *models.Device) ([]*models.Neighbor, error) {
	session, err := c.sessions.GetOrCreate(ctx, device)
	if err != nil {
		return nil, err
	}

	return c.collectNeighbors(ctx, session, device.ID)
}

func (c *Set) collectNeighbors(ctx context.Context, run Runner, deviceID int64) ([]*models.Neighbor, error) {
	now := time.Now()
	byMAC := make(map[string]*models.Neighbor)

	var order []string

	arp, err := run.Run(ctx, "/ip/arp/print")
	if err != nil {
		return nil, fmt.Errorf("arp query failed: %w", err)
	}

	for _, row := range arp {
		if !row.Bool("complete") {
			continue
		}

		mac := row.MAC("mac-address")

		byMAC[mac] = &models.Neighbor{
			DeviceID:   deviceID,
			IPAddress:  row.Str("address"),
			MACAddress: mac,
			Interface:  row.Str("interface"),
			Source:     "arp",
			LastSeen:   now,
		}
		order = append(order, mac)
	}

	// Leases are secondary: they never override an ARP sighting, only
	// decorate it with the hostname the client announced.
	leases, err := run.Run(ctx, "/ip/dhcp-server/lease/print")
	if err != nil {
		c.logger.Debug().Err(err).Int64("device_id", deviceID).Msg("DHCP lease query failed")
	} else {
		for _, row := range leases {
			if row.Str("status") != "bound" {
				continue
			}

			mac := row.MAC("mac-address")

			if existing, ok := byMAC[mac]; ok {
				if existing.Hostname == "" {
					existing.Hostname = row.Str("host-name")
				}

				continue
			}

			byMAC[mac] = &models.Neighbor{
				DeviceID:   deviceID,
				IPAddress:  row.Str("address"),
				MACAddress: mac,
				Hostname:   row.Str("host-name"),
				Source:     "dhcp",
				LastSeen:   now,
			}
			order = append(order, mac)
		}
	}

	out := make([]*models.Neighbor, 0, len(order))

	for _, mac := range order {
		n := byMAC[mac]

		if err := c.store.UpsertNeighbor(ctx, n); err != nil {
			return nil, fmt.Errorf("failed to upsert neighbor %s: %w", mac, err)
		}

		out = append(out, n)
	}

	return out, nil
}
