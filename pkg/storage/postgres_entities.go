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

package storage

import (
	"context"
	"fmt"

	"github.com/routerwatch/routerwatch/pkg/models"
)

// Per-device entity sets. Natural-key uniqueness (name or MAC within a
// device) is enforced by unique indexes; upserts key on them so the
// reconcile step stays idempotent.

func (p *Postgres) GetInterfaces(ctx context.Context, deviceID int64) ([]*models.Interface, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, device_id, name, type, mac_address, comment, mtu, running,
			disabled, is_up, rx_bytes, tx_bytes, rx_packets, tx_packets,
			rx_errors, tx_errors, rx_drops, tx_drops, link_downs,
			last_link_up_time
		FROM interfaces WHERE device_id = $1 ORDER BY id`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interfaces: %w", err)
	}
	defer rows.Close()

	var out []*models.Interface

	for rows.Next() {
		var i models.Interface

		err := rows.Scan(&i.ID, &i.DeviceID, &i.Name, &i.Type, &i.MACAddress,
			&i.Comment, &i.MTU, &i.Running, &i.Disabled, &i.IsUp,
			&i.RxBytes, &i.TxBytes, &i.RxPackets, &i.TxPackets,
			&i.RxErrors, &i.TxErrors, &i.RxDrops, &i.TxDrops,
			&i.LinkDowns, &i.LastLinkUpTime)
		if err != nil {
			return nil, err
		}

		out = append(out, &i)
	}

	return out, rows.Err()
}

func (p *Postgres) UpsertInterface(ctx context.Context, iface *models.Interface) (*models.Interface, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO interfaces (device_id, name, type, mac_address, comment, mtu,
			running, disabled, is_up, rx_bytes, tx_bytes, rx_packets, tx_packets,
			rx_errors, tx_errors, rx_drops, tx_drops, link_downs, last_link_up_time,
			updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, now())
		ON CONFLICT (device_id, name) DO UPDATE SET
			type = EXCLUDED.type, mac_address = EXCLUDED.mac_address,
			comment = EXCLUDED.comment, mtu = EXCLUDED.mtu,
			running = EXCLUDED.running, disabled = EXCLUDED.disabled,
			is_up = EXCLUDED.is_up, rx_bytes = EXCLUDED.rx_bytes,
			tx_bytes = EXCLUDED.tx_bytes, rx_packets = EXCLUDED.rx_packets,
			tx_packets = EXCLUDED.tx_packets, rx_errors = EXCLUDED.rx_errors,
			tx_errors = EXCLUDED.tx_errors, rx_drops = EXCLUDED.rx_drops,
			tx_drops = EXCLUDED.tx_drops, link_downs = EXCLUDED.link_downs,
			last_link_up_time = EXCLUDED.last_link_up_time, updated_at = now()
		RETURNING id`,
		iface.DeviceID, iface.Name, iface.Type, iface.MACAddress, iface.Comment,
		iface.MTU, iface.Running, iface.Disabled, iface.IsUp, iface.RxBytes,
		iface.TxBytes, iface.RxPackets, iface.TxPackets, iface.RxErrors,
		iface.TxErrors, iface.RxDrops, iface.TxDrops, iface.LinkDowns,
		iface.LastLinkUpTime)

	cp := *iface

	if err := row.Scan(&cp.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert interface %s: %w", iface.Name, err)
	}

	return &cp, nil
}

func (p *Postgres) DeleteInterface(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM interfaces WHERE id = $1`, id)
	return err
}

func (p *Postgres) GetWirelessInterfaces(ctx context.Context, deviceID int64) ([]*models.WirelessInterface, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, device_id, name, ssid, band, frequency, channel, mac_address,
			is_active, clients, mode
		FROM wireless_interfaces WHERE device_id = $1 ORDER BY id`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wireless interfaces: %w", err)
	}
	defer rows.Close()

	var out []*models.WirelessInterface

	for rows.Next() {
		var w models.WirelessInterface

		err := rows.Scan(&w.ID, &w.DeviceID, &w.Name, &w.SSID, &w.Band,
			&w.Frequency, &w.Channel, &w.MACAddress, &w.IsActive,
			&w.Clients, &w.Mode)
		if err != nil {
			return nil, err
		}

		out = append(out, &w)
	}

	return out, rows.Err()
}

func (p *Postgres) UpsertWirelessInterface(ctx context.Context, w *models.WirelessInterface) (*models.WirelessInterface, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO wireless_interfaces (device_id, name, ssid, band, frequency,
			channel, mac_address, is_active, clients, mode)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (device_id, name) DO UPDATE SET
			ssid = EXCLUDED.ssid, band = EXCLUDED.band,
			frequency = EXCLUDED.frequency, channel = EXCLUDED.channel,
			mac_address = EXCLUDED.mac_address, is_active = EXCLUDED.is_active,
			clients = EXCLUDED.clients, mode = EXCLUDED.mode
		RETURNING id`,
		w.DeviceID, w.Name, w.SSID, w.Band, w.Frequency, w.Channel,
		w.MACAddress, w.IsActive, w.Clients, w.Mode)

	cp := *w

	if err := row.Scan(&cp.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert wireless interface %s: %w", w.Name, err)
	}

	return &cp, nil
}

func (p *Postgres) DeleteWirelessInterface(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM wireless_interfaces WHERE id = $1`, id)
	return err
}

func (p *Postgres) GetCapsmanAPs(ctx context.Context, deviceID int64) ([]*models.CapsmanAP, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, device_id, name, mac_address, ip_address, model, version,
			identity, radio_mac, radio_name, state, uptime, clients
		FROM capsman_aps WHERE device_id = $1 ORDER BY id`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query capsman aps: %w", err)
	}
	defer rows.Close()

	var out []*models.CapsmanAP

	for rows.Next() {
		var ap models.CapsmanAP

		err := rows.Scan(&ap.ID, &ap.DeviceID, &ap.Name, &ap.MACAddress,
			&ap.IPAddress, &ap.Model, &ap.Version, &ap.Identity,
			&ap.RadioMAC, &ap.RadioName, &ap.State, &ap.Uptime, &ap.Clients)
		if err != nil {
			return nil, err
		}

		out = append(out, &ap)
	}

	return out, rows.Err()
}

func (p *Postgres) UpsertCapsmanAP(ctx context.Context, ap *models.CapsmanAP) (*models.CapsmanAP, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO capsman_aps (device_id, name, mac_address, ip_address, model,
			version, identity, radio_mac, radio_name, state, uptime, clients)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (device_id, name) DO UPDATE SET
			mac_address = EXCLUDED.mac_address, ip_address = EXCLUDED.ip_address,
			model = EXCLUDED.model, version = EXCLUDED.version,
			identity = EXCLUDED.identity, radio_mac = EXCLUDED.radio_mac,
			radio_name = EXCLUDED.radio_name, state = EXCLUDED.state,
			uptime = EXCLUDED.uptime, clients = EXCLUDED.clients
		RETURNING id`,
		ap.DeviceID, ap.Name, ap.MACAddress, ap.IPAddress, ap.Model, ap.Version,
		ap.Identity, ap.RadioMAC, ap.RadioName, ap.State, ap.Uptime, ap.Clients)

	cp := *ap

	if err := row.Scan(&cp.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert capsman ap %s: %w", ap.Name, err)
	}

	return &cp, nil
}

func (p *Postgres) DeleteCapsmanAP(ctx context.Context, id int64) error {
	// capsman_clients has ON DELETE CASCADE on ap_id.
	_, err := p.pool.Exec(ctx, `DELETE FROM capsman_aps WHERE id = $1`, id)
	return err
}

func (p *Postgres) GetCapsmanClients(ctx context.Context, apID int64) ([]*models.CapsmanClient, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, ap_id, device_id, mac_address, interface, hostname, ip_address,
			signal_strength, tx_rate, rx_rate, connected_time
		FROM capsman_clients WHERE ap_id = $1 ORDER BY id`, apID)
	if err != nil {
		return nil, fmt.Errorf("failed to query capsman clients: %w", err)
	}
	defer rows.Close()

	var out []*models.CapsmanClient

	for rows.Next() {
		var c models.CapsmanClient

		err := rows.Scan(&c.ID, &c.APID, &c.DeviceID, &c.MACAddress, &c.Interface,
			&c.Hostname, &c.IPAddress, &c.SignalStrength, &c.TxRate,
			&c.RxRate, &c.ConnectedTime)
		if err != nil {
			return nil, err
		}

		out = append(out, &c)
	}

	return out, rows.Err()
}

func (p *Postgres) UpsertCapsmanClient(ctx context.Context, c *models.CapsmanClient) (*models.CapsmanClient, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO capsman_clients (ap_id, device_id, mac_address, interface,
			hostname, ip_address, signal_strength, tx_rate, rx_rate, connected_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ap_id, mac_address) DO UPDATE SET
			interface = EXCLUDED.interface, hostname = EXCLUDED.hostname,
			ip_address = EXCLUDED.ip_address,
			signal_strength = EXCLUDED.signal_strength,
			tx_rate = EXCLUDED.tx_rate, rx_rate = EXCLUDED.rx_rate,
			connected_time = EXCLUDED.connected_time
		RETURNING id`,
		c.APID, c.DeviceID, c.MACAddress, c.Interface, c.Hostname, c.IPAddress,
		c.SignalStrength, c.TxRate, c.RxRate, c.ConnectedTime)

	cp := *c

	if err := row.Scan(&cp.ID); err != nil {
		return nil, fmt.Errorf("failed to upsert capsman client %s: %w", c.MACAddress, err)
	}

	return &cp, nil
}

func (p *Postgres) DeleteCapsmanClient(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM capsman_clients WHERE id = $1`, id)
	return err
}

func (p *Postgres) UpsertNeighbor(ctx context.Context, n *models.Neighbor) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO neighbors (device_id, ip_address, mac_address, hostname,
			interface, source, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (device_id, mac_address) DO UPDATE SET
			ip_address = EXCLUDED.ip_address,
			hostname = CASE WHEN EXCLUDED.hostname <> '' THEN EXCLUDED.hostname
				ELSE neighbors.hostname END,
			interface = EXCLUDED.interface, source = EXCLUDED.source,
			last_seen = EXCLUDED.last_seen`,
		n.DeviceID, n.IPAddress, n.MACAddress, n.Hostname, n.Interface,
		n.Source, n.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to upsert neighbor %s: %w", n.MACAddress, err)
	}

	return nil
}

func (p *Postgres) GetNeighbors(ctx context.Context, deviceID int64) ([]*models.Neighbor, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT device_id, ip_address, mac_address, hostname, interface, source, last_seen
		FROM neighbors WHERE device_id = $1 ORDER BY mac_address`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer rows.Close()

	var out []*models.Neighbor

	for rows.Next() {
		var n models.Neighbor

		err := rows.Scan(&n.DeviceID, &n.IPAddress, &n.MACAddress, &n.Hostname,
			&n.Interface, &n.Source, &n.LastSeen)
		if err != nil {
			return nil, err
		}

		out = append(out, &n)
	}

	return out, rows.Err()
}
