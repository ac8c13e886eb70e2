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
	"sort"
	"sync"

	"github.com/routerwatch/routerwatch/pkg/models"
)

// Memory is an in-process Store used by tests and single-node deployments
// without a database. All methods are safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	nextID    int64
	devices   map[int64]*models.Device
	ifaces    map[int64]*models.Interface
	wireless  map[int64]*models.WirelessInterface
	aps       map[int64]*models.CapsmanAP
	apClients map[int64]*models.CapsmanClient
	neighbors map[string]*models.Neighbor // key deviceID/mac
	alerts    []*models.Alert
	metrics   []*models.Metric
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		devices:   make(map[int64]*models.Device),
		ifaces:    make(map[int64]*models.Interface),
		wireless:  make(map[int64]*models.WirelessInterface),
		aps:       make(map[int64]*models.CapsmanAP),
		apClients: make(map[int64]*models.CapsmanClient),
		neighbors: make(map[string]*models.Neighbor),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) allocID() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) GetDevice(_ context.Context, id int64) (*models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}

	cp := *d

	return &cp, nil
}

func (m *Memory) GetDeviceByHost(_ context.Context, host string) (*models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.devices {
		if d.Host == host {
			cp := *d
			return &cp, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, host)
}

func (m *Memory) GetAllDevices(_ context.Context) ([]*models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Device, 0, len(m.devices))

	for _, d := range m.devices {
		cp := *d
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *Memory) CreateDevice(_ context.Context, device *models.Device) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *device
	cp.ID = m.allocID()
	m.devices[cp.ID] = &cp

	out := cp

	return &out, nil
}

func (m *Memory) UpdateDevice(_ context.Context, id int64, update *models.DeviceUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}

	applyDeviceUpdate(d, update)

	return nil
}

func applyDeviceUpdate(d *models.Device, u *models.DeviceUpdate) {
	if u == nil {
		return
	}

	if u.IsOnline != nil {
		d.IsOnline = *u.IsOnline
	}

	if u.LastSeen != nil {
		d.LastSeen = u.LastSeen
	}

	if u.Model != nil {
		d.Model = *u.Model
	}

	if u.SerialNumber != nil {
		d.SerialNumber = *u.SerialNumber
	}

	if u.RouterOSVersion != nil {
		d.RouterOSVersion = *u.RouterOSVersion
	}

	if u.Firmware != nil {
		d.Firmware = *u.Firmware
	}

	if u.Uptime != nil {
		d.Uptime = *u.Uptime
	}

	if u.HasWireless != nil {
		d.HasWireless = *u.HasWireless
	}

	if u.HasCAPsMAN != nil {
		d.HasCAPsMAN = *u.HasCAPsMAN
	}

	if u.IdentScore != nil {
		d.IdentScore = *u.IdentScore
	}

	if u.Vendor != nil {
		d.Vendor = *u.Vendor
	}

	if u.Role != nil {
		d.Role = *u.Role
	}
}

func (m *Memory) GetInterfaces(_ context.Context, deviceID int64) ([]*models.Interface, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Interface

	for _, i := range m.ifaces {
		if i.DeviceID == deviceID {
			cp := *i
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *Memory) UpsertInterface(_ context.Context, iface *models.Interface) (*models.Interface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *iface

	if cp.ID == 0 {
		cp.ID = m.allocID()
	}

	m.ifaces[cp.ID] = &cp

	out := cp

	return &out, nil
}

func (m *Memory) DeleteInterface(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.ifaces, id)

	return nil
}

func (m *Memory) GetWirelessInterfaces(_ context.Context, deviceID int64) ([]*models.WirelessInterface, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.WirelessInterface

	for _, w := range m.wireless {
		if w.DeviceID == deviceID {
			cp := *w
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *Memory) UpsertWirelessInterface(_ context.Context, w *models.WirelessInterface) (*models.WirelessInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *w

	if cp.ID == 0 {
		cp.ID = m.allocID()
	}

	m.wireless[cp.ID] = &cp

	out := cp

	return &out, nil
}

func (m *Memory) DeleteWirelessInterface(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.wireless, id)

	return nil
}

func (m *Memory) GetCapsmanAPs(_ context.Context, deviceID int64) ([]*models.CapsmanAP, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.CapsmanAP

	for _, ap := range m.aps {
		if ap.DeviceID == deviceID {
			cp := *ap
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *Memory) UpsertCapsmanAP(_ context.Context, ap *models.CapsmanAP) (*models.CapsmanAP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *ap

	if cp.ID == 0 {
		cp.ID = m.allocID()
	}

	m.aps[cp.ID] = &cp

	out := cp

	return &out, nil
}

func (m *Memory) DeleteCapsmanAP(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.aps, id)

	// Clients hang off the AP; drop them with it.
	for cid, c := range m.apClients {
		if c.APID == id {
			delete(m.apClients, cid)
		}
	}

	return nil
}

func (m *Memory) GetCapsmanClients(_ context.Context, apID int64) ([]*models.CapsmanClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.CapsmanClient

	for _, c := range m.apClients {
		if c.APID == apID {
			cp := *c
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *Memory) UpsertCapsmanClient(_ context.Context, c *models.CapsmanClient) (*models.CapsmanClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c

	if cp.ID == 0 {
		cp.ID = m.allocID()
	}

	m.apClients[cp.ID] = &cp

	out := cp

	return &out, nil
}

func (m *Memory) DeleteCapsmanClient(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.apClients, id)

	return nil
}

func (m *Memory) UpsertNeighbor(_ context.Context, n *models.Neighbor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *n
	m.neighbors[fmt.Sprintf("%d/%s", n.DeviceID, n.MACAddress)] = &cp

	return nil
}

func (m *Memory) GetNeighbors(_ context.Context, deviceID int64) ([]*models.Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Neighbor

	for _, n := range m.neighbors {
		if n.DeviceID == deviceID {
			cp := *n
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MACAddress < out[j].MACAddress })

	return out, nil
}

func (m *Memory) CreateAlert(_ context.Context, alert *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *alert
	m.alerts = append(m.alerts, &cp)

	return nil
}

func (m *Memory) CreateMetric(_ context.Context, metric *models.Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *metric
	m.metrics = append(m.metrics, &cp)

	return nil
}

// Alerts returns a copy of all recorded alerts, oldest first. Test helper.
func (m *Memory) Alerts() []*models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Alert, 0, len(m.alerts))

	for _, a := range m.alerts {
		cp := *a
		out = append(out, &cp)
	}

	return out
}

// Metrics returns a copy of all recorded samples, oldest first. Test helper.
func (m *Memory) Metrics() []*models.Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Metric, 0, len(m.metrics))

	for _, s := range m.metrics {
		cp := *s
		out = append(out, &cp)
	}

	return out
}
