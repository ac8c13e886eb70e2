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

// Package models defines the shared entity types for the RouterOS
// monitoring core.
package models

import "time"

// Device is a managed RouterOS device. Devices are created by discovery or
// manual registration and are only ever marked offline, never deleted.
type Device struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Host            string     `json:"host"`
	Username        string     `json:"username"`
	Password        string     `json:"-"`
	Model           string     `json:"model,omitempty"`
	SerialNumber    string     `json:"serial_number,omitempty"`
	RouterOSVersion string     `json:"routeros_version,omitempty"`
	Firmware        string     `json:"firmware,omitempty"`
	Uptime          string     `json:"uptime,omitempty"`
	HasWireless     bool       `json:"has_wireless"`
	HasCAPsMAN      bool       `json:"has_capsman"`
	IsOnline        bool       `json:"is_online"`
	IdentScore      int        `json:"ident_score"`
	Vendor          string     `json:"vendor,omitempty"`
	Role            string     `json:"role,omitempty"`
	LastSeen        *time.Time `json:"last_seen,omitempty"`
}

// DeviceUpdate carries the mutable fields of a device. Nil pointers leave
// the stored value untouched.
type DeviceUpdate struct {
	IsOnline        *bool      `json:"is_online,omitempty"`
	LastSeen        *time.Time `json:"last_seen,omitempty"`
	Model           *string    `json:"model,omitempty"`
	SerialNumber    *string    `json:"serial_number,omitempty"`
	RouterOSVersion *string    `json:"routeros_version,omitempty"`
	Firmware        *string    `json:"firmware,omitempty"`
	Uptime          *string    `json:"uptime,omitempty"`
	HasWireless     *bool      `json:"has_wireless,omitempty"`
	HasCAPsMAN      *bool      `json:"has_capsman,omitempty"`
	IdentScore      *int       `json:"ident_score,omitempty"`
	Vendor          *string    `json:"vendor,omitempty"`
	Role            *string    `json:"role,omitempty"`
}

// Neighbor is a downstream client seen in a device's ARP table or DHCP
// lease table, keyed by MAC address.
type Neighbor struct {
	DeviceID   int64     `json:"device_id"`
	IPAddress  string    `json:"ip_address"`
	MACAddress string    `json:"mac_address"`
	Hostname   string    `json:"hostname,omitempty"`
	Interface  string    `json:"interface,omitempty"`
	Source     string    `json:"source"` // "arp" or "dhcp"
	LastSeen   time.Time `json:"last_seen"`
}
