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

package models

import "time"

// Interface is a physical or virtual interface on a device. The natural
// key within a device is the interface name; RouterOS does not hand out
// stable surrogate ids across reboots.
type Interface struct {
	ID             int64      `json:"id"`
	DeviceID       int64      `json:"device_id"`
	Name           string     `json:"name"`
	Type           string     `json:"type"`
	MACAddress     string     `json:"mac_address"`
	Comment        string     `json:"comment,omitempty"`
	MTU            int64      `json:"mtu"`
	Running        bool       `json:"running"`
	Disabled       bool       `json:"disabled"`
	IsUp           bool       `json:"is_up"`
	RxBytes        int64      `json:"rx_bytes"`
	TxBytes        int64      `json:"tx_bytes"`
	RxPackets      int64      `json:"rx_packets"`
	TxPackets      int64      `json:"tx_packets"`
	RxErrors       int64      `json:"rx_errors"`
	TxErrors       int64      `json:"tx_errors"`
	RxDrops        int64      `json:"rx_drops"`
	TxDrops        int64      `json:"tx_drops"`
	LinkDowns      int64      `json:"link_downs"`
	LastLinkUpTime string     `json:"last_link_up_time,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// WirelessInterface is a local (non-CAPsMAN) wireless interface, keyed by
// name within a device.
type WirelessInterface struct {
	ID         int64  `json:"id"`
	DeviceID   int64  `json:"device_id"`
	Name       string `json:"name"`
	SSID       string `json:"ssid,omitempty"`
	Band       string `json:"band,omitempty"`
	Frequency  string `json:"frequency,omitempty"`
	Channel    string `json:"channel,omitempty"`
	MACAddress string `json:"mac_address"`
	IsActive   bool   `json:"is_active"`
	Clients    int    `json:"clients"`
	Mode       string `json:"mode,omitempty"`
}

// CapsmanAP is a controller-managed access point. Natural key is the AP
// name, falling back to radio MAC when two APs share a name.
type CapsmanAP struct {
	ID         int64  `json:"id"`
	DeviceID   int64  `json:"device_id"`
	Name       string `json:"name"`
	MACAddress string `json:"mac_address"`
	IPAddress  string `json:"ip_address,omitempty"`
	Model      string `json:"model,omitempty"`
	Version    string `json:"version,omitempty"`
	Identity   string `json:"identity,omitempty"`
	RadioMAC   string `json:"radio_mac,omitempty"`
	RadioName  string `json:"radio_name,omitempty"`
	State      string `json:"state"`
	Uptime     string `json:"uptime,omitempty"`
	Clients    int    `json:"clients"`
}

// CapsmanClient is a wireless client registered against a CAPsMAN AP,
// keyed by MAC address.
type CapsmanClient struct {
	ID             int64  `json:"id"`
	APID           int64  `json:"ap_id"`
	DeviceID       int64  `json:"device_id"`
	MACAddress     string `json:"mac_address"`
	Interface      string `json:"interface,omitempty"`
	Hostname       string `json:"hostname,omitempty"`
	IPAddress      string `json:"ip_address,omitempty"`
	SignalStrength int    `json:"signal_strength,omitempty"`
	TxRate         string `json:"tx_rate,omitempty"`
	RxRate         string `json:"rx_rate,omitempty"`
	ConnectedTime  string `json:"connected_time,omitempty"`
}

// PPPConnection is a merged view of PPPoE client, L2TP client and L2TP
// server sessions, keyed by interface name.
type PPPConnection struct {
	Name          string `json:"name"`
	Type          string `json:"type"` // "pppoe" or "l2tp"
	User          string `json:"user,omitempty"`
	Uptime        string `json:"uptime,omitempty"`
	ActiveAddress string `json:"active_address,omitempty"`
	Service       string `json:"service,omitempty"`
	Running       bool   `json:"running"`
	Disabled      bool   `json:"disabled"`
	Comment       string `json:"comment,omitempty"`
	MACAddress    string `json:"mac_address,omitempty"`
	TxBytes       int64  `json:"tx_bytes"`
	RxBytes       int64  `json:"rx_bytes"`
	MTU           int64  `json:"mtu"`
}

// FirewallSummary aggregates filter and NAT rule counts for one device.
// The core collects the counts; rule bodies stay on the device.
type FirewallSummary struct {
	DeviceID        int64 `json:"device_id"`
	FilterActive    int   `json:"filter_active"`
	FilterDisabled  int   `json:"filter_disabled"`
	FilterAccept    int   `json:"filter_accept"`
	FilterDrop      int   `json:"filter_drop"`
	FilterReject    int   `json:"filter_reject"`
	NATActive       int   `json:"nat_active"`
	NATDisabled     int   `json:"nat_disabled"`
	NATSrc          int   `json:"nat_src"`
	NATDst          int   `json:"nat_dst"`
	NATMasquerade   int   `json:"nat_masquerade"`
	ConnectionCount int   `json:"connection_count"`
}
