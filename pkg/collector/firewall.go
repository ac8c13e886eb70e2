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
	"net"
	"strconv"

	"github.com/routerwatch/routerwatch/pkg/ids"
	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
)

// collectFirewall summarizes filter and NAT rule counts plus the live
// connection count. Rule bodies never leave the device.
func (c *Set) collectFirewall(ctx context.Context, run Runner, deviceID int64) (*models.FirewallSummary, error) {
	summary := &models.FirewallSummary{DeviceID: deviceID}

	filter, err := run.Run(ctx, "/ip/firewall/filter/print")
	if err != nil {
		return nil, fmt.Errorf("filter query failed: %w", err)
	}

	for _, row := range filter {
		if row.Bool("disabled") {
			summary.FilterDisabled++
			continue
		}

		summary.FilterActive++

		switch row.Str("action") {
		case "accept":
			summary.FilterAccept++
		case "drop":
			summary.FilterDrop++
		case "reject":
			summary.FilterReject++
		}
	}

	nat, err := run.Run(ctx, "/ip/firewall/nat/print")
	if err != nil {
		return nil, fmt.Errorf("nat query failed: %w", err)
	}

	for _, row := range nat {
		if row.Bool("disabled") {
			summary.NATDisabled++
			continue
		}

		summary.NATActive++

		switch row.Str("chain") {
		case "srcnat":
			summary.NATSrc++
		case "dstnat":
			summary.NATDst++
		}

		if row.Str("action") == "masquerade" {
			summary.NATMasquerade++
		}
	}

	// Best effort; busy routers may have very large tables.
	if conns, err := run.Run(ctx, "/ip/firewall/connection/print"); err != nil {
		c.logger.Debug().Err(err).Int64("device_id", deviceID).Msg("Connection table query failed")
	} else {
		summary.ConnectionCount = len(conns)
		c.recordTraffic(conns)
	}

	return summary, nil
}

// recordTraffic feeds the connection table into the sliding-window
// traffic memory, one observation per live connection.
func (c *Set) recordTraffic(conns []routeros.Row) {
	if c.traffic == nil {
		return
	}

	for _, row := range conns {
		src, _ := splitAddr(row.Str("src-address"))
		dst, dstPort := splitAddr(row.Str("dst-address"))

		if src == "" || dst == "" {
			continue
		}

		c.traffic.Record(src, dst, ids.Observation{
			Port:        dstPort,
			Bytes:       row.Int("orig-bytes"),
			Connections: 1,
		})
	}
}

// splitAddr splits a connection-table address such as "10.0.0.5:443"
// into host and port. Addresses without a port come back whole.
func splitAddr(addr string) (host string, port int) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}

	n, err := strconv.Atoi(p)
	if err != nil {
		return h, 0
	}

	return h, n
}
