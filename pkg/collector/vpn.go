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

// collectVPN merges the three PPP surfaces into one list keyed by
// interface name: PPPoE client interfaces, L2TP client interfaces, and
// active server-side PPP sessions. Interface rows carry live byte
// counters and win over session rows for the same name.
func (c *Set) collectVPN(ctx context.Context, run Runner) ([]*models.PPPConnection, error) {
	byName := make(map[string]*models.PPPConnection)

	var order []string

	record := func(conn *models.PPPConnection, preferCounters bool) {
		existing, ok := byName[conn.Name]
		if !ok {
			byName[conn.Name] = conn
			order = append(order, conn.Name)

			return
		}

		// Fill gaps without clobbering what the richer source provided.
		if existing.User == "" {
			existing.User = conn.User
		}

		if existing.Uptime == "" {
			existing.Uptime = conn.Uptime
		}

		if existing.ActiveAddress == "" {
			existing.ActiveAddress = conn.ActiveAddress
		}

		if existing.MACAddress == "" {
			existing.MACAddress = conn.MACAddress
		}

		if preferCounters || (existing.RxBytes == 0 && existing.TxBytes == 0) {
			existing.RxBytes = conn.RxBytes
			existing.TxBytes = conn.TxBytes
		}
	}

	pppoe, err := run.Run(ctx, "/interface/pppoe-client/print")
	if err != nil {
		c.logger.Debug().Err(err).Msg("PPPoE client query failed")
	} else {
		for _, row := range pppoe {
			record(pppFromInterfaceRow(row, "pppoe"), true)
		}
	}

	l2tp, err := run.Run(ctx, "/interface/l2tp-client/print")
	if err != nil {
		c.logger.Debug().Err(err).Msg("L2TP client query failed")
	} else {
		for _, row := range l2tp {
			record(pppFromInterfaceRow(row, "l2tp"), true)
		}
	}

	active, err := run.Run(ctx, "/ppp/active/print")
	if err != nil {
		c.logger.Debug().Err(err).Msg("PPP active query failed")
	} else {
		for _, row := range active {
			record(pppFromActiveRow(row), false)
		}
	}

	if len(byName) == 0 && pppoe == nil && l2tp == nil && active == nil {
		return nil, fmt.Errorf("all ppp queries failed")
	}

	out := make([]*models.PPPConnection, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}

	return out, nil
}

func pppFromInterfaceRow(row routeros.Row, pppType string) *models.PPPConnection {
	return &models.PPPConnection{
		Name:       row.StrOr("name", "unknown"),
		Type:       pppType,
		User:       row.Str("user"),
		Uptime:     row.Str("uptime"),
		Service:    row.Str("service-name"),
		Running:    row.Bool("running"),
		Disabled:   row.Bool("disabled"),
		Comment:    row.Str("comment"),
		MACAddress: row.Str("mac-address"),
		TxBytes:    row.Int("tx-byte"),
		RxBytes:    row.Int("rx-byte"),
		MTU:        row.Int("mtu"),
	}
}

func pppFromActiveRow(row routeros.Row) *models.PPPConnection {
	service := strings.ToLower(row.Str("service"))

	pppType := "l2tp"
	if strings.Contains(service, "pppoe") {
		pppType = "pppoe"
	}

	return &models.PPPConnection{
		Name:          row.StrOr("name", "unknown"),
		Type:          pppType,
		User:          row.Str("name"),
		Uptime:        row.Str("uptime"),
		ActiveAddress: row.Str("address"),
		Service:       service,
		Running:       true,
		MACAddress:    row.Str("caller-id"),
	}
}
