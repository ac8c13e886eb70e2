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
	"time"

	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
)

// collectMetrics samples system health and aggregate traffic for one
// device and persists the sample. Bandwidth totals count only interfaces
// that actually carry traffic: bridges aggregate their members' counters
// and would double-count, and down or disabled interfaces only hold stale
// numbers.
func (c *Set) collectMetrics(ctx context.Context, run Runner, device *models.Device) (*models.Metric, error) {
	resource, err := run.Run(ctx, "/system/resource/print")
	if err != nil {
		return nil, fmt.Errorf("resource query failed: %w", err)
	}

	if len(resource) == 0 {
		return nil, fmt.Errorf("resource query returned no rows")
	}

	res := resource[0]

	metric := &models.Metric{
		DeviceID:    device.ID,
		Timestamp:   time.Now(),
		CPULoad:     res.Int("cpu-load"),
		FreeMemory:  res.Int("free-memory"),
		TotalMemory: res.Int("total-memory"),
		Uptime:      res.Str("uptime"),
	}

	// Health is optional hardware; CHR and some boards have none.
	if health, err := run.Run(ctx, "/system/health/print"); err != nil {
		c.logger.Debug().Err(err).Int64("device_id", device.ID).Msg("Health query failed")
	} else {
		metric.Temperature, metric.BoardTemp = readHealth(health)
	}

	if ifaces, err := run.Run(ctx, "/interface/print"); err != nil {
		c.logger.Debug().Err(err).Int64("device_id", device.ID).Msg("Interface totals query failed")
	} else {
		metric.DownloadBandwidth, metric.UploadBandwidth = trafficTotals(ifaces)
		metric.DownloadRate, metric.UploadRate = c.rates.update(
			device.ID, metric.DownloadBandwidth, metric.UploadBandwidth, metric.Timestamp)
	}

	if err := c.store.CreateMetric(ctx, metric); err != nil {
		return nil, fmt.Errorf("failed to store metric: %w", err)
	}

	return metric, nil
}

// readHealth handles both health formats: RouterOS 7 returns one row per
// sensor with name/value pairs, RouterOS 6 returns a single row with the
// sensors as columns.
func readHealth(rows []routeros.Row) (temperature, boardTemp int64) {
	for _, row := range rows {
		if name := row.Str("name"); name != "" {
			switch name {
			case "temperature", "cpu-temperature":
				temperature = row.Int("value")
			case "board-temperature", "board-temperature1":
				boardTemp = row.Int("value")
			}

			continue
		}

		if v := row.Int("temperature"); v != 0 {
			temperature = v
		}

		if v := row.Int("board-temperature"); v != 0 {
			boardTemp = v
		}
	}

	return temperature, boardTemp
}

// trafficTotals sums rx/tx byte counters across physical-ish interfaces.
func trafficTotals(rows []routeros.Row) (download, upload int64) {
	for _, row := range rows {
		if strings.EqualFold(row.Str("type"), "bridge") {
			continue
		}

		if !row.Bool("running") || row.Bool("disabled") {
			continue
		}

		download += row.Int("rx-byte")
		upload += row.Int("tx-byte")
	}

	return download, upload
}
