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

// Package collector polls RouterOS devices, normalizes the replies into
// model entities, reconciles them against the persisted state and raises
// alerts on meaningful transitions.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/routerwatch/routerwatch/pkg/ids"
	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
	"github.com/routerwatch/routerwatch/pkg/storage"
)

// Runner executes one RouterOS command and returns sanitized rows.
// *routeros.Session satisfies it; tests substitute scripted fakes.
type Runner interface {
	Run(ctx context.Context, command string, args ...string) ([]routeros.Row, error)
}

// Set runs every collector for a device in one cycle. A collector failing
// only logs; it never aborts its siblings, so a device with a broken
// wireless package still gets its interfaces and metrics persisted.
type Set struct {
	sessions *routeros.Registry
	store    storage.Store
	rates    *rateCache
	traffic  *ids.TrafficMemory
	logger   logger.Logger
}

// NewSet wires a collector set over a session registry and a store.
func NewSet(sessions *routeros.Registry, store storage.Store, log logger.Logger) *Set {
	return &Set{
		sessions: sessions,
		store:    store,
		rates:    newRateCache(),
		traffic:  ids.NewTrafficMemory(),
		logger:   log.WithComponent("collector"),
	}
}

// Traffic exposes the sliding-window connection history fed by the
// firewall collector.
func (c *Set) Traffic() *ids.TrafficMemory {
	return c.traffic
}

// Collect runs a full collection cycle for one device and returns the
// snapshot to broadcast. A connect failure on all candidate ports raises
// an error alert and forces the device offline before returning.
func (c *Set) Collect(ctx context.Context, device *models.Device) (*models.DeviceSnapshot, error) {
	session, err := c.sessions.GetOrCreate(ctx, device)
	if err != nil {
		c.failDevice(ctx, device, models.AlertSourceConnection,
			fmt.Sprintf("Failed to connect to %s: %v", device.Host, err))

		return nil, err
	}

	metric, err := c.collectMetrics(ctx, session, device)
	if err != nil {
		// Metrics are the liveness signal: losing them means the device
		// is unreachable even though a channel recently existed. The rate
		// baseline goes too, so the first sample after reconnect reads
		// zero instead of a counter delta spanning the outage.
		c.sessions.Drop(device.ID)
		c.rates.forget(device.ID)
		c.failDevice(ctx, device, models.AlertSourceMetrics,
			fmt.Sprintf("Failed to collect metrics from %s: %v", device.Host, err))

		return nil, err
	}

	c.markOnline(ctx, device, metric.Uptime)

	ifaces, err := c.collectInterfaces(ctx, session, device)
	if err != nil {
		c.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("Interface collection failed")
	}

	if err := c.collectWireless(ctx, session, device); err != nil {
		c.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("Wireless collection failed")
	}

	if err := c.collectCapsman(ctx, session, device); err != nil {
		c.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("CAPsMAN collection failed")
	}

	if vpn, err := c.collectVPN(ctx, session); err != nil {
		c.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("VPN collection failed")
	} else if len(vpn) > 0 {
		c.logger.Debug().Int64("device_id", device.ID).Int("connections", len(vpn)).Msg("VPN connections collected")
	}

	if fw, err := c.collectFirewall(ctx, session, device.ID); err != nil {
		c.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("Firewall collection failed")
	} else {
		c.logger.Debug().
			Int64("device_id", device.ID).
			Int("filter_active", fw.FilterActive).
			Int("nat_active", fw.NATActive).
			Msg("Firewall summary collected")
	}

	return &models.DeviceSnapshot{
		DeviceID:   device.ID,
		Timestamp:  metric.Timestamp,
		Metric:     metric,
		Interfaces: ifaces,
		IsOnline:   true,
	}, nil
}

// failDevice records an error alert and forces the device offline. Both
// writes are best effort; a store hiccup here must not mask the original
// failure.
func (c *Set) failDevice(ctx context.Context, device *models.Device, source, message string) {
	c.emitAlert(ctx, device, models.SeverityError, source, message)

	offline := false
	if err := c.store.UpdateDevice(ctx, device.ID, &models.DeviceUpdate{IsOnline: &offline}); err != nil {
		c.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("Failed to mark device offline")
	}
}

func (c *Set) markOnline(ctx context.Context, device *models.Device, uptime string) {
	online := true
	now := time.Now()

	update := &models.DeviceUpdate{IsOnline: &online, LastSeen: &now}
	if uptime != "" {
		if uptimeRegressed(device.Uptime, uptime) {
			c.logger.Info().
				Int64("device_id", device.ID).
				Str("previous", device.Uptime).
				Str("current", uptime).
				Msg("Uptime went backwards, device likely rebooted")
		}

		update.Uptime = &uptime
		device.Uptime = uptime
	}

	if err := c.store.UpdateDevice(ctx, device.ID, update); err != nil {
		c.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("Failed to mark device online")
	}
}

// uptimeRegressed reports whether the current uptime is shorter than the
// previously recorded one. RouterOS gives no reboot event; a shrinking
// uptime between polls is the only signal.
func uptimeRegressed(previous, current string) bool {
	prev := routeros.ParseUptime(previous)
	cur := routeros.ParseUptime(current)

	return prev > 0 && cur > 0 && cur < prev
}

// emitAlert persists one alert, enriching the message with the device
// model and RouterOS version when known. Enrichment is cosmetic and never
// blocks alert creation.
func (c *Set) emitAlert(ctx context.Context, device *models.Device, severity models.AlertSeverity, source, message string) {
	alert := &models.Alert{
		ID:        uuid.New().String(),
		DeviceID:  device.ID,
		Severity:  severity,
		Message:   enrichMessage(device, message),
		Source:    source,
		Timestamp: time.Now(),
	}

	if err := c.store.CreateAlert(ctx, alert); err != nil {
		c.logger.Error().Err(err).
			Int64("device_id", device.ID).
			Str("source", source).
			Msg("Failed to persist alert")

		return
	}

	c.logger.Info().
		Int64("device_id", device.ID).
		Str("severity", string(severity)).
		Str("source", source).
		Str("message", message).
		Msg("Alert raised")
}

// emitEvents persists the alerts produced by a diff pass.
func (c *Set) emitEvents(ctx context.Context, device *models.Device, events []Event) {
	for _, ev := range events {
		c.emitAlert(ctx, device, ev.Severity, ev.Source, ev.Message)
	}
}

func enrichMessage(device *models.Device, message string) string {
	if device == nil {
		return message
	}

	switch {
	case device.Model != "" && device.RouterOSVersion != "":
		return fmt.Sprintf("%s [%s, RouterOS %s]", message, device.Model, device.RouterOSVersion)
	case device.Model != "":
		return fmt.Sprintf("%s [%s]", message, device.Model)
	case device.RouterOSVersion != "":
		return fmt.Sprintf("%s [RouterOS %s]", message, device.RouterOSVersion)
	default:
		return message
	}
}
