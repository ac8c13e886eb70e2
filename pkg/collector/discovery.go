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
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/routeros"
)

const (
	// Discovery probes use a much shorter timeout than normal sessions:
	// most swept addresses are silent and a 20s wait per port would make
	// a /24 sweep take hours.
	defaultProbeTimeout = 5 * time.Second

	defaultSweepParallelism = 16

	// maxSweepHosts caps a sweep so a fat-fingered /8 cannot spin off
	// sixteen million probes.
	maxSweepHosts = 4096
)

// Discoverer sweeps subnets for RouterOS devices that are not registered
// yet and creates device records for the ones that answer.
type Discoverer struct {
	dialer      routeros.Dialer
	store       deviceCreator
	logger      logger.Logger
	username    string
	password    string
	timeout     time.Duration
	parallelism int
}

// deviceCreator is the slice of storage.Store discovery needs.
type deviceCreator interface {
	GetAllDevices(ctx context.Context) ([]*models.Device, error)
	CreateDevice(ctx context.Context, device *models.Device) (*models.Device, error)
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithProbeTimeout overrides the per-port probe timeout.
func WithProbeTimeout(d time.Duration) DiscovererOption {
	return func(dd *Discoverer) {
		if d > 0 {
			dd.timeout = d
		}
	}
}

// WithSweepParallelism overrides how many hosts are probed at once.
func WithSweepParallelism(n int) DiscovererOption {
	return func(dd *Discoverer) {
		if n > 0 {
			dd.parallelism = n
		}
	}
}

// NewDiscoverer builds a subnet sweeper that probes with the given
// default credentials.
func NewDiscoverer(dialer routeros.Dialer, store deviceCreator, log logger.Logger, username, password string, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		dialer:      dialer,
		store:       store,
		logger:      log.WithComponent("discovery"),
		username:    username,
		password:    password,
		timeout:     defaultProbeTimeout,
		parallelism: defaultSweepParallelism,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Sweep probes every unknown host in the subnet and registers the ones
// that speak the RouterOS API. Returns the newly created devices.
func (d *Discoverer) Sweep(ctx context.Context, subnet string) ([]*models.Device, error) {
	hosts, err := subnetHosts(subnet)
	if err != nil {
		return nil, err
	}

	existing, err := d.store.GetAllDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	known := make(map[string]struct{}, len(existing))
	for _, dev := range existing {
		known[dev.Host] = struct{}{}
	}

	var (
		mu      sync.Mutex
		created []*models.Device
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism)

	for _, host := range hosts {
		if _, ok := known[host]; ok {
			continue
		}

		host := host

		g.Go(func() error {
			device := d.probe(gctx, host)
			if device == nil {
				return nil
			}

			stored, err := d.store.CreateDevice(gctx, device)
			if err != nil {
				d.logger.Warn().Err(err).Str("host", host).Msg("Failed to register discovered device")

				return nil
			}

			d.logger.Info().
				Str("host", host).
				Str("model", stored.Model).
				Int64("device_id", stored.ID).
				Msg("Discovered device")

			mu.Lock()
			created = append(created, stored)
			mu.Unlock()

			return nil
		})
	}

	// Workers swallow their own errors; Wait only propagates context
	// cancellation.
	if err := g.Wait(); err != nil {
		return created, err
	}

	return created, nil
}

// probe tries the candidate ports on one host and verifies a hit by
// reading the system resource table.
func (d *Discoverer) probe(ctx context.Context, host string) *models.Device {
	for _, port := range routeros.DefaultPorts() {
		dialCtx, cancel := context.WithTimeout(ctx, d.timeout)
		conn, err := d.dialer.Dial(dialCtx, host, port, d.username, d.password)

		cancel()

		if err != nil {
			continue
		}

		rows, err := conn.Run(ctx, "/system/resource/print")

		_ = conn.Close()

		if err != nil || len(rows) == 0 {
			continue
		}

		res := rows[0]
		now := time.Now()

		return &models.Device{
			Name:            host,
			Host:            host,
			Username:        d.username,
			Password:        d.password,
			Model:           res.Str("board-name"),
			RouterOSVersion: res.Str("version"),
			Uptime:          res.Str("uptime"),
			IsOnline:        true,
			LastSeen:        &now,
		}
	}

	return nil
}

// subnetHosts expands a CIDR into its usable host addresses.
func subnetHosts(subnet string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(subnet)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet %q: %w", subnet, err)
	}

	var hosts []string

	for addr := ip.Mask(ipnet.Mask); ipnet.Contains(addr); incIP(addr) {
		hosts = append(hosts, addr.String())

		if len(hosts) > maxSweepHosts {
			return nil, fmt.Errorf("subnet %q larger than %d hosts", subnet, maxSweepHosts)
		}
	}

	// Drop network and broadcast addresses for real subnets.
	if len(hosts) > 2 {
		hosts = hosts[1 : len(hosts)-1]
	}

	return hosts, nil
}

func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}
