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

package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/routerwatch/routerwatch/pkg/collector"
	"github.com/routerwatch/routerwatch/pkg/models"
)

// TopicAllDevices receives every successful snapshot; per-device topics
// are derived with DeviceTopic.
const TopicAllDevices = "all_devices_metrics"

// DeviceTopic is the per-device snapshot topic.
func DeviceTopic(deviceID int64) string {
	return fmt.Sprintf("device_metrics_%d", deviceID)
}

func (s *Scheduler) sweepAll(ctx context.Context) ([]*models.Device, error) {
	var created []*models.Device

	for _, subnet := range s.config.Subnets {
		devices, err := s.sweeper.Sweep(ctx, subnet)
		if err != nil {
			s.logger.Warn().Err(err).Str("subnet", subnet).Msg("Subnet sweep failed")

			continue
		}

		created = append(created, devices...)
	}

	return created, nil
}

func (s *Scheduler) discoveryPass(ctx context.Context) error {
	created, err := s.sweepAll(ctx)
	if err != nil {
		return err
	}

	if len(created) > 0 {
		s.logger.Info().Int("devices", len(created)).Msg("Discovery pass registered devices")
	}

	return nil
}

// identificationPass re-probes devices whose identity is still
// incomplete. Fully identified devices are skipped until a manual
// trigger asks for them.
func (s *Scheduler) identificationPass(ctx context.Context) error {
	devices, err := s.store.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	for _, device := range devices {
		if device.IdentScore >= collector.IdentScoreComplete {
			continue
		}

		if err := s.collectors.Identify(ctx, device); err != nil {
			s.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("Identification failed")
		}
	}

	return nil
}

func (s *Scheduler) routerDiscoveryPass(ctx context.Context) error {
	devices, err := s.store.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	for _, device := range devices {
		if !device.IsOnline {
			continue
		}

		if _, err := s.collectors.CollectNeighbors(ctx, device); err != nil {
			s.logger.Warn().Err(err).Int64("device_id", device.ID).Msg("Neighbor discovery failed")
		}
	}

	return nil
}

// metricsPass collects every device with bounded parallelism. Offline
// devices are polled too: the tick is the reconnect cadence, and a
// successful collect is what brings a device back online. Snapshots
// publish only on success; per-device failures never fail the pass.
func (s *Scheduler) metricsPass(ctx context.Context) error {
	devices, err := s.store.GetAllDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MetricsParallelism)

	for _, device := range devices {
		device := device

		g.Go(func() error {
			snapshot, err := s.collectors.Collect(gctx, device)
			if err != nil {
				s.logger.Debug().Err(err).Int64("device_id", device.ID).Msg("Collection failed")

				return nil
			}

			if s.sink != nil {
				s.sink.Publish(DeviceTopic(device.ID), snapshot)
				s.sink.Publish(TopicAllDevices, snapshot)
			}

			return nil
		})
	}

	return g.Wait()
}
