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

// Package storage defines the narrow persistence interface the collection
// core reads and writes through. The core does not depend on any schema
// or SQL dialect; implementations serialize their own writes.
package storage

//go:generate mockgen -destination=mock_storage.go -package=storage github.com/routerwatch/routerwatch/pkg/storage Store

import (
	"context"
	"errors"

	"github.com/routerwatch/routerwatch/pkg/models"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrNotFound       = errors.New("entity not found")
)

// Store is the persistence boundary for the collection core. Entity sets
// are keyed per device; the reconcile step in the collectors guarantees
// that after each cycle the persisted set equals the current snapshot.
type Store interface {
	GetDevice(ctx context.Context, id int64) (*models.Device, error)
	GetDeviceByHost(ctx context.Context, host string) (*models.Device, error)
	GetAllDevices(ctx context.Context) ([]*models.Device, error)
	CreateDevice(ctx context.Context, device *models.Device) (*models.Device, error)
	UpdateDevice(ctx context.Context, id int64, update *models.DeviceUpdate) error

	GetInterfaces(ctx context.Context, deviceID int64) ([]*models.Interface, error)
	UpsertInterface(ctx context.Context, iface *models.Interface) (*models.Interface, error)
	DeleteInterface(ctx context.Context, id int64) error

	GetWirelessInterfaces(ctx context.Context, deviceID int64) ([]*models.WirelessInterface, error)
	UpsertWirelessInterface(ctx context.Context, w *models.WirelessInterface) (*models.WirelessInterface, error)
	DeleteWirelessInterface(ctx context.Context, id int64) error

	GetCapsmanAPs(ctx context.Context, deviceID int64) ([]*models.CapsmanAP, error)
	UpsertCapsmanAP(ctx context.Context, ap *models.CapsmanAP) (*models.CapsmanAP, error)
	DeleteCapsmanAP(ctx context.Context, id int64) error

	GetCapsmanClients(ctx context.Context, apID int64) ([]*models.CapsmanClient, error)
	UpsertCapsmanClient(ctx context.Context, c *models.CapsmanClient) (*models.CapsmanClient, error)
	DeleteCapsmanClient(ctx context.Context, id int64) error

	UpsertNeighbor(ctx context.Context, n *models.Neighbor) error
	GetNeighbors(ctx context.Context, deviceID int64) ([]*models.Neighbor, error)

	CreateAlert(ctx context.Context, alert *models.Alert) error
	CreateMetric(ctx context.Context, metric *models.Metric) error
}
