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
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
)

const defaultPostgresPort = 5432

// PostgresConfig describes the database connection.
type PostgresConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Database        string `json:"database"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	SSLMode         string `json:"ssl_mode"`
	MaxConnections  int32  `json:"max_connections"`
	ApplicationName string `json:"application_name"`
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Store = (*Postgres)(nil)

// NewPostgres dials the configured database and returns a pool-backed
// store. The schema is managed outside the core.
func NewPostgres(ctx context.Context, cfg *PostgresConfig, log logger.Logger) (*Postgres, error) {
	if cfg.Port == 0 {
		cfg.Port = defaultPostgresPort
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	query := connURL.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	if cfg.ApplicationName != "" {
		query.Set("application_name", cfg.ApplicationName)
	}

	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, logger: log}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const deviceColumns = `id, name, host, username, password, model, serial_number,
	routeros_version, firmware, uptime, has_wireless, has_capsman, is_online,
	ident_score, vendor, role, last_seen`

func scanDevice(row pgx.Row) (*models.Device, error) {
	var d models.Device

	var lastSeen *time.Time

	err := row.Scan(&d.ID, &d.Name, &d.Host, &d.Username, &d.Password, &d.Model,
		&d.SerialNumber, &d.RouterOSVersion, &d.Firmware, &d.Uptime,
		&d.HasWireless, &d.HasCAPsMAN, &d.IsOnline, &d.IdentScore,
		&d.Vendor, &d.Role, &lastSeen)
	if err != nil {
		return nil, err
	}

	d.LastSeen = lastSeen

	return &d, nil
}

func (p *Postgres) GetDevice(ctx context.Context, id int64) (*models.Device, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)

	d, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}

	return d, err
}

func (p *Postgres) GetDeviceByHost(ctx context.Context, host string) (*models.Device, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE host = $1`, host)

	d, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, host)
	}

	return d, err
}

func (p *Postgres) GetAllDevices(ctx context.Context) ([]*models.Device, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var out []*models.Device

	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, d)
	}

	return out, rows.Err()
}

func (p *Postgres) CreateDevice(ctx context.Context, device *models.Device) (*models.Device, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO devices (name, host, username, password, model, serial_number,
			routeros_version, firmware, uptime, has_wireless, has_capsman,
			is_online, ident_score, vendor, role, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		device.Name, device.Host, device.Username, device.Password, device.Model,
		device.SerialNumber, device.RouterOSVersion, device.Firmware, device.Uptime,
		device.HasWireless, device.HasCAPsMAN, device.IsOnline, device.IdentScore,
		device.Vendor, device.Role, device.LastSeen)

	cp := *device

	if err := row.Scan(&cp.ID); err != nil {
		return nil, fmt.Errorf("failed to insert device: %w", err)
	}

	return &cp, nil
}

func (p *Postgres) UpdateDevice(ctx context.Context, id int64, update *models.DeviceUpdate) error {
	// Null-safe partial update: COALESCE leaves untouched fields alone.
	tag, err := p.pool.Exec(ctx, `
		UPDATE devices SET
			is_online        = COALESCE($2, is_online),
			last_seen        = COALESCE($3, last_seen),
			model            = COALESCE($4, model),
			serial_number    = COALESCE($5, serial_number),
			routeros_version = COALESCE($6, routeros_version),
			firmware         = COALESCE($7, firmware),
			uptime           = COALESCE($8, uptime),
			has_wireless     = COALESCE($9, has_wireless),
			has_capsman      = COALESCE($10, has_capsman),
			ident_score      = COALESCE($11, ident_score),
			vendor           = COALESCE($12, vendor),
			role             = COALESCE($13, role)
		WHERE id = $1`,
		id, update.IsOnline, update.LastSeen, update.Model, update.SerialNumber,
		update.RouterOSVersion, update.Firmware, update.Uptime, update.HasWireless,
		update.HasCAPsMAN, update.IdentScore, update.Vendor, update.Role)
	if err != nil {
		return fmt.Errorf("failed to update device %d: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}

	return nil
}

func (p *Postgres) CreateAlert(ctx context.Context, alert *models.Alert) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO alerts (id, device_id, severity, message, source, timestamp, acknowledged)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		alert.ID, alert.DeviceID, string(alert.Severity), alert.Message,
		alert.Source, alert.Timestamp, alert.Acknowledged)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

func (p *Postgres) CreateMetric(ctx context.Context, metric *models.Metric) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO metrics (device_id, timestamp, cpu_load, free_memory, total_memory,
			temperature, board_temp, uptime, download_bandwidth, upload_bandwidth,
			download_rate, upload_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		metric.DeviceID, metric.Timestamp, metric.CPULoad, metric.FreeMemory,
		metric.TotalMemory, metric.Temperature, metric.BoardTemp, metric.Uptime,
		metric.DownloadBandwidth, metric.UploadBandwidth,
		metric.DownloadRate, metric.UploadRate)
	if err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}

	return nil
}
