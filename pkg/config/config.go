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

// Package config loads the service configuration from a JSON file, with
// the path overridable through the environment.
package config

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/models"
	"github.com/routerwatch/routerwatch/pkg/storage"
)

// EnvConfigPath overrides the config file path when set.
const EnvConfigPath = "ROUTERWATCH_CONFIG"

// DefaultConfigPath is used when neither flag nor env provide one.
const DefaultConfigPath = "/etc/routerwatch/routerwatch.json"

var (
	errNoListenAddr  = errors.New("listen_addr is required")
	errNoCredentials = errors.New("default_username is required for discovery")
	errBadInterval   = errors.New("intervals must be positive")
)

// Validator is implemented by configs that can check themselves.
type Validator interface {
	Validate() error
}

// SchedulerConfig carries loop cadences as JSON durations.
type SchedulerConfig struct {
	DiscoveryInterval       models.Duration `json:"discovery_interval,omitempty"`
	IdentificationInterval  models.Duration `json:"identification_interval,omitempty"`
	RouterDiscoveryInterval models.Duration `json:"router_discovery_interval,omitempty"`
	MetricsInterval         models.Duration `json:"metrics_interval,omitempty"`
	Subnets                 []string        `json:"subnets,omitempty"`
	MetricsParallelism      int             `json:"metrics_parallelism,omitempty"`
}

// NATSConfig configures the optional broadcast mirror.
type NATSConfig struct {
	URL           string `json:"url,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// Config is the routerwatch service configuration.
type Config struct {
	ListenAddr string `json:"listen_addr"`

	// Credentials used when probing devices found by discovery.
	DefaultUsername string `json:"default_username"`
	DefaultPassword string `json:"default_password"`

	// Candidate API ports; empty means the built-in default set.
	Ports          []int           `json:"ports,omitempty"`
	ConnectTimeout models.Duration `json:"connect_timeout,omitempty"`

	Database  *storage.PostgresConfig `json:"database,omitempty"`
	Scheduler SchedulerConfig         `json:"scheduler"`
	NATS      *NATSConfig             `json:"nats,omitempty"`
	Logging   *logger.Config          `json:"logging,omitempty"`
}

// Validate implements Validator.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errNoListenAddr
	}

	if len(c.Scheduler.Subnets) > 0 && c.DefaultUsername == "" {
		return errNoCredentials
	}

	for _, d := range []time.Duration{
		time.Duration(c.Scheduler.DiscoveryInterval),
		time.Duration(c.Scheduler.IdentificationInterval),
		time.Duration(c.Scheduler.RouterDiscoveryInterval),
		time.Duration(c.Scheduler.MetricsInterval),
		time.Duration(c.ConnectTimeout),
	} {
		if d < 0 {
			return errBadInterval
		}
	}

	return nil
}

// ResolvePath picks the config path: explicit argument first, then the
// environment override, then the default location.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}

	return DefaultConfigPath
}

// LoadAndValidate reads a JSON config file into cfg and validates it
// when the target implements Validator.
func LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	loader := &FileConfigLoader{}

	if err := loader.Load(ctx, path, cfg); err != nil {
		return err
	}

	if v, ok := cfg.(Validator); ok {
		return v.Validate()
	}

	return nil
}
