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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/routerwatch/routerwatch/pkg/broadcast"
	"github.com/routerwatch/routerwatch/pkg/collector"
	"github.com/routerwatch/routerwatch/pkg/config"
	"github.com/routerwatch/routerwatch/pkg/lifecycle"
	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/routeros"
	"github.com/routerwatch/routerwatch/pkg/scheduler"
	"github.com/routerwatch/routerwatch/pkg/storage"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	ctx := context.Background()

	var cfg config.Config

	path := config.ResolvePath(*configPath)
	if err := config.LoadAndValidate(ctx, path, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = &logger.Config{Level: "info", Output: "stdout"}
	}

	mainLogger, err := logger.New(*logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, closeStore, err := openStore(ctx, &cfg, mainLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	dialer := &routeros.APIDialer{InsecureSkipVerify: true}

	var registryOpts []routeros.RegistryOption
	if len(cfg.Ports) > 0 {
		registryOpts = append(registryOpts, routeros.WithRegistryPorts(cfg.Ports))
	}

	if d := time.Duration(cfg.ConnectTimeout); d > 0 {
		registryOpts = append(registryOpts, routeros.WithRegistryConnectTimeout(d))
	}

	sessions := routeros.NewRegistry(dialer, mainLogger, registryOpts...)

	collectors := collector.NewSet(sessions, store, mainLogger)
	sweeper := collector.NewDiscoverer(dialer, store, mainLogger, cfg.DefaultUsername, cfg.DefaultPassword)

	hub := broadcast.NewHub(mainLogger)

	var nc *nats.Conn

	if cfg.NATS != nil && cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("routerwatch"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}

		var natsOpts []broadcast.NATSOption
		if cfg.NATS.SubjectPrefix != "" {
			natsOpts = append(natsOpts, broadcast.WithSubjectPrefix(cfg.NATS.SubjectPrefix))
		}

		hub.AttachMirror(broadcast.NewNATSPublisher(nc, mainLogger, natsOpts...))
	}

	schedConfig := scheduler.Config{
		DiscoveryInterval:       time.Duration(cfg.Scheduler.DiscoveryInterval),
		IdentificationInterval:  time.Duration(cfg.Scheduler.IdentificationInterval),
		RouterDiscoveryInterval: time.Duration(cfg.Scheduler.RouterDiscoveryInterval),
		MetricsInterval:         time.Duration(cfg.Scheduler.MetricsInterval),
		Subnets:                 cfg.Scheduler.Subnets,
		MetricsParallelism:      cfg.Scheduler.MetricsParallelism,
	}

	sched := scheduler.New(store, collectors, sweeper, hub, &schedConfig, nil, mainLogger)

	svc := newService(&cfg, sched, sessions, hub, nc, mainLogger)

	return lifecycle.Run(ctx, &lifecycle.Options{
		ServiceName: "routerwatch",
		Service:     svc,
		Logger:      mainLogger,
	})
}

// openStore picks Postgres when a database block is configured and falls
// back to the in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Store, func(), error) {
	if cfg.Database != nil {
		pg, err := storage.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}

		return pg, pg.Close, nil
	}

	log.Warn().Msg("No database configured, using in-memory store")

	return storage.NewMemory(), func() {}, nil
}
