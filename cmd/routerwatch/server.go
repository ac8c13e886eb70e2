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
	"errors"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/routerwatch/routerwatch/pkg/broadcast"
	"github.com/routerwatch/routerwatch/pkg/config"
	"github.com/routerwatch/routerwatch/pkg/logger"
	"github.com/routerwatch/routerwatch/pkg/routeros"
	"github.com/routerwatch/routerwatch/pkg/scheduler"
)

const httpReadHeaderTimeout = 10 * time.Second

// service ties the scheduler, the session registry and the websocket
// listener together under one lifecycle.
type service struct {
	sched    *scheduler.Scheduler
	sessions *routeros.Registry
	nc       *nats.Conn
	logger   logger.Logger
	http     *http.Server
}

func newService(cfg *config.Config, sched *scheduler.Scheduler, sessions *routeros.Registry, hub *broadcast.Hub, nc *nats.Conn, log logger.Logger) *service {
	mux := http.NewServeMux()
	mux.Handle("/ws", broadcast.NewWSHandler(hub, log))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &service{
		sched:    sched,
		sessions: sessions,
		nc:       nc,
		logger:   log.WithComponent("service"),
		http: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: httpReadHeaderTimeout,
		},
	}
}

// Start launches the scheduler and the websocket listener, blocking until
// the context is cancelled or the listener fails.
func (s *service) Start(ctx context.Context) error {
	if err := s.sched.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("listen_addr", s.http.Addr).Msg("Starting websocket listener")

		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Stop shuts down the listener, the loops and every device session.
func (s *service) Stop(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	s.sched.Stop()
	s.sessions.Close()

	if s.nc != nil {
		if drainErr := s.nc.Drain(); drainErr != nil {
			s.logger.Warn().Err(drainErr).Msg("Error draining NATS connection")
		}
	}

	return err
}
