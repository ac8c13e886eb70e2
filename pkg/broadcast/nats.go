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

package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/routerwatch/routerwatch/pkg/logger"
)

const defaultSubjectPrefix = "routerwatch"

// natsConn is the slice of *nats.Conn the publisher needs.
type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher mirrors hub topics onto NATS subjects, one subject per
// topic under a common prefix. Publishing is fire-and-forget like the
// rest of the hub; a failed publish only logs.
type NATSPublisher struct {
	conn   natsConn
	prefix string
	logger logger.Logger
}

// NATSOption configures a NATSPublisher.
type NATSOption func(*NATSPublisher)

// WithSubjectPrefix overrides the subject prefix.
func WithSubjectPrefix(prefix string) NATSOption {
	return func(p *NATSPublisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// NewNATSPublisher wraps an established NATS connection.
func NewNATSPublisher(conn *nats.Conn, log logger.Logger, opts ...NATSOption) *NATSPublisher {
	return newNATSPublisher(conn, log, opts...)
}

func newNATSPublisher(conn natsConn, log logger.Logger, opts ...NATSOption) *NATSPublisher {
	p := &NATSPublisher{
		conn:   conn,
		prefix: defaultSubjectPrefix,
		logger: log.WithComponent("nats"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish mirrors one hub publish onto its subject.
func (p *NATSPublisher) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn().Err(err).Str("topic", topic).Msg("Failed to encode payload")

		return
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, topic)

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("Failed to publish to NATS")
	}
}
