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

// Package broadcast fans collection snapshots out to subscribers by
// topic. Delivery is fire-and-forget: a subscriber whose transport has
// gone away is pruned, never retried, and no payload is ever queued.
package broadcast

import (
	"sync"

	"github.com/routerwatch/routerwatch/pkg/logger"
)

// Subscriber receives published payloads. Deliver returning an error
// means the transport is dead and the subscriber is dropped from every
// topic.
type Subscriber interface {
	Deliver(topic string, payload any) error
}

// Mirror receives every publish regardless of topic, for bridging to an
// external bus.
type Mirror interface {
	Publish(topic string, payload any)
}

// Hub is the topic registry. All methods are safe for concurrent use.
type Hub struct {
	logger logger.Logger

	mu      sync.RWMutex
	topics  map[string]map[Subscriber]struct{}
	mirrors []Mirror
}

// NewHub builds an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		logger: log.WithComponent("broadcast"),
		topics: make(map[string]map[Subscriber]struct{}),
	}
}

// AttachMirror registers a bridge that sees every publish.
func (h *Hub) AttachMirror(m Mirror) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.mirrors = append(h.mirrors, m)
}

// Subscribe adds a subscriber to one topic. Subscribing twice is a
// no-op.
func (h *Hub) Subscribe(topic string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.topics[topic]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.topics[topic] = set
	}

	set[sub] = struct{}{}
}

// Unsubscribe removes a subscriber from one topic.
func (h *Hub) Unsubscribe(topic string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(topic, sub)
}

// UnsubscribeAll removes a subscriber from every topic. Called when its
// transport closes.
func (h *Hub) UnsubscribeAll(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range h.topics {
		h.removeLocked(topic, sub)
	}
}

func (h *Hub) removeLocked(topic string, sub Subscriber) {
	set, ok := h.topics[topic]
	if !ok {
		return
	}

	delete(set, sub)

	if len(set) == 0 {
		delete(h.topics, topic)
	}
}

// Publish delivers a payload to the topic's current subscribers and all
// mirrors. Failed subscribers are pruned from every topic.
func (h *Hub) Publish(topic string, payload any) {
	h.mu.RLock()

	subs := make([]Subscriber, 0, len(h.topics[topic]))
	for sub := range h.topics[topic] {
		subs = append(subs, sub)
	}

	mirrors := append([]Mirror(nil), h.mirrors...)

	h.mu.RUnlock()

	var dead []Subscriber

	for _, sub := range subs {
		if err := sub.Deliver(topic, payload); err != nil {
			h.logger.Debug().Err(err).Str("topic", topic).Msg("Dropping dead subscriber")

			dead = append(dead, sub)
		}
	}

	for _, sub := range dead {
		h.UnsubscribeAll(sub)
	}

	for _, m := range mirrors {
		m.Publish(topic, payload)
	}
}

// SubscriberCount reports how many subscribers a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[topic])
}
