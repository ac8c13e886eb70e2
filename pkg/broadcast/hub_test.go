package broadcast

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/logger"
)

var errTransportDead = errors.New("transport dead")

type memSubscriber struct {
	mu       sync.Mutex
	received []string
	fail     bool
}

func (s *memSubscriber) Deliver(topic string, _ any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return errTransportDead
	}

	s.received = append(s.received, topic)

	return nil
}

func (s *memSubscriber) topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.received...)
}

func TestHubPublishReachesTopicSubscribers(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	a := &memSubscriber{}
	b := &memSubscriber{}

	hub.Subscribe("device_metrics_1", a)
	hub.Subscribe("all_devices_metrics", b)

	hub.Publish("device_metrics_1", "payload")

	assert.Equal(t, []string{"device_metrics_1"}, a.topics())
	assert.Empty(t, b.topics())
}

func TestHubPublishToEmptyTopicIsNoop(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	// Nothing to deliver to, nothing to queue.
	hub.Publish("device_metrics_9", "payload")
}

func TestHubSubscribeIdempotent(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	a := &memSubscriber{}
	hub.Subscribe("t", a)
	hub.Subscribe("t", a)

	hub.Publish("t", "x")

	assert.Equal(t, []string{"t"}, a.topics())
	assert.Equal(t, 1, hub.SubscriberCount("t"))
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	a := &memSubscriber{}
	hub.Subscribe("t", a)
	hub.Unsubscribe("t", a)

	hub.Publish("t", "x")

	assert.Empty(t, a.topics())
	assert.Zero(t, hub.SubscriberCount("t"))
}

func TestHubPrunesDeadSubscribers(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	dead := &memSubscriber{fail: true}
	live := &memSubscriber{}

	hub.Subscribe("t", dead)
	hub.Subscribe("t", live)
	hub.Subscribe("other", dead)

	hub.Publish("t", "x")

	assert.Equal(t, []string{"t"}, live.topics())
	// The failed delivery evicts the subscriber everywhere.
	assert.Equal(t, 1, hub.SubscriberCount("t"))
	assert.Zero(t, hub.SubscriberCount("other"))
}

func TestHubMirrorSeesEveryPublish(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	mirror := &fakeMirror{}
	hub.AttachMirror(mirror)

	hub.Publish("a", 1)
	hub.Publish("b", 2)

	require.Equal(t, []string{"a", "b"}, mirror.topics())
}

type fakeMirror struct {
	mu   sync.Mutex
	seen []string
}

func (m *fakeMirror) Publish(topic string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen = append(m.seen, topic)
}

func (m *fakeMirror) topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.seen...)
}
