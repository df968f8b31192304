package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToSubscriber(t *testing.T) {
	b := NewBus(4)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(Event{Subject: SubjectInstalled, PluginKey: "p1"})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, SubjectInstalled, ev.Subject)
		assert.Equal(t, "p1", ev.PluginKey)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublish_FanOutToMultipleSubscribers(t *testing.T) {
	b := NewBus(4)
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	b.Publish(Event{Subject: SubjectStarted, PluginKey: "p1"})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, SubjectStarted, ev.Subject)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out event")
		}
	}
}

func TestPublish_DropsOldestWhenQueueFull(t *testing.T) {
	b := NewBus(2)
	sub := b.Subscribe()
	defer sub.Unsubscribe()

	b.Publish(Event{Subject: SubjectInstalling, PluginKey: "first"})
	b.Publish(Event{Subject: SubjectInstalled, PluginKey: "second"})
	b.Publish(Event{Subject: SubjectStarting, PluginKey: "third"})

	require.Equal(t, uint64(1), sub.Dropped())

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, "second", first.PluginKey)
	assert.Equal(t, "third", second.PluginKey)
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := NewBus(4)
	sub := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())

	sub.Unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestPublish_DoesNotBlockWithNoSubscribers(t *testing.T) {
	b := NewBus(4)
	assert.NotPanics(t, func() {
		b.Publish(Event{Subject: SubjectWarning})
	})
}
