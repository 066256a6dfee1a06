package relay

import (
	"io"
	"testing"

	logpkg "farmsync/internal/logger"
)

func newTestBus() *Bus {
	return NewBus(nil, "booking-sync", logpkg.NewLogger(logpkg.LevelOff, io.Discard))
}

func TestAnnounceReachesSubscriber(t *testing.T) {
	b := newTestBus()

	calls := 0
	b.Subscribe("incoming-booking-updated", func() { calls++ })

	b.Announce("incoming-booking-updated")
	if calls != 1 {
		t.Errorf("handler called %d times, want 1 (synchronous dispatch)", calls)
	}
}

func TestAnnounceReachesAllSubscribers(t *testing.T) {
	b := newTestBus()

	var first, second bool
	b.Subscribe("alerts-updated", func() { first = true })
	b.Subscribe("alerts-updated", func() { second = true })
	b.Subscribe("provider-noti-updated", func() { t.Error("wrong topic dispatched") })

	b.Announce("alerts-updated")
	if !first || !second {
		t.Errorf("delivery incomplete: first=%v second=%v", first, second)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := newTestBus()

	calls := 0
	unsubscribe := b.Subscribe("provider-noti-updated", func() { calls++ })

	b.Announce("provider-noti-updated")
	unsubscribe()
	b.Announce("provider-noti-updated")

	if calls != 1 {
		t.Errorf("handler called %d times, want 1 after unsubscribe", calls)
	}
}

func TestAnnounceWithoutSubscribersIsNoop(t *testing.T) {
	b := newTestBus()
	// No subscribers, no Redis client. Must not panic or block.
	b.Announce("incoming-booking-updated")
}
