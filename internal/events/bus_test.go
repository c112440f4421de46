package events

import (
	"testing"
	"time"
)

func TestBusDeliversToTopicSubscribersOnly(t *testing.T) {
	bus := NewBus()
	var got []Event
	bus.Subscribe(TopicAchievement, func(e Event) { got = append(got, e) })
	other := 0
	bus.Subscribe(TopicLevelCompleted, func(Event) { other++ })

	bus.PublishAchievement(Achievement{Name: "First Steps", Points: 10})
	if len(got) != 1 || other != 0 {
		t.Fatalf("unexpected deliveries: achievements=%d other=%d", len(got), other)
	}
	a, ok := got[0].Payload.(Achievement)
	if !ok || a.Name != "First Steps" || a.Icon != "⭐" {
		t.Fatalf("unexpected payload %#v", got[0].Payload)
	}
	if got[0].At.IsZero() {
		t.Fatalf("expected publish time to be stamped")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(TopicStreak, func(Event) { calls++ })
	bus.Publish(Event{Topic: TopicStreak})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Topic: TopicStreak})
	if calls != 1 {
		t.Fatalf("expected one delivery before unsubscribe, got %d", calls)
	}
}

func TestHandlerMaySubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	late := 0
	bus.Subscribe(TopicStreak, func(Event) {
		bus.Subscribe(TopicStreak, func(Event) { late++ })
	})
	bus.Publish(Event{Topic: TopicStreak})
	if late != 0 {
		t.Fatalf("subscriber added mid-publish should wait for the next event")
	}
	bus.Publish(Event{Topic: TopicStreak})
	if late != 1 {
		t.Fatalf("expected late subscriber on second publish, got %d", late)
	}
}

func TestToastsExpireAfterLifetime(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	toasts := NewToasts(func() time.Time { return now })
	bus := NewBus()
	detach := toasts.Attach(bus)
	defer detach()

	bus.PublishAchievement(Achievement{Name: "A"})
	now = now.Add(2 * time.Second)
	bus.PublishAchievement(Achievement{Name: "B"})

	if active := toasts.Active(); len(active) != 2 {
		t.Fatalf("expected two stacked toasts, got %d", len(active))
	}
	now = now.Add(3 * time.Second)
	active := toasts.Active()
	if len(active) != 1 || active[0].Achievement.Name != "B" {
		t.Fatalf("expected only B to remain, got %#v", active)
	}
	toasts.Dismiss(active[0].ID)
	if len(toasts.Active()) != 0 {
		t.Fatalf("expected dismissed toast to disappear")
	}
}
