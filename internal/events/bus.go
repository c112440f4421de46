package events

import (
	"sync"
	"time"
)

type Topic string

const (
	TopicAchievement    Topic = "achievement.unlocked"
	TopicLevelCompleted Topic = "level.completed"
	TopicStreak         Topic = "streak.changed"
)

type Event struct {
	Topic   Topic
	At      time.Time
	Payload any
}

type Handler func(Event)

// Bus is an in-process publish/subscribe hub owned by the application root.
// Handlers run synchronously on the publisher's goroutine in subscription
// order.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[Topic][]subscription
}

type subscription struct {
	id uint64
	fn Handler
}

func NewBus() *Bus {
	return &Bus{subs: map[Topic][]subscription{}}
}

// Subscribe registers fn for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[topic]
			for i, s := range list {
				if s.id == id {
					b.subs[topic] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers e to every current subscriber of its topic.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Topic]))
	for _, s := range b.subs[e.Topic] {
		handlers = append(handlers, s.fn)
	}
	b.mu.RUnlock()
	for _, fn := range handlers {
		fn(e)
	}
}

// Achievement is the payload of TopicAchievement.
type Achievement struct {
	Name        string
	Description string
	Icon        string
	Points      int
}

// PublishAchievement announces an unlocked achievement. Icon defaults to a
// star.
func (b *Bus) PublishAchievement(a Achievement) {
	if a.Icon == "" {
		a.Icon = "⭐"
	}
	b.Publish(Event{Topic: TopicAchievement, Payload: a})
}
