package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToastLifetime is how long an achievement toast stays on screen.
const ToastLifetime = 5 * time.Second

type Toast struct {
	ID          string
	Achievement Achievement
	ShownAt     time.Time
}

func (t Toast) Expired(now time.Time) bool {
	return !now.Before(t.ShownAt.Add(ToastLifetime))
}

// Toasts is the stack of visible achievement toasts. Every toast expires on
// its own timer and can be dismissed early.
type Toasts struct {
	mu    sync.Mutex
	items []Toast
	now   func() time.Time
}

func NewToasts(now func() time.Time) *Toasts {
	if now == nil {
		now = time.Now
	}
	return &Toasts{now: now}
}

// Attach subscribes the stack to achievement events on bus.
func (t *Toasts) Attach(bus *Bus) func() {
	return bus.Subscribe(TopicAchievement, func(e Event) {
		if a, ok := e.Payload.(Achievement); ok {
			t.Push(a)
		}
	})
}

func (t *Toasts) Push(a Achievement) Toast {
	toast := Toast{ID: uuid.NewString(), Achievement: a, ShownAt: t.now()}
	t.mu.Lock()
	t.items = append(t.items, toast)
	t.mu.Unlock()
	return toast
}

func (t *Toasts) Dismiss(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, item := range t.items {
		if item.ID == id {
			t.items = append(t.items[:i:i], t.items[i+1:]...)
			return
		}
	}
}

// Active drops expired toasts and returns the rest, oldest first.
func (t *Toasts) Active() []Toast {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.items[:0]
	for _, item := range t.items {
		if !item.Expired(now) {
			kept = append(kept, item)
		}
	}
	t.items = kept
	return append([]Toast(nil), kept...)
}
