package app

import (
	"log"
	"sync"

	"worktrack/internal/event"
)

// hub fans notifications out to subscribed connections. A subscriber that
// falls behind loses notifications rather than stalling the others.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan event.Notification
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan event.Notification)}
}

func (h *hub) subscribe() (int, <-chan event.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	ch := make(chan event.Notification, 32)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *hub) broadcast(n event.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			log.Printf("Warning: subscriber %d is slow, dropping %s", id, n.Name)
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// closeAll ends every subscription, used on shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
