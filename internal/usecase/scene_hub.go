package usecase

import (
	"sync"

	"Prism/internal/domain/models"
)

// SceneHub fans scenes out to stream subscribers by asset/horizon key and
// remembers the latest scene per key.
type SceneHub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	latest map[string]models.Scene
	buf    int
	closed bool
}

// Subscription receives scenes for one key. Slow readers lose the oldest
// pending scene, never the newest.
type Subscription struct {
	key  string
	ch   chan models.Scene
	hub  *SceneHub
	once sync.Once
}

func NewSceneHub(buf int) *SceneHub {
	if buf < 1 {
		buf = 1
	}
	return &SceneHub{
		subs:   make(map[string]map[*Subscription]struct{}),
		latest: make(map[string]models.Scene),
		buf:    buf,
	}
}

// Subscribe registers a reader for key. If a scene is already known for the
// key it is queued immediately.
func (h *SceneHub) Subscribe(key string) *Subscription {
	s := &Subscription{key: key, ch: make(chan models.Scene, h.buf), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	if h.subs[key] == nil {
		h.subs[key] = make(map[*Subscription]struct{})
	}
	h.subs[key][s] = struct{}{}
	if sc, ok := h.latest[key]; ok {
		s.ch <- sc
	}
	return s
}

// Broadcast stores scene as the latest for its key and offers it to every
// subscriber. It returns the number of subscribers reached.
func (h *SceneHub) Broadcast(scene models.Scene) int {
	key := scene.Key()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	h.latest[key] = scene
	for s := range h.subs[key] {
		offer(s.ch, scene)
	}
	return len(h.subs[key])
}

func offer(ch chan models.Scene, scene models.Scene) {
	select {
	case ch <- scene:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- scene:
	default:
	}
}

func (h *SceneHub) Latest(key string) (models.Scene, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sc, ok := h.latest[key]
	return sc, ok
}

func (h *SceneHub) Subscribers(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (h *SceneHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key, set := range h.subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
		delete(h.subs, key)
	}
}

func (s *Subscription) Key() string { return s.key }

// C yields scenes until the subscription or the hub is closed.
func (s *Subscription) C() <-chan models.Scene { return s.ch }

func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.key)
		}
	}
	s.once.Do(func() { close(s.ch) })
}
