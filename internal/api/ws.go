package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// previewHub fans computed preview frames out to websocket watchers, one
// subscriber set per panel. Slow watchers drop frames rather than backing up
// the decode path.
type previewHub struct {
	mu       sync.Mutex
	watchers map[string]map[string]chan PreviewResponse
}

func newPreviewHub() *previewHub {
	return &previewHub{
		watchers: make(map[string]map[string]chan PreviewResponse),
	}
}

// subscribe registers a watcher for the panel and returns its ID and frame
// channel. The channel is buffered one deep; a watcher only ever needs the
// latest frame.
func (h *previewHub) subscribe(panelID string) (string, chan PreviewResponse) {
	id := uuid.NewString()
	ch := make(chan PreviewResponse, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[panelID] == nil {
		h.watchers[panelID] = make(map[string]chan PreviewResponse)
	}
	h.watchers[panelID][id] = ch
	return id, ch
}

func (h *previewHub) unsubscribe(panelID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.watchers[panelID]; ok {
		if ch, ok := set[id]; ok {
			close(ch)
			delete(set, id)
		}
		if len(set) == 0 {
			delete(h.watchers, panelID)
		}
	}
}

// broadcast delivers a frame to every watcher of the panel. A full watcher
// channel is drained first so the newest frame always wins.
func (h *previewHub) broadcast(panelID string, frame PreviewResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.watchers[panelID] {
		select {
		case ch <- frame:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
}

// watcherCount reports how many sockets are watching the panel.
func (h *previewHub) watcherCount(panelID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers[panelID])
}

var previewUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The preview is same-host tooling; the dashboard frontend may be
	// served from another port during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// handlePreviewSocket handles GET /ws/panels/{id}/preview: a stream of
// computed preview frames for one panel, one JSON message per frame.
func (s *Server) handlePreviewSocket(w http.ResponseWriter, r *http.Request) {
	panel := s.panelFromPath(w, r)
	if panel == nil {
		return
	}

	conn, err := previewUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for panel %s: %v", panel.ID, err)
		return
	}
	defer conn.Close()

	id, frames := s.hub.subscribe(panel.ID)
	defer s.hub.unsubscribe(panel.ID, id)

	// Push the panel's idle board immediately so the watcher has something
	// to draw before the first payload arrives.
	first := s.previewForPanel(panel, "")
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(first); err != nil {
		return
	}

	// Reader goroutine: we never expect client messages, but reading is
	// what detects the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := s.cfg.GetStreamInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending *PreviewResponse
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			pending = &frame

		case <-ticker.C:
			if pending == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(*pending); err != nil {
				return
			}
			pending = nil

		case <-done:
			return

		case <-r.Context().Done():
			return
		}
	}
}
