package server

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aykute/skywall/internal/pipeline"
)

// event is the JSON envelope pushed to websocket subscribers.
type event struct {
	Type      string `json:"type"`
	Actor     string `json:"actor,omitempty"`
	Handle    string `json:"handle,omitempty"`
	Count     int    `json:"count,omitempty"`
	Done      int    `json:"done,omitempty"`
	Total     int    `json:"total,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
	Error     string `json:"error,omitempty"`
}

// hub broadcasts pipeline progress to every connected websocket. It
// implements pipeline.Events so a run can feed it directly.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	log   zerolog.Logger
}

func newHub(log zerolog.Logger) *hub {
	return &hub{
		conns: make(map[*websocket.Conn]struct{}),
		log:   log,
	}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) broadcast(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug().Err(err).Msg("dropping websocket subscriber")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func (h *hub) ScanStarted(actor string) {
	h.broadcast(event{Type: "scan_started", Actor: actor})
}

func (h *hub) FollowersFetched(count int) {
	h.broadcast(event{Type: "followers_fetched", Count: count})
}

func (h *hub) BlockSetFetched(count int) {
	h.broadcast(event{Type: "blockset_fetched", Count: count})
}

func (h *hub) CandidatesFiltered(eligible, threshold int) {
	h.broadcast(event{Type: "candidates_filtered", Count: eligible, Threshold: threshold})
}

func (h *hub) BlockSucceeded(c pipeline.Candidate, done, total int) {
	h.broadcast(event{Type: "blocked", Handle: c.Handle, Done: done, Total: total})
}

func (h *hub) BlockFailed(c pipeline.Candidate, err error) {
	h.broadcast(event{Type: "block_failed", Handle: c.Handle, Error: err.Error()})
}

func (h *hub) Warned(w pipeline.Warning) {
	h.broadcast(event{Type: "warning", Handle: w.Handle, Error: w.String()})
}
