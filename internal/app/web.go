package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/browser"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/steering"
)

const (
	wsWriteWait    = 2 * time.Second
	wsClientBuffer = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// wsCommand is what the browser sends: page visibility maps to pause/resume.
type wsCommand struct {
	Action string `json:"action"`
}

// steeringHub keeps the latest offset and fans it out to websocket clients.
type steeringHub struct {
	mu      sync.RWMutex
	last    steering.Offset
	have    bool
	clients map[chan steering.Offset]struct{}

	// session relays browser pause/resume; nil disables it.
	session func(cmd string) error
}

func newSteeringHub(session func(cmd string) error) *steeringHub {
	return &steeringHub{
		clients: make(map[chan steering.Offset]struct{}),
		session: session,
	}
}

func (h *steeringHub) update(off steering.Offset) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = off
	h.have = true
	for ch := range h.clients {
		select {
		case ch <- off:
		default:
			// Slow client: it will catch up with a later frame.
		}
	}
}

func (h *steeringHub) latest() (steering.Offset, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.have
}

func (h *steeringHub) join() chan steering.Offset {
	ch := make(chan steering.Offset, wsClientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	if h.have {
		ch <- h.last
	}
	h.mu.Unlock()
	return ch
}

func (h *steeringHub) leave(ch chan steering.Offset) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// handleAPI serves the latest offset as JSON.
func (h *steeringHub) handleAPI(w http.ResponseWriter, r *http.Request) {
	off, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(off); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS streams every offset to the client and accepts session commands.
func (h *steeringHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates := h.join()
	defer h.leave(updates)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket read error: %v", err)
				}
				return
			}
			h.relaySession(cmd.Action)
		}
	}()

	for {
		select {
		case <-done:
			return
		case off := <-updates:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(off); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func (h *steeringHub) relaySession(action string) {
	cmd, err := parseSessionCommand([]byte(action))
	if err != nil {
		log.Printf("web: %v", err)
		return
	}
	if h.session == nil {
		return
	}
	if err := h.session(cmd); err != nil {
		log.Printf("web: session %s: %v", cmd, err)
	}
}

func newWebMux(h *steeringHub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/steering", h.handleAPI)
	mux.HandleFunc("/ws/steering", h.handleWS)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

// RunWeb serves the steering viewer. With openBrowser set, the default
// browser is pointed at it once the listener is up.
func RunWeb(openBrowser bool) error {
	cfg := config.Get()

	client, err := connectMQTT("web", cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	pub := mqttPublisher{client: client}
	var session func(string) error
	if cfg.TopicSession != "" {
		session = func(cmd string) error {
			return pub.Publish(cfg.TopicSession, false, []byte(cmd))
		}
	}
	hub := newSteeringHub(session)

	err = subscribe("web", client, cfg.TopicSteering, func(_ string, payload []byte) {
		var off steering.Offset
		if err := json.Unmarshal(payload, &off); err != nil {
			log.Printf("web: steering unmarshal error: %v", err)
			return
		}
		hub.update(off)
	})
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	srv := &http.Server{Addr: addr, Handler: newWebMux(hub, cfg.WebStaticDir)}

	if openBrowser {
		url := fmt.Sprintf("http://localhost:%d/", cfg.WebServerPort)
		time.AfterFunc(500*time.Millisecond, func() {
			if err := browser.OpenURL(url); err != nil {
				log.Printf("web: could not open browser: %v", err)
			}
		})
	}

	log.Printf("web: server listening on %s (static files from %s)", addr, cfg.WebStaticDir)
	return srv.ListenAndServe()
}
