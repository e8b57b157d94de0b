package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/beholder/backend/internal/config"
	"github.com/beholder/backend/internal/game"
	"github.com/beholder/backend/internal/notify"
	"github.com/beholder/backend/internal/session"
	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/process"
)

// Sessions exposes the tracked player sessions.
type Sessions interface {
	Ready() bool
	Slots() int
	Sessions() []session.Snapshot
	ActiveSessions() int
}

// Host is the game server as seen by the API: the bridge, or the mock host.
type Host interface {
	Connected() bool
	Players() []game.Player
}

// Rules exposes the active watcher rules.
type Rules interface {
	Current() *config.Plugin
}

// StatusPayload is the body of GET /api/status.
type StatusPayload struct {
	HostConnected bool   `json:"hostConnected"`
	Ready         bool   `json:"ready"`
	Slots         int    `json:"slots"`
	Sessions      int    `json:"sessions"`
	Players       int    `json:"players"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	RSSBytes      uint64 `json:"rssBytes,omitempty"`

	Sinks []notify.SinkHealth `json:"sinks,omitempty"`
}

type Server struct {
	host      Host
	bridge    *Bridge // nil unless host is a *Bridge
	bus       *game.Bus
	sessions  Sessions
	rules     Rules
	authToken string
	started   time.Time
	health    func() []notify.SinkHealth
}

func NewServer(host Host, bus *game.Bus, sessions Sessions, rules Rules, authToken string) *Server {
	b, _ := host.(*Bridge)
	return &Server{
		host:      host,
		bridge:    b,
		bus:       bus,
		sessions:  sessions,
		rules:     rules,
		authToken: authToken,
		started:   time.Now(),
	}
}

// SetSinkHealth configures where /api/status reads notification sink health.
func (s *Server) SetSinkHealth(fn func() []notify.SinkHealth) {
	s.health = fn
}

// SetupRoutes registers the API routes, and /ws when the host is a bridge.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	if s.bridge != nil {
		mux.HandleFunc("/ws", s.handleWS)
	}
	mux.HandleFunc("/api/players", s.handlePlayers)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/reload", s.handleReload)
	mux.HandleFunc("/api/status", s.handleStatus)
}

// Handler returns the routes wrapped with the standard response headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[bridge] ws upgrade error: %v", err)
		return
	}

	log.Printf("[bridge] game server connected: %s", r.RemoteAddr)
	go func() {
		s.bridge.Serve(conn)
		log.Printf("[bridge] game server disconnected: %s", r.RemoteAddr)
	}()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[bridge] response encode error: %v", err)
	}
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, s.sessions.Sessions())
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, s.rules.Current())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.bus.Publish(game.ReloadRequest{Player: game.Everyone})
	writeJSON(w, s.rules.Current())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	status := StatusPayload{
		HostConnected: s.host.Connected(),
		Ready:         s.sessions.Ready(),
		Slots:         s.sessions.Slots(),
		Sessions:      s.sessions.ActiveSessions(),
		Players:       len(s.host.Players()),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if s.health != nil {
		status.Sinks = s.health()
	}
	if rss, err := processRSS(); err == nil {
		status.RSSBytes = rss
	} else {
		log.Printf("[bridge] reading process memory: %v", err)
	}
	writeJSON(w, status)
}

func processRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mem.RSS, nil
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Beholder-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

// checkOrigin admits non-browser clients and local browser pages only.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if parsed.Host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves handler until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, host string, port int, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[bridge] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
