package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/loic-mmt/BloomDash/internal/observability"
)

// StatusFunc reports operational state for /api/status. The returned
// value is rendered as JSON.
type StatusFunc func() any

// Server exposes the dashboard feed over HTTP.
type Server struct {
	addr         string
	logger       *log.Logger
	status       StatusFunc
	now          func() time.Time
	pushInterval time.Duration
	upgrader     websocket.Upgrader

	httpServer *http.Server
}

// ServerOptions contains configuration for creating a Server.
type ServerOptions struct {
	Addr         string // Default: ":8080"
	Logger       *log.Logger
	Status       StatusFunc
	PushInterval time.Duration    // Default: 5s - websocket quote push cadence
	Now          func() time.Time // Default: time.Now
}

// NewServer creates a new dashboard server.
func NewServer(opts ServerOptions) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = ":8080"
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	status := opts.Status
	if status == nil {
		status = func() any { return map[string]string{"state": "ok"} }
	}

	pushInterval := opts.PushInterval
	if pushInterval == 0 {
		pushInterval = 5 * time.Second
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Server{
		addr:         addr,
		logger:       logger,
		status:       status,
		now:          now,
		pushInterval: pushInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The feed is same-origin in deployment and curl/ws tools in dev.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/api/series/{symbol}", s.handleSeries)
	r.Get("/ws/quotes", s.handleQuoteStream)
	r.Handle("/metrics", observability.Handler())

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("[dashboard] listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BuildPayload(s.now()))
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "1M"
	}

	q, ok := SeriesFor(s.now(), symbol, timeframe)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown symbol or timeframe"})
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleQuoteStream upgrades to a websocket and pushes quote snapshots on
// a fixed cadence until the client disconnects.
func (s *Server) handleQuoteStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[dashboard] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Drain control frames so pings and close are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	send := func() error {
		payload := BuildPayload(s.now())
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(quoteFrame{Type: "quotes", AsOf: payload.AsOf, Quotes: stripSeries(payload.Quotes)})
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := send(); err != nil {
				return
			}
		}
	}
}

// quoteFrame is the websocket message shape: quotes without the full
// series, which clients fetch over /api/series as needed.
type quoteFrame struct {
	Type   string    `json:"type"`
	AsOf   time.Time `json:"as_of"`
	Quotes []Quote   `json:"quotes"`
}

func stripSeries(quotes []Quote) []Quote {
	out := make([]Quote, len(quotes))
	for i, q := range quotes {
		q.Series = nil
		q.Volume = nil
		out[i] = q
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
