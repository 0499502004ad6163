package relay

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"nhooyr.io/websocket"
)

// Server exposes the relay over HTTP: a websocket endpoint for
// subscribers and a POST ingest endpoint used by upstream workflows.
type Server struct {
	hub    *Hub
	logger *slog.Logger
}

func NewServer(hub *Hub, logger *slog.Logger) *Server {
	return &Server{hub: hub, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/events/new-message", s.handleNewMessage)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":          true,
		"subscribers": s.hub.Subscribers(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The dashboard and relay run on different origins in every
		// deployment, so origin checks happen at the network layer.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	s.logger.Info("subscriber connected", "remote", r.RemoteAddr)
	s.hub.Serve(r.Context(), conn)
	s.logger.Info("subscriber disconnected", "remote", r.RemoteAddr)
}

// handleNewMessage ingests an event over plain HTTP. The body must be a
// JSON object; beyond that it is forwarded as-is.
func (s *Server) handleNewMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "body must be a JSON object"})
		return
	}

	s.hub.Broadcast(EventNewMessage, body)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"delivered": true})
}
