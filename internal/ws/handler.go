package ws

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"stream-verification/internal/config"
	"stream-verification/internal/detection"
	"stream-verification/internal/dto"
	"stream-verification/internal/service"
)

// Handler owns the stream WebSocket endpoints. Each accepted connection gets
// its own session and orchestrator; sessions never share mutable state.
type Handler struct {
	config    *config.Config
	engine    *detection.Engine
	publisher AlertPublisher
	store     SessionStore
	registry  *Registry
	upgrader  websocket.Upgrader
}

// NewHandler creates the stream endpoint handler.
func NewHandler(cfg *config.Config, engine *detection.Engine, publisher AlertPublisher, store SessionStore, registry *Registry) *Handler {
	return &Handler{
		config:    cfg,
		engine:    engine,
		publisher: publisher,
		store:     store,
		registry:  registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			// Extension clients connect from arbitrary page origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// VideoStream receives a video frame stream for deepfake detection.
func (h *Handler) VideoStream(w http.ResponseWriter, r *http.Request) {
	session := service.NewVideoSession(h.engine,
		h.config.VideoAnalyzeEvery, h.config.VideoBufferCap, h.config.VideoHistoryCap)
	orch := NewOrchestrator(KindVideo, session, h.config.VideoAckInterval, h.publisher, h.store)

	h.serve(w, r, orch, "Ready to receive video stream", false)
}

// AudioStream receives an audio chunk stream for AI voice detection.
func (h *Handler) AudioStream(w http.ResponseWriter, r *http.Request) {
	session := service.NewAudioSession(h.engine,
		h.config.AudioBufferThreshold, h.config.AudioHistoryCap, h.config.AudioMimeType)
	orch := NewOrchestrator(KindAudio, session, h.config.AudioAckInterval, h.publisher, h.store)

	// The audio stream starts implicitly on connect; video waits for an
	// explicit start control message.
	h.serve(w, r, orch, "Ready to receive audio stream", true)
}

// serve upgrades the connection and runs the sequential message loop. Any
// read or write failure falls through to the disconnect teardown.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request, orch *Orchestrator, greeting string, autoStart bool) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	total := h.registry.Add()
	log.Printf("WebSocket client connected. Total connections: %d", total)
	defer func() {
		orch.HandleDisconnect(ctx)
		remaining := h.registry.Remove()
		log.Printf("WebSocket client disconnected. Remaining connections: %d", remaining)
	}()

	orch.Register(ctx)

	if err := conn.WriteJSON(dto.StreamConnected{Status: "connected", Message: greeting}); err != nil {
		log.Printf("Error sending connect acknowledgement: %v", err)
		return
	}

	if autoStart {
		orch.session.Start()
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var response any
		switch messageType {
		case websocket.BinaryMessage:
			response = orch.HandleBinary(ctx, data)
		case websocket.TextMessage:
			response = orch.HandleText(ctx, data)
		default:
			continue
		}

		if response == nil {
			continue
		}
		if err := conn.WriteJSON(response); err != nil {
			log.Printf("Error sending message to WebSocket: %v", err)
			return
		}
	}
}
