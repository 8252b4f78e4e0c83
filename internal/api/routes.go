package api

import (
	"net/http"
	"strings"

	"stream-verification/internal/ws"
)

func SetupRoutes(handler *Handler, streamHandler *ws.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/api/v1/health", handler.HealthCheck)

	// Stream WebSocket endpoints
	mux.HandleFunc("/api/v1/video-stream", streamHandler.VideoStream)
	mux.HandleFunc("/api/v1/audio-stream", streamHandler.AudioStream)

	// Persisted session lookup
	mux.HandleFunc("/api/v1/sessions/", handler.GetStreamSession)

	// Screenshot endpoints
	mux.HandleFunc("/api/v1/screenshots", handler.UploadScreenshot)
	mux.HandleFunc("/api/v1/screenshots/verify", handler.VerifyScreenshot)

	// WebRTC streaming endpoints (low-latency alternative to the WebSocket path)
	mux.HandleFunc("/api/v1/webrtc/stream/offer", handler.StartWebRTCStream)
	mux.HandleFunc("/api/v1/webrtc/stream/candidate", handler.HandleICECandidate)
	mux.HandleFunc("/api/v1/webrtc/stream/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/close") {
			handler.CloseWebRTCStream(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/v1/webrtc/stats", handler.GetWebRTCStats)

	// Apply middleware
	h := LoggingMiddleware(mux)
	h = RecoveryMiddleware(h)
	h = CORSMiddleware(h)

	return h
}
