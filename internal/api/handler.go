package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	pionwebrtc "github.com/pion/webrtc/v3"

	"stream-verification/internal/config"
	"stream-verification/internal/detection"
	"stream-verification/internal/dto"
	"stream-verification/internal/repository"
	"stream-verification/internal/service"
	"stream-verification/internal/webrtc"
	"stream-verification/internal/ws"
)

// SessionReader reads persisted stream sessions and their alerts.
type SessionReader interface {
	GetStreamSession(ctx context.Context, id string) (*repository.StreamSessionRow, error)
	ListAlertsBySession(ctx context.Context, sessionID string) ([]dto.AlertEvent, error)
}

type Handler struct {
	config        *config.Config
	engine        *detection.Engine
	screenshots   *service.ScreenshotStore
	sessions      SessionReader
	registry      *ws.Registry
	webrtcHandler *webrtc.StreamHandler
}

// Constructor for Handler
func NewHandler(cfg *config.Config, engine *detection.Engine, screenshots *service.ScreenshotStore, sessions SessionReader, registry *ws.Registry, webrtcHandler *webrtc.StreamHandler) *Handler {
	return &Handler{
		config:        cfg,
		engine:        engine,
		screenshots:   screenshots,
		sessions:      sessions,
		registry:      registry,
		webrtcHandler: webrtcHandler,
	}
}

func (handler *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := dto.HealthResponse{
		Status:            "healthy",
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		Version:           "1.0.0",
		ActiveConnections: int(handler.registry.Count()),
	}
	handler.respondJSON(w, http.StatusOK, response)
}

// UploadScreenshot accepts a base64 data URL screenshot from the browser
// extension and persists it.
func (handler *Handler) UploadScreenshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var payload dto.ScreenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		handler.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse payload: %v", err))
		return
	}

	result, err := handler.screenshots.SaveDataURL(payload.DataURL, payload.Source, payload.Metadata)
	if err != nil {
		handler.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	handler.respondJSON(w, http.StatusCreated, result)
}

// VerifyScreenshot persists the screenshot and runs the comprehensive
// deepfake analysis, returning the weighted-score report.
func (handler *Handler) VerifyScreenshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var payload dto.ScreenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		handler.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse payload: %v", err))
		return
	}

	if !strings.HasPrefix(payload.DataURL, "data:image") {
		handler.respondError(w, http.StatusBadRequest, "Invalid data URL format")
		return
	}

	log.Println("Saving screenshot for verification")
	saved, err := handler.screenshots.SaveDataURL(payload.DataURL, payload.Source, payload.Metadata)
	if err != nil {
		handler.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	imageBytes, _, err := service.ParseDataURL(payload.DataURL)
	if err != nil {
		handler.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Printf("Analyzing screenshot: %s", saved.FileName)
	analysis := handler.engine.AnalyzeScreenshot(r.Context(), imageBytes)

	log.Printf("Verification complete: %s (confidence: %.2f)",
		analysis.OverallVerdict, analysis.ConfidenceScore)

	handler.respondJSON(w, http.StatusOK, dto.ScreenshotVerifyResponse{
		ScreenshotInfo:   saved,
		DeepfakeAnalysis: analysis,
		AnalyzedAt:       time.Now().UTC().Format(time.RFC3339),
		Status:           "success",
	})
}

// GetStreamSession returns one persisted stream session with the alerts it
// raised.
func (handler *Handler) GetStreamSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		handler.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	row, err := handler.sessions.GetStreamSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			handler.respondError(w, http.StatusNotFound, fmt.Sprintf("Session not found: %s", sessionID))
			return
		}
		handler.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get session: %v", err))
		return
	}

	alerts, err := handler.sessions.ListAlertsBySession(r.Context(), sessionID)
	if err != nil {
		handler.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list alerts: %v", err))
		return
	}
	if alerts == nil {
		alerts = []dto.AlertEvent{}
	}

	response := dto.StreamSessionResponse{
		ID:              row.ID,
		Kind:            row.Kind,
		Status:          row.Status,
		TotalUnits:      row.TotalUnits,
		TotalAnalyses:   row.TotalAnalyses,
		SuspiciousCount: row.SuspiciousCount,
		StartedAt:       row.StartedAt,
		Alerts:          alerts,
	}
	if row.FinishedAt.Valid {
		finished := row.FinishedAt.Time
		response.FinishedAt = &finished
	}

	handler.respondJSON(w, http.StatusOK, response)
}

// WebRTC Streaming Endpoints

// StartWebRTCStream establishes a WebRTC connection for real-time frame
// streaming with lower latency than the WebSocket path.
func (handler *Handler) StartWebRTCStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var offer struct {
		SessionID string `json:"session_id"`
		SDP       string `json:"sdp"`
		Type      string `json:"type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		handler.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse offer: %v", err))
		return
	}

	if offer.SessionID == "" {
		handler.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if offer.SDP == "" {
		handler.respondError(w, http.StatusBadRequest, "sdp is required")
		return
	}

	log.Printf("Received WebRTC offer from session: %s", offer.SessionID)

	answerSDP, err := handler.webrtcHandler.HandleOffer(offer.SessionID, offer.SDP)
	if err != nil {
		handler.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to handle offer: %v", err))
		return
	}

	answer := map[string]interface{}{
		"session_id": offer.SessionID,
		"sdp":        answerSDP,
		"type":       "answer",
	}

	log.Printf("Sending WebRTC answer to session: %s", offer.SessionID)
	handler.respondJSON(w, http.StatusOK, answer)
}

// HandleICECandidate receives ICE candidates during WebRTC negotiation.
func (handler *Handler) HandleICECandidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		SessionID string                      `json:"session_id"`
		Candidate pionwebrtc.ICECandidateInit `json:"candidate"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.respondError(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse candidate: %v", err))
		return
	}

	if req.SessionID == "" {
		handler.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := handler.webrtcHandler.HandleICECandidate(req.SessionID, req.Candidate); err != nil {
		handler.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add ICE candidate: %v", err))
		return
	}

	handler.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "ICE candidate added successfully",
		"session_id": req.SessionID,
	})
}

// CloseWebRTCStream closes the WebRTC connection for a session.
func (handler *Handler) CloseWebRTCStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		handler.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sessionID := handler.extractSessionIDFromWebRTCPath(r.URL.Path)
	if sessionID == "" {
		handler.respondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := handler.webrtcHandler.CloseSession(sessionID); err != nil {
		handler.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to close session: %v", err))
		return
	}

	log.Printf("WebRTC session closed: %s", sessionID)
	handler.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "WebRTC session closed successfully",
		"session_id": sessionID,
	})
}

// GetWebRTCStats returns statistics for all active WebRTC sessions.
func (handler *Handler) GetWebRTCStats(w http.ResponseWriter, r *http.Request) {
	stats := handler.webrtcHandler.GetSessionStats()
	handler.respondJSON(w, http.StatusOK, stats)
}

// extractSessionIDFromWebRTCPath extracts session ID from WebRTC path
func (handler *Handler) extractSessionIDFromWebRTCPath(path string) string {
	// Expected pattern: /api/v1/webrtc/stream/{session_id}/close
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "stream" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// Helper methods for responses
func (handler *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (handler *Handler) respondError(w http.ResponseWriter, status int, message string) {
	handler.respondJSON(w, status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
