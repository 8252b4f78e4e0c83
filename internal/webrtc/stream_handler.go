package webrtc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/pion/webrtc/v3"

	"stream-verification/internal/ws"
)

// OrchestratorFactory builds a fresh per-peer session orchestrator.
type OrchestratorFactory func() *ws.Orchestrator

// peerSession guards one peer's orchestrator. Unlike the WebSocket path,
// where a single read loop owns the session, pion delivers data-channel
// messages and connection state changes on different goroutines. The mutex
// restores the sequential access the session state requires.
type peerSession struct {
	mu   sync.Mutex
	orch *ws.Orchestrator
}

func (p *peerSession) register(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orch.Register(ctx)
}

func (p *peerSession) handleBinary(ctx context.Context, data []byte) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orch.HandleBinary(ctx, data)
}

func (p *peerSession) handleText(ctx context.Context, raw []byte) any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orch.HandleText(ctx, raw)
}

func (p *peerSession) disconnect(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orch.HandleDisconnect(ctx)
}

// StreamHandler manages WebRTC connections as an alternative low-latency
// ingest transport. Clients push JPEG frames over a "frames" data channel;
// acknowledgements and alerts flow back over a "responses" channel. Each peer
// owns one video session orchestrator, mirroring the WebSocket path.
type StreamHandler struct {
	newOrchestrator OrchestratorFactory
	peerConnections sync.Map // map[sessionID]*webrtc.PeerConnection
	sessions        sync.Map // map[sessionID]*peerSession
	responses       sync.Map // map[sessionID]*webrtc.DataChannel
	api             *webrtc.API
	config          webrtc.Configuration
}

// NewStreamHandler creates a new WebRTC stream handler.
func NewStreamHandler(factory OrchestratorFactory) *StreamHandler {
	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		log.Printf("Failed to register default codecs: %v", err)
	}

	return &StreamHandler{
		newOrchestrator: factory,
		api:             webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine)),
		config:          config,
	}
}

// HandleOffer processes a WebRTC offer and returns an answer.
func (h *StreamHandler) HandleOffer(sessionID string, sdp string) (string, error) {
	peerConnection, err := h.api.NewPeerConnection(h.config)
	if err != nil {
		return "", fmt.Errorf("failed to create peer connection: %w", err)
	}

	h.peerConnections.Store(sessionID, peerConnection)

	session := &peerSession{orch: h.newOrchestrator()}
	session.register(context.Background())
	h.sessions.Store(sessionID, session)

	peerConnection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("WebRTC connection state changed: %s (session: %s)", state.String(), sessionID)

		if state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateClosed ||
			state == webrtc.PeerConnectionStateDisconnected {
			h.CloseSession(sessionID)
		}
	})

	peerConnection.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Printf("ICE connection state changed: %s (session: %s)", state.String(), sessionID)
	})

	// Server-created channel for pushing acknowledgements and alerts back.
	responseChannel, err := peerConnection.CreateDataChannel("responses", nil)
	if err != nil {
		log.Printf("Failed to create responses data channel: %v", err)
	} else {
		h.setupResponseChannel(sessionID, responseChannel)
	}

	// Clients open the "frames" channel and push JPEG frames through it.
	peerConnection.OnDataChannel(func(dataChannel *webrtc.DataChannel) {
		log.Printf("Data channel opened by client: label=%s (session: %s)", dataChannel.Label(), sessionID)

		if dataChannel.Label() == "frames" {
			h.setupFramesChannel(sessionID, session, dataChannel)
		}
	})

	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	if err := peerConnection.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := peerConnection.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}

	if err := peerConnection.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	return answer.SDP, nil
}

// HandleICECandidate adds an ICE candidate to the peer connection.
func (h *StreamHandler) HandleICECandidate(sessionID string, candidate webrtc.ICECandidateInit) error {
	val, ok := h.peerConnections.Load(sessionID)
	if !ok {
		return fmt.Errorf("peer connection not found for session: %s", sessionID)
	}

	peerConnection := val.(*webrtc.PeerConnection)
	if err := peerConnection.AddICECandidate(candidate); err != nil {
		return fmt.Errorf("failed to add ICE candidate: %w", err)
	}

	return nil
}

// setupFramesChannel routes incoming JPEG frames into the peer's session.
func (h *StreamHandler) setupFramesChannel(sessionID string, session *peerSession, channel *webrtc.DataChannel) {
	channel.OnOpen(func() {
		log.Printf("Frames data channel opened (session: %s) - ready to receive JPEG frames", sessionID)
	})

	channel.OnClose(func() {
		log.Printf("Frames data channel closed (session: %s)", sessionID)
	})

	channel.OnMessage(func(msg webrtc.DataChannelMessage) {
		var response any
		if msg.IsString {
			response = session.handleText(context.Background(), msg.Data)
		} else {
			if !isJPEG(msg.Data) {
				log.Printf("Invalid JPEG data received (session: %s, size: %d bytes)", sessionID, len(msg.Data))
				return
			}
			response = session.handleBinary(context.Background(), msg.Data)
		}
		if response != nil {
			h.sendResponse(sessionID, response)
		}
	})
}

// setupResponseChannel tracks the outbound channel for a session.
func (h *StreamHandler) setupResponseChannel(sessionID string, channel *webrtc.DataChannel) {
	h.responses.Store(sessionID, channel)

	channel.OnOpen(func() {
		log.Printf("Responses data channel opened (session: %s)", sessionID)
	})

	channel.OnClose(func() {
		log.Printf("Responses data channel closed (session: %s)", sessionID)
		h.responses.Delete(sessionID)
	})
}

// sendResponse pushes an acknowledgement or alert back to the client.
func (h *StreamHandler) sendResponse(sessionID string, response any) {
	val, ok := h.responses.Load(sessionID)
	if !ok {
		return
	}
	channel := val.(*webrtc.DataChannel)
	if channel.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}

	data, err := json.Marshal(response)
	if err != nil {
		log.Printf("Failed to marshal response: %v (session: %s)", err, sessionID)
		return
	}
	if err := channel.SendText(string(data)); err != nil {
		log.Printf("Failed to send response: %v (session: %s)", err, sessionID)
	}
}

// CloseSession closes the WebRTC connection and tears down the session.
func (h *StreamHandler) CloseSession(sessionID string) error {
	val, ok := h.peerConnections.Load(sessionID)
	if !ok {
		return fmt.Errorf("peer connection not found for session: %s", sessionID)
	}

	peerConnection := val.(*webrtc.PeerConnection)
	if err := peerConnection.Close(); err != nil {
		log.Printf("Error closing peer connection: %v (session: %s)", err, sessionID)
	}

	if sessionVal, ok := h.sessions.LoadAndDelete(sessionID); ok {
		sessionVal.(*peerSession).disconnect(context.Background())
	}

	h.responses.Delete(sessionID)
	h.peerConnections.Delete(sessionID)
	log.Printf("WebRTC session closed: %s", sessionID)

	return nil
}

// GetSessionStats returns statistics for all WebRTC sessions.
func (h *StreamHandler) GetSessionStats() map[string]interface{} {
	stats := make(map[string]interface{})
	activeSessions := 0

	h.peerConnections.Range(func(key, value interface{}) bool {
		activeSessions++
		sessionID := key.(string)
		peerConnection := value.(*webrtc.PeerConnection)

		stats[sessionID] = map[string]interface{}{
			"connection_state": peerConnection.ConnectionState().String(),
			"ice_state":        peerConnection.ICEConnectionState().String(),
		}

		return true
	})

	stats["total_active_sessions"] = activeSessions

	return stats
}

// isJPEG checks the SOI marker.
func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}
