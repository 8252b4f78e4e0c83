package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"stream-verification/internal/dto"
	"stream-verification/internal/service"
)

// Kind names a stream session variant.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// AlertPublisher fans a raised alert out to external consumers.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, event dto.AlertEvent) error
}

// SessionStore persists stream session lifecycles and raised alerts.
type SessionStore interface {
	CreateStreamSession(ctx context.Context, id string, kind string, startedAt time.Time) error
	FinishStreamSession(ctx context.Context, id string, stats service.StopStats, finishedAt time.Time) error
	RecordAlert(ctx context.Context, event dto.AlertEvent) error
}

// Orchestrator drives one connection's stream session: it routes inbound
// units and control messages, applies the acknowledgement cadence, raises
// alerts and converges both teardown paths (explicit stop and disconnect)
// onto the same finalization. All methods run on the single goroutine that
// services the connection.
type Orchestrator struct {
	id          string
	kind        Kind
	session     service.StreamSession
	ackInterval int
	payloadKey  string
	publisher   AlertPublisher
	store       SessionStore
	stopped     bool
}

// NewOrchestrator creates the per-connection driver. publisher and store may
// be nil; side effects are then skipped.
func NewOrchestrator(kind Kind, session service.StreamSession, ackInterval int, publisher AlertPublisher, store SessionStore) *Orchestrator {
	payloadKey := "frame"
	if kind == KindAudio {
		payloadKey = "audio"
	}
	return &Orchestrator{
		id:          uuid.New().String(),
		kind:        kind,
		session:     session,
		ackInterval: ackInterval,
		payloadKey:  payloadKey,
		publisher:   publisher,
		store:       store,
	}
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string {
	return o.id
}

// Register records the session start with the store.
func (o *Orchestrator) Register(ctx context.Context) {
	if o.store == nil {
		return
	}
	if err := o.store.CreateStreamSession(ctx, o.id, string(o.kind), time.Now().UTC()); err != nil {
		log.Printf("Failed to persist session %s: %v", o.id, err)
	}
}

// HandleBinary processes one raw inbound unit. Returns the outbound response,
// or nil when the acknowledgement is suppressed for this unit.
func (o *Orchestrator) HandleBinary(ctx context.Context, data []byte) any {
	result := o.session.Process(ctx, data)

	if result.Status == service.StatusAlert {
		return o.raiseAlert(ctx, result)
	}

	if result.UnitNumber%int64(o.ackInterval) == 0 {
		if o.kind == KindAudio {
			return dto.ChunkAck{
				Status:     "received",
				ChunkCount: result.UnitNumber,
				BufferSize: result.BufferSize,
				Message:    fmt.Sprintf("Processed %d audio chunks", result.UnitNumber),
			}
		}
		return dto.FrameAck{
			Status:     "received",
			FrameCount: result.UnitNumber,
			Message:    fmt.Sprintf("Processed %d frames", result.UnitNumber),
		}
	}
	return nil
}

// HandleText processes one text message: either a base64-encoded unit or a
// control action. Malformed input yields an error response and leaves the
// session untouched.
func (o *Orchestrator) HandleText(ctx context.Context, raw []byte) any {
	var message map[string]any
	if err := json.Unmarshal(raw, &message); err != nil {
		log.Println("Received invalid JSON message")
		return dto.StreamError{Status: "error", Message: "Invalid JSON format"}
	}

	if encoded, ok := message[o.payloadKey].(string); ok {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			log.Printf("Invalid base64 %s payload: %v", o.payloadKey, err)
			return dto.StreamError{Status: "error", Message: fmt.Sprintf("Invalid base64 %s payload", o.payloadKey)}
		}

		result := o.session.Process(ctx, data)
		if result.Status == service.StatusAlert {
			return o.raiseAlert(ctx, result)
		}
		if o.kind == KindAudio {
			return dto.ChunkAck{Status: "received", ChunkCount: result.UnitNumber}
		}
		return dto.FrameAck{Status: "received", FrameCount: result.UnitNumber}
	}

	if action, ok := message["action"].(string); ok {
		return o.handleControl(ctx, action)
	}

	log.Printf("Unknown message type: %s", raw)
	return dto.StreamError{Status: "error", Message: "Unknown message type"}
}

// handleControl dispatches start/stop/ping/stats actions.
func (o *Orchestrator) handleControl(ctx context.Context, action string) any {
	log.Printf("Received control message: %s", action)

	switch action {
	case "start":
		o.session.Start()
		o.stopped = false
		if o.kind == KindAudio {
			return dto.AudioStarted{
				Status:  "started",
				Message: "Audio stream processing with AI voice detection initialized",
			}
		}
		return dto.VideoStarted{
			Status:  "started",
			Message: "Stream processing with deepfake detection initialized",
		}

	case "stop":
		stats := o.finalize(ctx)
		if o.kind == KindAudio {
			return dto.AudioStopped{
				Status:           "stopped",
				TotalChunks:      stats.TotalUnits,
				TotalAnalyses:    stats.TotalAnalyses,
				SuspiciousChunks: stats.SuspiciousCount,
				FinalAnalysis:    stats.FinalAnalysis,
			}
		}
		return dto.VideoStopped{
			Status:           "stopped",
			TotalFrames:      stats.TotalUnits,
			TotalAnalyses:    stats.TotalAnalyses,
			SuspiciousFrames: stats.SuspiciousCount,
		}

	case "ping":
		return dto.Pong{Status: "pong"}

	case "stats":
		stats := o.session.Stats()
		if o.kind == KindAudio {
			return dto.AudioStatsEnvelope{
				Status: "stats",
				Data: dto.AudioStats{
					ChunkCount:           stats.UnitCount,
					IsStreaming:          stats.IsStreaming,
					AnalysesPerformed:    stats.AnalysesPerformed,
					SuspiciousDetections: stats.SuspiciousCount,
					BufferSize:           stats.BufferSize,
				},
			}
		}
		return dto.VideoStats{
			Status:               "stats",
			FrameCount:           stats.UnitCount,
			IsStreaming:          stats.IsStreaming,
			AnalysesPerformed:    stats.AnalysesPerformed,
			SuspiciousDetections: stats.SuspiciousCount,
		}

	default:
		log.Printf("Unknown control action: %s", action)
		return dto.StreamError{Status: "error", Message: fmt.Sprintf("Unknown action: %s", action)}
	}
}

// HandleDisconnect converges the disconnect path onto the stop teardown.
func (o *Orchestrator) HandleDisconnect(ctx context.Context) {
	log.Printf("%s stream client disconnected (session %s)", o.kind, o.id)
	o.finalize(ctx)
}

// finalize stops the session exactly once and persists the outcome. The
// audio variant's Stop flushes any remaining buffer through a last analysis.
func (o *Orchestrator) finalize(ctx context.Context) service.StopStats {
	if o.stopped {
		return service.StopStats{}
	}
	o.stopped = true

	stats := o.session.Stop(ctx)
	if o.store != nil {
		if err := o.store.FinishStreamSession(ctx, o.id, stats, time.Now().UTC()); err != nil {
			log.Printf("Failed to finalize session %s: %v", o.id, err)
		}
	}
	return stats
}

// raiseAlert logs the alert distinctly, fans it out and builds the immediate
// outbound response that replaces the periodic acknowledgement.
func (o *Orchestrator) raiseAlert(ctx context.Context, result *service.UnitResult) any {
	alert := result.Alert
	if alert.Findings == nil {
		alert.Findings = []string{}
	}
	if alert.AnomalyTypes == nil {
		alert.AnomalyTypes = []string{}
	}

	event := dto.AlertEvent{
		AlertID:      uuid.New().String(),
		SessionID:    o.id,
		Kind:         string(o.kind),
		UnitNumber:   result.UnitNumber,
		AlertType:    alert.Type,
		Confidence:   alert.Confidence,
		Findings:     alert.Findings,
		AnomalyTypes: alert.AnomalyTypes,
		RaisedAt:     time.Now().UTC(),
	}

	log.Printf("ALERT: %s triggered at unit #%d (session %s, confidence %.2f)",
		alert.Type, result.UnitNumber, o.id, alert.Confidence)

	if o.publisher != nil {
		if err := o.publisher.PublishAlert(ctx, event); err != nil {
			log.Printf("Failed to publish alert %s: %v", event.AlertID, err)
		}
	}
	if o.store != nil {
		if err := o.store.RecordAlert(ctx, event); err != nil {
			log.Printf("Failed to persist alert %s: %v", event.AlertID, err)
		}
	}

	if o.kind == KindAudio {
		return dto.AudioAlert{
			Status:       "alert",
			ChunkNumber:  result.UnitNumber,
			AlertType:    alert.Type,
			Confidence:   alert.Confidence,
			Findings:     alert.Findings,
			AnomalyTypes: alert.AnomalyTypes,
		}
	}
	return dto.VideoAlert{
		Status:       "alert",
		FrameNumber:  result.UnitNumber,
		AlertType:    alert.Type,
		Confidence:   alert.Confidence,
		Findings:     alert.Findings,
		AnomalyTypes: alert.AnomalyTypes,
	}
}
