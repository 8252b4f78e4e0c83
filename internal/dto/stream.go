package dto

import (
	"time"

	"stream-verification/internal/oracle"
)

// Outbound message shapes for the stream connections. Field names follow the
// wire contract consumed by the browser extension.

// StreamConnected is the initial handshake sent on connect.
type StreamConnected struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StreamError reports a unit- or message-scoped failure; session state is
// unaffected.
type StreamError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Pong answers a ping control message.
type Pong struct {
	Status string `json:"status"`
}

// FrameAck is the periodic video acknowledgement.
type FrameAck struct {
	Status     string `json:"status"`
	FrameCount int64  `json:"frame_count"`
	Message    string `json:"message,omitempty"`
}

// ChunkAck is the periodic audio acknowledgement.
type ChunkAck struct {
	Status     string `json:"status"`
	ChunkCount int64  `json:"chunk_count"`
	BufferSize int    `json:"buffer_size,omitempty"`
	Message    string `json:"message,omitempty"`
}

// VideoAlert is emitted immediately when the video alert policy fires.
type VideoAlert struct {
	Status       string   `json:"status"`
	FrameNumber  int64    `json:"frame_number"`
	AlertType    string   `json:"alert_type"`
	Confidence   float64  `json:"confidence"`
	Findings     []string `json:"findings"`
	AnomalyTypes []string `json:"anomaly_types"`
}

// AudioAlert is emitted immediately when the audio alert policy fires.
type AudioAlert struct {
	Status       string   `json:"status"`
	ChunkNumber  int64    `json:"chunk_number"`
	AlertType    string   `json:"alert_type"`
	Confidence   float64  `json:"confidence"`
	Findings     []string `json:"findings"`
	AnomalyTypes []string `json:"anomaly_types"`
}

// VideoStarted acknowledges a video start control message.
type VideoStarted struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// AudioStarted acknowledges an audio start control message.
type AudioStarted struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// VideoStopped carries the final video stream statistics.
type VideoStopped struct {
	Status           string `json:"status"`
	TotalFrames      int64  `json:"total_frames"`
	TotalAnalyses    int    `json:"total_analyses"`
	SuspiciousFrames int    `json:"suspicious_frames"`
}

// AudioStopped carries the final audio stream statistics, including the
// verdict of the teardown flush when one was produced.
type AudioStopped struct {
	Status           string               `json:"status"`
	TotalChunks      int64                `json:"total_chunks"`
	TotalAnalyses    int                  `json:"total_analyses"`
	SuspiciousChunks int                  `json:"suspicious_chunks"`
	FinalAnalysis    *oracle.AudioVerdict `json:"final_analysis,omitempty"`
}

// VideoStats answers a video stats control message.
type VideoStats struct {
	Status               string `json:"status"`
	FrameCount           int64  `json:"frame_count"`
	IsStreaming          bool   `json:"is_streaming"`
	AnalysesPerformed    int    `json:"analyses_performed"`
	SuspiciousDetections int    `json:"suspicious_detections"`
}

// AudioStats answers an audio stats control message.
type AudioStats struct {
	ChunkCount           int64 `json:"chunk_count"`
	IsStreaming          bool  `json:"is_streaming"`
	AnalysesPerformed    int   `json:"analyses_performed"`
	SuspiciousDetections int   `json:"suspicious_detections"`
	BufferSize           int   `json:"buffer_size"`
}

// AudioStatsEnvelope wraps audio stats in the status/data shape the audio
// endpoint historically used.
type AudioStatsEnvelope struct {
	Status string     `json:"status"`
	Data   AudioStats `json:"data"`
}

// AlertEvent is the record published to the broker and persisted when an
// alert fires.
type AlertEvent struct {
	AlertID      string    `json:"alert_id"`
	SessionID    string    `json:"session_id"`
	Kind         string    `json:"kind"`
	UnitNumber   int64     `json:"unit_number"`
	AlertType    string    `json:"alert_type"`
	Confidence   float64   `json:"confidence"`
	Findings     []string  `json:"findings"`
	AnomalyTypes []string  `json:"anomaly_types"`
	RaisedAt     time.Time `json:"raised_at"`
}
