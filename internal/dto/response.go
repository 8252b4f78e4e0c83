package dto

import (
	"time"

	"stream-verification/internal/detection"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	Version           string `json:"version"`
	ActiveConnections int    `json:"active_connections"`
}

// ScreenshotRequest is the upload/verify request body
type ScreenshotRequest struct {
	DataURL  string         `json:"data_url"`
	Source   string         `json:"source,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScreenshotVerifyResponse combines storage info with the analysis report
type ScreenshotVerifyResponse struct {
	ScreenshotInfo   any                         `json:"screenshot_info"`
	DeepfakeAnalysis *detection.ScreenshotReport `json:"deepfake_analysis"`
	AnalyzedAt       string                      `json:"analyzed_at"`
	Status           string                      `json:"status"`
}

// StreamSessionResponse is one persisted stream session with its raised alerts
type StreamSessionResponse struct {
	ID              string       `json:"id"`
	Kind            string       `json:"kind"`
	Status          string       `json:"status"`
	TotalUnits      int64        `json:"total_units"`
	TotalAnalyses   int          `json:"total_analyses"`
	SuspiciousCount int          `json:"suspicious_count"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      *time.Time   `json:"finished_at,omitempty"`
	Alerts          []AlertEvent `json:"alerts"`
}
