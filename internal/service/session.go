package service

import (
	"context"

	"stream-verification/internal/oracle"
)

// Alert carries the detection details attached to an alert result.
type Alert struct {
	Type         string
	Confidence   float64
	Findings     []string
	AnomalyTypes []string
}

// UnitResult is the outcome of ingesting one stream unit (frame or chunk).
type UnitResult struct {
	Status     string // "processed" or "alert"
	UnitNumber int64
	UnitSize   int
	BufferSize int // audio only: bytes pending analysis
	Alert      *Alert
}

const (
	StatusProcessed = "processed"
	StatusAlert     = "alert"
)

// Stats is a point-in-time view of a stream session's counters.
type Stats struct {
	UnitCount         int64
	IsStreaming       bool
	AnalysesPerformed int
	SuspiciousCount   int
	BufferSize        int // audio only
}

// StopStats is the final accounting returned by session teardown.
type StopStats struct {
	TotalUnits      int64
	TotalAnalyses   int
	SuspiciousCount int
	// FinalAnalysis is set when the audio teardown flush produced a verdict.
	FinalAnalysis *oracle.AudioVerdict
}

// StreamSession is one client's server-side stream state. Implementations are
// single-writer: all calls happen sequentially on the goroutine servicing the
// owning connection.
type StreamSession interface {
	// Process ingests one unit and applies the sampling cadence.
	Process(ctx context.Context, data []byte) *UnitResult
	// Start (re)initializes all session state.
	Start()
	// Stop finalizes the session. The audio variant flushes any remaining
	// buffered data through one last analysis; the video variant does not.
	Stop(ctx context.Context) StopStats
	// Stats reports current counters.
	Stats() Stats
}
