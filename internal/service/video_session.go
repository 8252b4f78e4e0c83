package service

import (
	"context"
	"log"

	"stream-verification/internal/detection"
	"stream-verification/internal/oracle"
)

// VideoSession buffers incoming frames and submits every Nth frame's batch to
// the detection engine. Frame buffer and result history are both bounded with
// oldest-first eviction.
type VideoSession struct {
	engine       *detection.Engine
	analyzeEvery int
	bufferCap    int

	frameCount  int64
	isStreaming bool
	frameBuffer [][]byte
	history     *detection.History
}

// NewVideoSession creates a video stream session. analyzeEvery is the
// sampling cadence, bufferCap the frame window, historyCap the retained
// verdict count.
func NewVideoSession(engine *detection.Engine, analyzeEvery, bufferCap, historyCap int) *VideoSession {
	return &VideoSession{
		engine:       engine,
		analyzeEvery: analyzeEvery,
		bufferCap:    bufferCap,
		frameBuffer:  make([][]byte, 0, bufferCap),
		history:      detection.NewHistory(historyCap),
	}
}

// Process ingests one frame. Every analyzeEvery-th frame triggers a batch
// analysis of the most recent buffered frames; classifier failures are logged
// and swallowed so the stream keeps flowing.
func (s *VideoSession) Process(ctx context.Context, frame []byte) *UnitResult {
	s.frameCount++
	frameNumber := s.frameCount

	s.frameBuffer = append(s.frameBuffer, frame)
	if len(s.frameBuffer) > s.bufferCap {
		excess := len(s.frameBuffer) - s.bufferCap
		s.frameBuffer = s.frameBuffer[excess:]
	}

	if frameNumber%100 == 0 {
		log.Printf("Processing frame #%d, size: %d bytes", frameNumber, len(frame))
	}

	if frameNumber%int64(s.analyzeEvery) == 0 {
		log.Printf("Analyzing frame #%d for deepfakes", frameNumber)

		batch := s.frameBuffer
		if len(batch) > s.analyzeEvery {
			batch = batch[len(batch)-s.analyzeEvery:]
		}

		verdict, err := s.engine.AnalyzeFrameBatch(ctx, batch)
		switch {
		case err != nil:
			log.Printf("Error during frame analysis: %v", err)
		case verdict.Status != oracle.StatusSuccess:
			log.Printf("Frame analysis error: %s", verdict.Error)
		default:
			s.history.Append(detection.ResultFromFrame(verdict))

			if s.engine.ShouldTriggerAlert(s.history.Snapshot()) {
				return &UnitResult{
					Status:     StatusAlert,
					UnitNumber: frameNumber,
					UnitSize:   len(frame),
					Alert: &Alert{
						Type:         "deepfake_detected",
						Confidence:   verdict.Confidence,
						Findings:     verdict.Findings,
						AnomalyTypes: verdict.AnomalyTypes,
					},
				}
			}
		}
	}

	return &UnitResult{
		Status:     StatusProcessed,
		UnitNumber: frameNumber,
		UnitSize:   len(frame),
	}
}

// Start reinitializes all session state.
func (s *VideoSession) Start() {
	s.frameCount = 0
	s.isStreaming = true
	s.frameBuffer = s.frameBuffer[:0]
	s.history.Reset()
	log.Println("Video stream started with deepfake detection enabled")
}

// Stop finalizes the session. Buffered frames are discarded without a final
// analysis; only audio flushes on teardown.
func (s *VideoSession) Stop(ctx context.Context) StopStats {
	s.isStreaming = false
	results := s.history.Snapshot()

	stats := StopStats{
		TotalUnits:      s.frameCount,
		TotalAnalyses:   len(results),
		SuspiciousCount: detection.SuspiciousCount(results),
	}

	log.Printf("Video stream stopped. Frames: %d, Analyses: %d, Suspicious: %d",
		stats.TotalUnits, stats.TotalAnalyses, stats.SuspiciousCount)
	return stats
}

// Stats reports current counters.
func (s *VideoSession) Stats() Stats {
	results := s.history.Snapshot()
	return Stats{
		UnitCount:         s.frameCount,
		IsStreaming:       s.isStreaming,
		AnalysesPerformed: len(results),
		SuspiciousCount:   detection.SuspiciousCount(results),
	}
}
