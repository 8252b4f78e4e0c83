package service

import (
	"bytes"
	"context"
	"log"

	"stream-verification/internal/detection"
	"stream-verification/internal/oracle"
)

// AudioSession accumulates chunks until the buffered byte total reaches its
// threshold, then submits the concatenated payload for AI-voice analysis.
// The buffer is cleared after every analysis attempt, success or not, so
// repeated classifier failures cannot grow it without bound.
type AudioSession struct {
	engine          *detection.Engine
	bufferThreshold int
	mimeType        string

	chunkCount  int64
	isStreaming bool
	audioBuffer [][]byte
	totalBytes  int
	history     *detection.History
}

// NewAudioSession creates an audio stream session.
func NewAudioSession(engine *detection.Engine, bufferThreshold, historyCap int, mimeType string) *AudioSession {
	return &AudioSession{
		engine:          engine,
		bufferThreshold: bufferThreshold,
		mimeType:        mimeType,
		history:         detection.NewHistory(historyCap),
	}
}

// Process ingests one audio chunk and runs the byte-threshold cadence.
func (s *AudioSession) Process(ctx context.Context, chunk []byte) *UnitResult {
	s.chunkCount++
	chunkNumber := s.chunkCount

	s.audioBuffer = append(s.audioBuffer, chunk)
	s.totalBytes += len(chunk)

	if chunkNumber%5 == 0 {
		log.Printf("Processing audio chunk #%d, size: %d bytes, total: %d bytes, threshold: %d bytes",
			chunkNumber, len(chunk), s.totalBytes, s.bufferThreshold)
	}

	if s.totalBytes >= s.bufferThreshold {
		log.Printf("Analyzing buffered audio at chunk #%d (%d bytes)", chunkNumber, s.totalBytes)

		verdict := s.analyzeBuffered(ctx)
		if verdict != nil && s.engine.ShouldTriggerAudioAlert(s.history.Snapshot()) {
			return &UnitResult{
				Status:     StatusAlert,
				UnitNumber: chunkNumber,
				UnitSize:   len(chunk),
				BufferSize: s.totalBytes,
				Alert: &Alert{
					Type:         "ai_voice_detected",
					Confidence:   verdict.Confidence,
					Findings:     verdict.Findings,
					AnomalyTypes: verdict.AnomalyTypes,
				},
			}
		}
	}

	return &UnitResult{
		Status:     StatusProcessed,
		UnitNumber: chunkNumber,
		UnitSize:   len(chunk),
		BufferSize: s.totalBytes,
	}
}

// analyzeBuffered submits the concatenated buffer and clears it regardless of
// outcome. Returns the verdict when the classifier succeeded.
func (s *AudioSession) analyzeBuffered(ctx context.Context) *oracle.AudioVerdict {
	combined := bytes.Join(s.audioBuffer, nil)

	s.audioBuffer = nil
	s.totalBytes = 0

	verdict, err := s.engine.AnalyzeAudio(ctx, combined, s.mimeType)
	if err != nil {
		log.Printf("Error during audio analysis: %v", err)
		return nil
	}
	if verdict.Status != oracle.StatusSuccess {
		log.Printf("Audio analysis error: %s", verdict.Error)
		return nil
	}

	s.history.Append(detection.ResultFromAudio(verdict))
	return verdict
}

// Start reinitializes all session state.
func (s *AudioSession) Start() {
	s.chunkCount = 0
	s.isStreaming = true
	s.audioBuffer = nil
	s.totalBytes = 0
	s.history.Reset()
	log.Println("Audio stream started with AI voice detection enabled")
}

// Stop finalizes the session, flushing any remaining buffered audio through
// one last analysis before the totals are computed.
func (s *AudioSession) Stop(ctx context.Context) StopStats {
	s.isStreaming = false

	var finalAnalysis *oracle.AudioVerdict
	if s.totalBytes > 0 {
		log.Printf("Analyzing remaining buffered audio (%d bytes) before stopping", s.totalBytes)
		finalAnalysis = s.analyzeBuffered(ctx)
		if finalAnalysis != nil {
			log.Printf("Final analysis complete: AI=%t", finalAnalysis.IsAIGenerated)
		}
	}

	results := s.history.Snapshot()
	stats := StopStats{
		TotalUnits:      s.chunkCount,
		TotalAnalyses:   len(results),
		SuspiciousCount: detection.SuspiciousCount(results),
		FinalAnalysis:   finalAnalysis,
	}

	log.Printf("Audio stream stopped. Chunks: %d, Analyses: %d, Suspicious: %d",
		stats.TotalUnits, stats.TotalAnalyses, stats.SuspiciousCount)
	return stats
}

// Stats reports current counters.
func (s *AudioSession) Stats() Stats {
	results := s.history.Snapshot()
	return Stats{
		UnitCount:         s.chunkCount,
		IsStreaming:       s.isStreaming,
		AnalysesPerformed: len(results),
		SuspiciousCount:   detection.SuspiciousCount(results),
		BufferSize:        s.totalBytes,
	}
}
