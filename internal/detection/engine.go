package detection

import (
	"context"
	"errors"
	"log"

	"stream-verification/internal/oracle"
)

// Weights for comprehensive analysis (screenshots).
var comprehensiveWeights = map[string]float64{
	"facial":           0.20,
	"lighting":         0.15,
	"texture":          0.15,
	"boundaries":       0.12,
	"background":       0.10,
	"artifacts":        0.10,
	"metadata":         0.08,
	"web_verification": 0.10,
}

// Weights for quick frame analysis. The quick path trusts the classifier's
// own is_suspicious/confidence fields directly; this table is kept for
// reference and is not applied.
var frameWeights = map[string]float64{
	"facial":     0.35,
	"lighting":   0.25,
	"texture":    0.20,
	"boundaries": 0.20,
}

// ErrNoFrames is returned when a batch analysis is requested on an empty buffer.
var ErrNoFrames = errors.New("no frames provided for analysis")

// Engine orchestrates classifier calls, weighted scoring and the ratio-based
// alert policies. It is stateless apart from its configuration and safe to
// share across sessions.
type Engine struct {
	client              oracle.Client
	confidenceThreshold float64
	videoAlertRatio     float64
	audioAlertRatio     float64
}

// NewEngine creates a detection engine over the given classifier client.
// threshold gates individual results by confidence; videoRatio and audioRatio
// are the history fractions that trigger an alert.
func NewEngine(client oracle.Client, threshold, videoRatio, audioRatio float64) *Engine {
	return &Engine{
		client:              client,
		confidenceThreshold: threshold,
		videoAlertRatio:     videoRatio,
		audioAlertRatio:     audioRatio,
	}
}

// AnalyzeFrameBatch runs a quick analysis over a batch of buffered frames.
// Only the most recent frame is submitted; recency dominates for live streams.
func (e *Engine) AnalyzeFrameBatch(ctx context.Context, frames [][]byte) (*oracle.FrameVerdict, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	latest := frames[len(frames)-1]
	log.Printf("Analyzing batch of %d frames (using latest)", len(frames))
	return e.client.AnalyzeQuick(ctx, latest)
}

// AnalyzeAudio runs AI-voice analysis on a combined audio payload.
func (e *Engine) AnalyzeAudio(ctx context.Context, audio []byte, mimeType string) (*oracle.AudioVerdict, error) {
	log.Printf("Starting audio analysis for AI voice detection (%d bytes)", len(audio))
	return e.client.AnalyzeAudio(ctx, audio, mimeType)
}

// ScreenshotReport is the outcome of a comprehensive screenshot analysis.
type ScreenshotReport struct {
	Status           oracle.Status                    `json:"status"`
	Error            string                           `json:"error,omitempty"`
	OverallVerdict   string                           `json:"overall_verdict"`
	ConfidenceScore  float64                          `json:"confidence_score"`
	Categories       map[string]oracle.CategoryResult `json:"analysis_by_category,omitempty"`
	CriticalFindings []string                         `json:"critical_findings,omitempty"`
	Recommendation   string                           `json:"recommendation,omitempty"`
	RawVerdict       string                           `json:"raw_verdict,omitempty"`
}

// AnalyzeScreenshot runs the comprehensive analysis and applies the weighted
// scorer to the per-category breakdown.
func (e *Engine) AnalyzeScreenshot(ctx context.Context, image []byte) *ScreenshotReport {
	log.Println("Starting comprehensive screenshot analysis")

	verdict, err := e.client.AnalyzeComprehensive(ctx, image)
	if err != nil {
		log.Printf("Screenshot analysis failed: %v", err)
		return &ScreenshotReport{Status: oracle.StatusError, Error: err.Error(), OverallVerdict: "error"}
	}
	if verdict.Status == oracle.StatusError {
		log.Printf("Classifier analysis error: %s", verdict.Error)
		return &ScreenshotReport{Status: oracle.StatusError, Error: verdict.Error, OverallVerdict: "error"}
	}

	score := ComprehensiveScore(verdict)
	report := &ScreenshotReport{
		Status:           oracle.StatusSuccess,
		OverallVerdict:   VerdictFromScore(score),
		ConfidenceScore:  score,
		Categories:       verdict.Categories,
		CriticalFindings: verdict.CriticalFindings,
		Recommendation:   verdict.Recommendation,
		RawVerdict:       verdict.OverallVerdict,
	}

	log.Printf("Screenshot analysis complete: %s (confidence: %.2f)", report.OverallVerdict, score)
	return report
}

// ComprehensiveScore computes the weighted suspicion score from a category
// breakdown. Every matched category accrues its weight; only suspicious
// categories contribute confidence to the numerator. Without any matched
// category the classifier's own overall score is returned.
func ComprehensiveScore(v *oracle.ScreenshotVerdict) float64 {
	if len(v.Categories) == 0 {
		return v.ConfidenceScore
	}

	totalScore := 0.0
	totalWeight := 0.0
	for category, weight := range comprehensiveWeights {
		cat, ok := v.Categories[category]
		if !ok {
			continue
		}
		if cat.Suspicious {
			totalScore += cat.Confidence * weight
		}
		totalWeight += weight
	}

	if totalWeight > 0 {
		return totalScore / totalWeight
	}
	return v.ConfidenceScore
}

// VerdictFromScore maps a weighted score onto the fixed verdict breakpoints.
func VerdictFromScore(score float64) string {
	switch {
	case score >= 0.8:
		return "deepfake_detected"
	case score >= 0.5:
		return "suspicious"
	default:
		return "likely_authentic"
	}
}

// ShouldTriggerAlert decides whether accumulated video results warrant a
// real-time alert. Pure over the snapshot; ordering does not matter.
func (e *Engine) ShouldTriggerAlert(results []Result) bool {
	if len(results) == 0 {
		return false
	}

	suspiciousCount := 0
	for _, r := range results {
		if r.Status == oracle.StatusSuccess && r.IsSuspicious && r.Confidence > e.confidenceThreshold {
			suspiciousCount++
		}
	}

	ratio := float64(suspiciousCount) / float64(len(results))
	return ratio >= e.videoAlertRatio
}

// ShouldTriggerAudioAlert decides whether accumulated audio results warrant
// an AI-voice alert.
func (e *Engine) ShouldTriggerAudioAlert(results []Result) bool {
	if len(results) == 0 {
		return false
	}

	aiCount := 0
	for _, r := range results {
		if r.Status == oracle.StatusSuccess && r.IsAIGenerated && r.Confidence > e.confidenceThreshold {
			aiCount++
		}
	}

	ratio := float64(aiCount) / float64(len(results))
	return ratio >= e.audioAlertRatio
}

// SuspiciousCount counts results the classifier flagged suspicious,
// regardless of confidence. Used for stream statistics.
func SuspiciousCount(results []Result) int {
	count := 0
	for _, r := range results {
		if r.IsSuspicious {
			count++
		}
	}
	return count
}
