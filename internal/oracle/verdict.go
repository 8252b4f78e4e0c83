package oracle

import (
	"encoding/json"
	"strings"
)

// Status discriminates every verdict kind.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Mode selects the analysis the classifier performs on a payload.
type Mode string

const (
	ModeQuick         Mode = "quick"
	ModeComprehensive Mode = "comprehensive"
	ModeAudio         Mode = "audio"
)

// CategoryResult is one category entry of a comprehensive analysis.
type CategoryResult struct {
	Suspicious bool     `json:"suspicious"`
	Confidence float64  `json:"confidence"`
	Findings   []string `json:"findings,omitempty"`
}

// FrameVerdict is the classifier's quick verdict for a single video frame.
type FrameVerdict struct {
	Status       Status   `json:"status"`
	Error        string   `json:"error,omitempty"`
	IsSuspicious bool     `json:"is_suspicious"`
	Confidence   float64  `json:"confidence"`
	Findings     []string `json:"findings,omitempty"`
	AnomalyTypes []string `json:"anomaly_types,omitempty"`
	FrameQuality string   `json:"frame_quality,omitempty"`
}

// ScreenshotVerdict is the classifier's comprehensive verdict for a screenshot,
// including the per-category breakdown consumed by the weighted scorer.
type ScreenshotVerdict struct {
	Status           Status                    `json:"status"`
	Error            string                    `json:"error,omitempty"`
	OverallVerdict   string                    `json:"overall_verdict,omitempty"`
	ConfidenceScore  float64                   `json:"confidence_score"`
	Categories       map[string]CategoryResult `json:"analysis_by_category,omitempty"`
	CriticalFindings []string                  `json:"critical_findings,omitempty"`
	Recommendation   string                    `json:"recommendation,omitempty"`
}

// AudioVerdict is the classifier's verdict for a buffered audio payload.
type AudioVerdict struct {
	Status         Status   `json:"status"`
	Error          string   `json:"error,omitempty"`
	IsAIGenerated  bool     `json:"is_ai_generated"`
	IsSuspicious   bool     `json:"is_suspicious"`
	Confidence     float64  `json:"confidence"`
	Findings       []string `json:"findings,omitempty"`
	AnomalyTypes   []string `json:"anomaly_types,omitempty"`
	VoiceQuality   string   `json:"voice_quality,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Wire shapes as the classifier returns them. Each decode is defensive: a body
// that is not valid JSON degrades to a keyword-scan verdict instead of failing
// past this boundary.

type frameWire struct {
	Error        string   `json:"error"`
	IsSuspicious bool     `json:"is_suspicious"`
	Confidence   float64  `json:"confidence"`
	Findings     []string `json:"findings"`
	AnomalyTypes []string `json:"anomaly_types"`
	FrameQuality string   `json:"frame_quality"`
}

type screenshotWire struct {
	Error            string                    `json:"error"`
	OverallVerdict   string                    `json:"overall_verdict"`
	ConfidenceScore  *float64                  `json:"confidence_score"`
	Categories       map[string]CategoryResult `json:"analysis_by_category"`
	CriticalFindings []string                  `json:"critical_findings"`
	Recommendation   string                    `json:"recommendation"`
}

type audioWire struct {
	Error          string   `json:"error"`
	IsAIGenerated  bool     `json:"is_ai_generated"`
	IsSuspicious   bool     `json:"is_suspicious"`
	Confidence     float64  `json:"confidence"`
	Findings       []string `json:"findings"`
	AnomalyTypes   []string `json:"anomaly_types"`
	VoiceQuality   string   `json:"voice_quality"`
	Recommendation string   `json:"recommendation"`
}

// keywordSuspicious is the parse-failure fallback: the raw classifier text is
// scanned for verdict keywords and the result carries confidence 0.5.
func keywordSuspicious(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "deepfake") || strings.Contains(lower, "suspicious")
}

func decodeFrameVerdict(body []byte) *FrameVerdict {
	var wire frameWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return &FrameVerdict{
			Status:       StatusSuccess,
			IsSuspicious: keywordSuspicious(body),
			Confidence:   0.5,
		}
	}
	if wire.Error != "" {
		return &FrameVerdict{Status: StatusError, Error: wire.Error}
	}
	return &FrameVerdict{
		Status:       StatusSuccess,
		IsSuspicious: wire.IsSuspicious,
		Confidence:   wire.Confidence,
		Findings:     wire.Findings,
		AnomalyTypes: wire.AnomalyTypes,
		FrameQuality: wire.FrameQuality,
	}
}

func decodeScreenshotVerdict(body []byte) *ScreenshotVerdict {
	var wire screenshotWire
	if err := json.Unmarshal(body, &wire); err != nil {
		verdict := "unknown"
		if keywordSuspicious(body) {
			verdict = "suspicious"
		}
		return &ScreenshotVerdict{
			Status:          StatusSuccess,
			OverallVerdict:  verdict,
			ConfidenceScore: 0.5,
		}
	}
	if wire.Error != "" {
		return &ScreenshotVerdict{Status: StatusError, Error: wire.Error}
	}
	// Missing overall score defaults to 0.5 so the scorer's fallback stays sane.
	score := 0.5
	if wire.ConfidenceScore != nil {
		score = *wire.ConfidenceScore
	}
	return &ScreenshotVerdict{
		Status:           StatusSuccess,
		OverallVerdict:   wire.OverallVerdict,
		ConfidenceScore:  score,
		Categories:       wire.Categories,
		CriticalFindings: wire.CriticalFindings,
		Recommendation:   wire.Recommendation,
	}
}

func decodeAudioVerdict(body []byte) *AudioVerdict {
	var wire audioWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return &AudioVerdict{
			Status:       StatusSuccess,
			IsSuspicious: keywordSuspicious(body),
			Confidence:   0.5,
		}
	}
	if wire.Error != "" {
		return &AudioVerdict{Status: StatusError, Error: wire.Error}
	}
	return &AudioVerdict{
		Status:         StatusSuccess,
		IsAIGenerated:  wire.IsAIGenerated,
		IsSuspicious:   wire.IsSuspicious,
		Confidence:     wire.Confidence,
		Findings:       wire.Findings,
		AnomalyTypes:   wire.AnomalyTypes,
		VoiceQuality:   wire.VoiceQuality,
		Recommendation: wire.Recommendation,
	}
}
