package detection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-verification/internal/oracle"
)

type fakeClient struct {
	frame     *oracle.FrameVerdict
	audio     *oracle.AudioVerdict
	shot      *oracle.ScreenshotVerdict
	err       error
	lastQuick []byte
	lastAudio []byte
	lastMime  string
}

func (f *fakeClient) AnalyzeComprehensive(ctx context.Context, image []byte) (*oracle.ScreenshotVerdict, error) {
	return f.shot, f.err
}

func (f *fakeClient) AnalyzeQuick(ctx context.Context, image []byte) (*oracle.FrameVerdict, error) {
	f.lastQuick = image
	return f.frame, f.err
}

func (f *fakeClient) AnalyzeAudio(ctx context.Context, audio []byte, mimeType string) (*oracle.AudioVerdict, error) {
	f.lastAudio = audio
	f.lastMime = mimeType
	return f.audio, f.err
}

func newTestEngine(client oracle.Client) *Engine {
	return NewEngine(client, 0.7, 0.3, 0.5)
}

func TestComprehensiveScore(t *testing.T) {
	tests := []struct {
		name     string
		verdict  *oracle.ScreenshotVerdict
		expected float64
	}{
		{
			name: "mixed categories weight only suspicious confidence",
			verdict: &oracle.ScreenshotVerdict{
				Categories: map[string]oracle.CategoryResult{
					"facial":   {Suspicious: true, Confidence: 0.9},
					"lighting": {Suspicious: false, Confidence: 0.3},
				},
			},
			// 0.9*0.20 over matched weight 0.20+0.15
			expected: 0.18 / 0.35,
		},
		{
			name: "all suspicious at full confidence",
			verdict: &oracle.ScreenshotVerdict{
				Categories: map[string]oracle.CategoryResult{
					"facial":     {Suspicious: true, Confidence: 1.0},
					"lighting":   {Suspicious: true, Confidence: 1.0},
					"texture":    {Suspicious: true, Confidence: 1.0},
					"boundaries": {Suspicious: true, Confidence: 1.0},
				},
			},
			expected: 1.0,
		},
		{
			name: "no categories falls back to classifier score",
			verdict: &oracle.ScreenshotVerdict{
				ConfidenceScore: 0.6,
			},
			expected: 0.6,
		},
		{
			name: "only unknown categories falls back to classifier score",
			verdict: &oracle.ScreenshotVerdict{
				ConfidenceScore: 0.45,
				Categories: map[string]oracle.CategoryResult{
					"hairline": {Suspicious: true, Confidence: 0.99},
				},
			},
			expected: 0.45,
		},
		{
			name: "nothing suspicious scores zero",
			verdict: &oracle.ScreenshotVerdict{
				ConfidenceScore: 0.9,
				Categories: map[string]oracle.CategoryResult{
					"facial":  {Suspicious: false, Confidence: 0.9},
					"texture": {Suspicious: false, Confidence: 0.8},
				},
			},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ComprehensiveScore(tt.verdict), 1e-9)
		})
	}
}

func TestVerdictFromScore(t *testing.T) {
	assert.Equal(t, "deepfake_detected", VerdictFromScore(0.95))
	assert.Equal(t, "deepfake_detected", VerdictFromScore(0.8))
	assert.Equal(t, "suspicious", VerdictFromScore(0.79))
	assert.Equal(t, "suspicious", VerdictFromScore(0.5))
	assert.Equal(t, "likely_authentic", VerdictFromScore(0.49))
	assert.Equal(t, "likely_authentic", VerdictFromScore(0.0))
}

func suspiciousResult(confidence float64) Result {
	return Result{Status: oracle.StatusSuccess, IsSuspicious: true, Confidence: confidence}
}

func cleanResult() Result {
	return Result{Status: oracle.StatusSuccess, Confidence: 0.9}
}

func TestShouldTriggerAlert(t *testing.T) {
	engine := newTestEngine(&fakeClient{})

	t.Run("empty history never alerts", func(t *testing.T) {
		assert.False(t, engine.ShouldTriggerAlert(nil))
	})

	t.Run("fires at exact ratio boundary", func(t *testing.T) {
		results := make([]Result, 0, 10)
		for i := 0; i < 3; i++ {
			results = append(results, suspiciousResult(0.8))
		}
		for i := 0; i < 7; i++ {
			results = append(results, cleanResult())
		}
		assert.True(t, engine.ShouldTriggerAlert(results))
	})

	t.Run("below ratio stays silent", func(t *testing.T) {
		results := []Result{
			suspiciousResult(0.8), suspiciousResult(0.9),
			cleanResult(), cleanResult(), cleanResult(),
			cleanResult(), cleanResult(), cleanResult(),
			cleanResult(), cleanResult(),
		}
		assert.False(t, engine.ShouldTriggerAlert(results))
	})

	t.Run("low confidence results do not count", func(t *testing.T) {
		results := []Result{
			suspiciousResult(0.7), suspiciousResult(0.65), suspiciousResult(0.5),
		}
		assert.False(t, engine.ShouldTriggerAlert(results))
	})

	t.Run("error results do not count", func(t *testing.T) {
		results := []Result{
			{Status: oracle.StatusError, IsSuspicious: true, Confidence: 0.99},
			{Status: oracle.StatusError, IsSuspicious: true, Confidence: 0.99},
			cleanResult(),
		}
		assert.False(t, engine.ShouldTriggerAlert(results))
	})

	t.Run("order does not matter", func(t *testing.T) {
		forward := []Result{suspiciousResult(0.9), cleanResult(), cleanResult()}
		backward := []Result{cleanResult(), cleanResult(), suspiciousResult(0.9)}
		assert.Equal(t, engine.ShouldTriggerAlert(forward), engine.ShouldTriggerAlert(backward))
	})
}

func TestShouldTriggerAudioAlert(t *testing.T) {
	engine := newTestEngine(&fakeClient{})

	aiResult := Result{Status: oracle.StatusSuccess, IsAIGenerated: true, Confidence: 0.8}

	t.Run("empty history never alerts", func(t *testing.T) {
		assert.False(t, engine.ShouldTriggerAudioAlert(nil))
	})

	t.Run("fires at half", func(t *testing.T) {
		results := []Result{aiResult, aiResult, cleanResult(), cleanResult()}
		assert.True(t, engine.ShouldTriggerAudioAlert(results))
	})

	t.Run("below half stays silent", func(t *testing.T) {
		results := []Result{aiResult, cleanResult(), cleanResult(), cleanResult()}
		assert.False(t, engine.ShouldTriggerAudioAlert(results))
	})

	t.Run("suspicious without ai flag does not count", func(t *testing.T) {
		results := []Result{suspiciousResult(0.9), suspiciousResult(0.9)}
		assert.False(t, engine.ShouldTriggerAudioAlert(results))
	})
}

func TestSuspiciousCount(t *testing.T) {
	results := []Result{
		suspiciousResult(0.2), // counted regardless of confidence
		suspiciousResult(0.9),
		cleanResult(),
		{Status: oracle.StatusError, IsSuspicious: true, Confidence: 0.9},
	}
	assert.Equal(t, 3, SuspiciousCount(results))
}

func TestAnalyzeFrameBatch(t *testing.T) {
	t.Run("empty batch is rejected", func(t *testing.T) {
		engine := newTestEngine(&fakeClient{})
		_, err := engine.AnalyzeFrameBatch(context.Background(), nil)
		require.ErrorIs(t, err, ErrNoFrames)
	})

	t.Run("submits only the latest frame", func(t *testing.T) {
		client := &fakeClient{frame: &oracle.FrameVerdict{Status: oracle.StatusSuccess}}
		engine := newTestEngine(client)

		frames := [][]byte{[]byte("old"), []byte("mid"), []byte("new")}
		verdict, err := engine.AnalyzeFrameBatch(context.Background(), frames)
		require.NoError(t, err)
		require.NotNil(t, verdict)
		assert.Equal(t, []byte("new"), client.lastQuick)
	})
}

func TestAnalyzeScreenshot(t *testing.T) {
	t.Run("weighted verdict from categories", func(t *testing.T) {
		client := &fakeClient{shot: &oracle.ScreenshotVerdict{
			Status:         oracle.StatusSuccess,
			OverallVerdict: "deepfake",
			Categories: map[string]oracle.CategoryResult{
				"facial":   {Suspicious: true, Confidence: 0.95},
				"lighting": {Suspicious: true, Confidence: 0.9},
			},
			CriticalFindings: []string{"inconsistent shadows"},
		}}
		engine := newTestEngine(client)

		report := engine.AnalyzeScreenshot(context.Background(), []byte("img"))
		require.Equal(t, oracle.StatusSuccess, report.Status)
		// (0.95*0.20 + 0.9*0.15) / 0.35
		assert.InDelta(t, 0.9285714, report.ConfidenceScore, 1e-6)
		assert.Equal(t, "deepfake_detected", report.OverallVerdict)
		assert.Equal(t, "deepfake", report.RawVerdict)
		assert.Equal(t, []string{"inconsistent shadows"}, report.CriticalFindings)
	})

	t.Run("classifier error becomes error report", func(t *testing.T) {
		client := &fakeClient{shot: &oracle.ScreenshotVerdict{
			Status: oracle.StatusError,
			Error:  "model overloaded",
		}}
		engine := newTestEngine(client)

		report := engine.AnalyzeScreenshot(context.Background(), []byte("img"))
		assert.Equal(t, oracle.StatusError, report.Status)
		assert.Equal(t, "model overloaded", report.Error)
		assert.Equal(t, "error", report.OverallVerdict)
	})

	t.Run("transport error becomes error report", func(t *testing.T) {
		client := &fakeClient{err: context.DeadlineExceeded}
		engine := newTestEngine(client)

		report := engine.AnalyzeScreenshot(context.Background(), []byte("img"))
		assert.Equal(t, oracle.StatusError, report.Status)
		assert.NotEmpty(t, report.Error)
	})
}
