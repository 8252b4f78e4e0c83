package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientAnalyzeQuick(t *testing.T) {
	var received analyzeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"is_suspicious": true, "confidence": 0.85, "findings": ["blended jawline"]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-key", "gemini-2.5-flash", 5*time.Second)
	verdict, err := client.AnalyzeQuick(context.Background(), []byte("frame-bytes"))
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, verdict.Status)
	assert.True(t, verdict.IsSuspicious)
	assert.Equal(t, 0.85, verdict.Confidence)
	assert.Equal(t, []string{"blended jawline"}, verdict.Findings)

	assert.Equal(t, ModeQuick, received.Mode)
	assert.Equal(t, "image/jpeg", received.MimeType)
	assert.Equal(t, "gemini-2.5-flash", received.Model)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("frame-bytes")), received.Data)
}

func TestHTTPClientAnalyzeAudioMimeType(t *testing.T) {
	var received analyzeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"is_ai_generated": true, "is_suspicious": true, "confidence": 0.92}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "gemini-2.5-flash", 5*time.Second)
	verdict, err := client.AnalyzeAudio(context.Background(), []byte("audio-bytes"), "audio/webm")
	require.NoError(t, err)

	assert.Equal(t, ModeAudio, received.Mode)
	assert.Equal(t, "audio/webm", received.MimeType)
	assert.True(t, verdict.IsAIGenerated)
	assert.Equal(t, 0.92, verdict.Confidence)
}

func TestHTTPClientNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "gemini-2.5-flash", 5*time.Second)
	_, err := client.AnalyzeQuick(context.Background(), []byte("frame"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPClientErrorBodyBecomesErrorVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "image too small"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "", "gemini-2.5-flash", 5*time.Second)
	verdict, err := client.AnalyzeComprehensive(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, StatusError, verdict.Status)
	assert.Equal(t, "image too small", verdict.Error)
}

func TestDecodeFallbackOnMalformedBody(t *testing.T) {
	t.Run("keyword match marks suspicious", func(t *testing.T) {
		verdict := decodeFrameVerdict([]byte("the image looks like a DEEPFAKE to me"))
		assert.Equal(t, StatusSuccess, verdict.Status)
		assert.True(t, verdict.IsSuspicious)
		assert.Equal(t, 0.5, verdict.Confidence)
	})

	t.Run("no keyword stays clean", func(t *testing.T) {
		verdict := decodeFrameVerdict([]byte("ordinary webcam footage"))
		assert.Equal(t, StatusSuccess, verdict.Status)
		assert.False(t, verdict.IsSuspicious)
		assert.Equal(t, 0.5, verdict.Confidence)
	})

	t.Run("screenshot fallback sets verdict text", func(t *testing.T) {
		verdict := decodeScreenshotVerdict([]byte("this screenshot is suspicious"))
		assert.Equal(t, StatusSuccess, verdict.Status)
		assert.Equal(t, "suspicious", verdict.OverallVerdict)
		assert.Equal(t, 0.5, verdict.ConfidenceScore)
	})

	t.Run("audio fallback", func(t *testing.T) {
		verdict := decodeAudioVerdict([]byte("not parseable"))
		assert.Equal(t, StatusSuccess, verdict.Status)
		assert.False(t, verdict.IsSuspicious)
		assert.Equal(t, 0.5, verdict.Confidence)
	})
}

func TestDecodeScreenshotDefaultsMissingScore(t *testing.T) {
	verdict := decodeScreenshotVerdict([]byte(`{"overall_verdict": "likely_authentic"}`))
	assert.Equal(t, StatusSuccess, verdict.Status)
	assert.Equal(t, 0.5, verdict.ConfidenceScore)

	verdict = decodeScreenshotVerdict([]byte(`{"overall_verdict": "authentic", "confidence_score": 0}`))
	assert.Equal(t, 0.0, verdict.ConfidenceScore)
}
