package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	quickCalls         int
	comprehensiveCalls int
	audioCalls         int

	frame *FrameVerdict
	shot  *ScreenshotVerdict
	audio *AudioVerdict
	err   error
}

func (c *countingClient) AnalyzeComprehensive(ctx context.Context, image []byte) (*ScreenshotVerdict, error) {
	c.comprehensiveCalls++
	return c.shot, c.err
}

func (c *countingClient) AnalyzeQuick(ctx context.Context, image []byte) (*FrameVerdict, error) {
	c.quickCalls++
	return c.frame, c.err
}

func (c *countingClient) AnalyzeAudio(ctx context.Context, audio []byte, mimeType string) (*AudioVerdict, error) {
	c.audioCalls++
	return c.audio, c.err
}

func TestCachingClientDeduplicatesIdenticalPayloads(t *testing.T) {
	inner := &countingClient{frame: &FrameVerdict{Status: StatusSuccess, IsSuspicious: true, Confidence: 0.9}}
	client, err := NewCachingClient(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("same-frame")

	first, err := client.AnalyzeQuick(ctx, payload)
	require.NoError(t, err)
	second, err := client.AnalyzeQuick(ctx, payload)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.quickCalls)
	assert.Equal(t, first, second)
}

func TestCachingClientSeparatesModes(t *testing.T) {
	inner := &countingClient{
		frame: &FrameVerdict{Status: StatusSuccess},
		shot:  &ScreenshotVerdict{Status: StatusSuccess},
	}
	client, err := NewCachingClient(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("same-bytes")

	_, err = client.AnalyzeQuick(ctx, payload)
	require.NoError(t, err)
	_, err = client.AnalyzeComprehensive(ctx, payload)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.quickCalls)
	assert.Equal(t, 1, inner.comprehensiveCalls)
}

func TestCachingClientSkipsErrorVerdicts(t *testing.T) {
	inner := &countingClient{frame: &FrameVerdict{Status: StatusError, Error: "model overloaded"}}
	client, err := NewCachingClient(inner, 16)
	require.NoError(t, err)

	ctx := context.Background()
	payload := []byte("frame")

	_, err = client.AnalyzeQuick(ctx, payload)
	require.NoError(t, err)
	_, err = client.AnalyzeQuick(ctx, payload)
	require.NoError(t, err)

	// Error verdicts are never cached, so the classifier is retried.
	assert.Equal(t, 2, inner.quickCalls)
}

func TestCachingClientPassesThroughTransportErrors(t *testing.T) {
	inner := &countingClient{err: context.DeadlineExceeded}
	client, err := NewCachingClient(inner, 16)
	require.NoError(t, err)

	_, err = client.AnalyzeAudio(context.Background(), []byte("chunk"), "audio/webm")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.audioCalls)
}

func TestFingerprintIncludesMode(t *testing.T) {
	payload := []byte("payload")
	assert.NotEqual(t, fingerprint(payload, ModeQuick), fingerprint(payload, ModeAudio))
	assert.Equal(t, fingerprint(payload, ModeQuick), fingerprint([]byte("payload"), ModeQuick))
}
