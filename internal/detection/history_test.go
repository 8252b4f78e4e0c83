package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stream-verification/internal/oracle"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)

	for i := 0; i < 4; i++ {
		h.Append(Result{Status: oracle.StatusSuccess, Confidence: float64(i)})
	}

	assert.Equal(t, 3, h.Len())

	snapshot := h.Snapshot()
	assert.Equal(t, 1.0, snapshot[0].Confidence)
	assert.Equal(t, 2.0, snapshot[1].Confidence)
	assert.Equal(t, 3.0, snapshot[2].Confidence)
}

func TestHistoryPreservesOrderBelowCapacity(t *testing.T) {
	h := NewHistory(10)

	h.Append(Result{Confidence: 0.1})
	h.Append(Result{Confidence: 0.2})

	snapshot := h.Snapshot()
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 0.1, snapshot[0].Confidence)
	assert.Equal(t, 0.2, snapshot[1].Confidence)
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory(5)
	h.Append(Result{Confidence: 0.5})
	h.Append(Result{Confidence: 0.6})

	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Snapshot())
}

func TestHistoryZeroCapacityClampsToOne(t *testing.T) {
	h := NewHistory(0)
	h.Append(Result{Confidence: 0.1})
	h.Append(Result{Confidence: 0.2})

	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0.2, h.Snapshot()[0].Confidence)
}
