package detection

import "stream-verification/internal/oracle"

// Result is one normalized classifier verdict retained for alert evaluation.
type Result struct {
	Status        oracle.Status
	IsSuspicious  bool
	IsAIGenerated bool
	Confidence    float64
	Findings      []string
	AnomalyTypes  []string
}

// ResultFromFrame normalizes a quick frame verdict.
func ResultFromFrame(v *oracle.FrameVerdict) Result {
	return Result{
		Status:       v.Status,
		IsSuspicious: v.IsSuspicious,
		Confidence:   v.Confidence,
		Findings:     v.Findings,
		AnomalyTypes: v.AnomalyTypes,
	}
}

// ResultFromAudio normalizes an audio verdict.
func ResultFromAudio(v *oracle.AudioVerdict) Result {
	return Result{
		Status:        v.Status,
		IsSuspicious:  v.IsSuspicious,
		IsAIGenerated: v.IsAIGenerated,
		Confidence:    v.Confidence,
		Findings:      v.Findings,
		AnomalyTypes:  v.AnomalyTypes,
	}
}

// History is a fixed-capacity FIFO of analysis results. Appending past
// capacity evicts the oldest entry, so the cap invariant holds structurally.
// Not safe for concurrent use; each stream session owns exactly one and
// mutates it from its single connection goroutine.
type History struct {
	capacity int
	results  []Result
}

// NewHistory creates a history bounded to capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		results:  make([]Result, 0, capacity),
	}
}

// Append records a result, evicting the oldest entry at capacity.
func (h *History) Append(r Result) {
	if len(h.results) >= h.capacity {
		n := copy(h.results, h.results[1:])
		h.results = h.results[:n]
	}
	h.results = append(h.results, r)
}

// Len returns the number of retained results.
func (h *History) Len() int {
	return len(h.results)
}

// Snapshot returns the retained results in insertion order. The returned
// slice aliases internal storage and must not be retained across Appends.
func (h *History) Snapshot() []Result {
	return h.results
}

// Reset discards all retained results.
func (h *History) Reset() {
	h.results = h.results[:0]
}
