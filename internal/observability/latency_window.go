package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

type CommandLatencyStats struct {
	Command string  `json:"command"`
	Samples int     `json:"samples"`
	LastMS  float64 `json:"last_ms"`
	AvgMS   float64 `json:"avg_ms"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	P99MS   float64 `json:"p99_ms"`
}

type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

type CommandLatencySnapshot struct {
	GeneratedAt time.Time             `json:"generated_at"`
	WindowSize  int                   `json:"window_size"`
	Commands    []CommandLatencyStats `json:"commands"`
	Failures    []OutcomeCount        `json:"failures,omitempty"`
}

// commandLatencyWindow keeps the last maxSamples handling times per command
// in a ring buffer.
type commandLatencyWindow struct {
	mu         sync.RWMutex
	maxSamples int
	commands   map[string]*latencyRing
	outcomes   map[string]int
}

type latencyRing struct {
	values []float64
	next   int
	filled bool
	last   float64
}

func newCommandLatencyWindow(maxSamples int) *commandLatencyWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &commandLatencyWindow{
		maxSamples: maxSamples,
		commands:   make(map[string]*latencyRing),
		outcomes:   make(map[string]int),
	}
}

func (w *commandLatencyWindow) Observe(command string, ms float64) {
	if command == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	ring, ok := w.commands[command]
	if !ok {
		ring = &latencyRing{values: make([]float64, w.maxSamples)}
		w.commands[command] = ring
	}
	ring.values[ring.next] = ms
	ring.last = ms
	ring.next++
	if ring.next >= len(ring.values) {
		ring.next = 0
		ring.filled = true
	}
}

func (w *commandLatencyWindow) ObserveOutcome(outcome string) {
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outcomes[outcome]++
}

func (w *commandLatencyWindow) Snapshot() CommandLatencySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.commands))
	for name := range w.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make([]CommandLatencyStats, 0, len(names))
	for _, name := range names {
		ring := w.commands[name]
		n := ring.next
		if ring.filled {
			n = len(ring.values)
		}
		if n == 0 {
			continue
		}
		samples := append([]float64(nil), ring.values[:n]...)
		sort.Float64s(samples)
		sum := 0.0
		for _, v := range samples {
			sum += v
		}
		stats = append(stats, CommandLatencyStats{
			Command: name,
			Samples: n,
			LastMS:  round2(ring.last),
			AvgMS:   round2(sum / float64(n)),
			P50MS:   round2(quantile(samples, 0.50)),
			P95MS:   round2(quantile(samples, 0.95)),
			P99MS:   round2(quantile(samples, 0.99)),
		})
	}

	outcomes := make([]string, 0, len(w.outcomes))
	for o := range w.outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	failures := make([]OutcomeCount, 0, len(outcomes))
	for _, o := range outcomes {
		failures = append(failures, OutcomeCount{Outcome: o, Count: w.outcomes[o]})
	}

	return CommandLatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Commands:    stats,
		Failures:    failures,
	}
}

func (w *commandLatencyWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.commands = make(map[string]*latencyRing)
	w.outcomes = make(map[string]int)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
