// Package history keeps short in-memory rings of recent numeric samples per
// panel and tag, feeding the plotter-style previews and the debug charts.
// Nothing here is persisted; a restart starts the rings empty.
package history

import (
	"math"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/panel.preview/internal/payload"
	"github.com/banshee-data/panel.preview/internal/timeutil"
)

// DefaultCapacity matches the plotter screen's visible window.
const DefaultCapacity = 100

// Sample is one recorded numeric value.
type Sample struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Stats summarizes one tag's ring for axis suggestions and debug output.
type Stats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

type ring struct {
	buf  []Sample
	next int
	full bool
}

func (r *ring) push(s Sample) {
	r.buf[r.next] = s
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// ordered returns samples oldest first.
func (r *ring) ordered() []Sample {
	if !r.full {
		out := make([]Sample, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]Sample, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Store is safe for concurrent use: the serial feeder and payload push
// handler write while preview streams read.
type Store struct {
	mu       sync.RWMutex
	capacity int
	clock    timeutil.Clock
	panels   map[string]map[string]*ring
}

// NewStore creates a history store holding capacity samples per panel/tag
// pair. A nil clock uses wall time.
func NewStore(capacity int, clock timeutil.Clock) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Store{
		capacity: capacity,
		clock:    clock,
		panels:   make(map[string]map[string]*ring),
	}
}

// Record appends one sample, evicting the oldest when the ring is full.
func (s *Store) Record(panelID, tag string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, ok := s.panels[panelID]
	if !ok {
		tags = make(map[string]*ring)
		s.panels[panelID] = tags
	}
	r, ok := tags[tag]
	if !ok {
		r = &ring{buf: make([]Sample, s.capacity)}
		tags[tag] = r
	}
	r.push(Sample{At: s.clock.Now(), Value: value})
}

// RecordReadings samples every numeric reading from a decode pass and
// returns how many were recorded. Color readings and non-numeric values are
// skipped, not faulted.
func (s *Store) RecordReadings(panelID string, readings []payload.Reading) int {
	n := 0
	for _, r := range readings {
		if r.IsColor {
			continue
		}
		v := payload.CoerceFloat(r.Value, math.NaN())
		if math.IsNaN(v) {
			continue
		}
		s.Record(panelID, r.Tag, v)
		n++
	}
	return n
}

// Samples returns a tag's ring oldest first. The slice is a copy.
func (s *Store) Samples(panelID, tag string) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags, ok := s.panels[panelID]
	if !ok {
		return nil
	}
	r, ok := tags[tag]
	if !ok {
		return nil
	}
	return r.ordered()
}

// Tags lists the tags recorded for a panel, sorted for stable output.
func (s *Store) Tags(panelID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags, ok := s.panels[panelID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Stats summarizes a tag's ring. An empty ring returns the zero Stats.
func (s *Store) Stats(panelID, tag string) Stats {
	samples := s.Samples(panelID, tag)
	if len(samples) == 0 {
		return Stats{}
	}

	values := make([]float64, len(samples))
	for i, sample := range samples {
		values[i] = sample.Value
	}

	st := Stats{
		Count: len(values),
		Min:   values[0],
		Max:   values[0],
		Mean:  stat.Mean(values, nil),
	}
	for _, v := range values[1:] {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	if len(values) > 1 {
		st.StdDev = stat.StdDev(values, nil)
	}
	return st
}

// Reset drops all rings for a panel, e.g. after it is deleted.
func (s *Store) Reset(panelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.panels, panelID)
}

// SuggestRange pads a tag's observed span by 10% on each side to produce
// chart axis bounds that keep the trace off the frame edges. A flat trace
// pads around its magnitude; an empty ring suggests the unit range.
func SuggestRange(st Stats) (lo, hi float64) {
	if st.Count == 0 {
		return 0, 1
	}
	span := st.Max - st.Min
	if span == 0 {
		span = math.Abs(st.Max)
		if span == 0 {
			span = 1
		}
	}
	pad := span * 0.1
	return st.Min - pad, st.Max + pad
}
