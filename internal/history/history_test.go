package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/panel.preview/internal/payload"
	"github.com/banshee-data/panel.preview/internal/timeutil"
)

func testStore(capacity int) (*Store, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return NewStore(capacity, clock), clock
}

func TestRecordAndSamples(t *testing.T) {
	s, clock := testStore(10)

	s.Record("p1", "temperature", 70)
	clock.Advance(time.Second)
	s.Record("p1", "temperature", 71)
	clock.Advance(time.Second)
	s.Record("p1", "temperature", 72)

	samples := s.Samples("p1", "temperature")
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	values := []float64{samples[0].Value, samples[1].Value, samples[2].Value}
	if diff := cmp.Diff([]float64{70, 71, 72}, values); diff != "" {
		t.Errorf("samples out of order (-want +got):\n%s", diff)
	}
	if !samples[1].At.After(samples[0].At) {
		t.Error("timestamps should advance with the clock")
	}
}

func TestRingEvictsOldest(t *testing.T) {
	s, _ := testStore(3)

	for i := 0; i < 5; i++ {
		s.Record("p1", "t", float64(i))
	}
	samples := s.Samples("p1", "t")
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want capacity 3", len(samples))
	}
	values := []float64{samples[0].Value, samples[1].Value, samples[2].Value}
	if diff := cmp.Diff([]float64{2, 3, 4}, values); diff != "" {
		t.Errorf("ring should keep newest samples (-want +got):\n%s", diff)
	}
}

func TestRecordReadings(t *testing.T) {
	s, _ := testStore(10)

	readings := []payload.Reading{
		{Tag: "temperature", Value: json.Number("72.5")},
		{Tag: "label", Value: "booting"},
		{Tag: "neopixel", Value: "#FF8800", IsColor: true},
		{Tag: "humidity", Value: json.Number("45")},
	}
	n := s.RecordReadings("p1", readings)
	if n != 2 {
		t.Errorf("recorded %d readings, want 2 numeric", n)
	}
	if got := s.Tags("p1"); len(got) != 2 || got[0] != "humidity" || got[1] != "temperature" {
		t.Errorf("Tags = %v, want [humidity temperature]", got)
	}
	if samples := s.Samples("p1", "label"); samples != nil {
		t.Errorf("non-numeric reading should not be sampled, got %v", samples)
	}
}

func TestStats(t *testing.T) {
	s, _ := testStore(10)
	for _, v := range []float64{10, 20, 30, 40} {
		s.Record("p1", "t", v)
	}
	st := s.Stats("p1", "t")
	if st.Count != 4 || st.Min != 10 || st.Max != 40 || st.Mean != 25 {
		t.Errorf("Stats = %+v, want count 4, min 10, max 40, mean 25", st)
	}
	if st.StdDev <= 0 {
		t.Errorf("StdDev = %v, want positive", st.StdDev)
	}
}

func TestStatsEmptyAndSingle(t *testing.T) {
	s, _ := testStore(10)
	if st := s.Stats("p1", "missing"); st.Count != 0 {
		t.Errorf("empty ring Stats = %+v, want zero", st)
	}
	s.Record("p1", "t", 5)
	st := s.Stats("p1", "t")
	if st.Count != 1 || st.StdDev != 0 {
		t.Errorf("single sample Stats = %+v, want count 1, stddev 0", st)
	}
}

func TestSuggestRange(t *testing.T) {
	tests := []struct {
		name   string
		st     Stats
		wantLo float64
		wantHi float64
	}{
		{"empty", Stats{}, 0, 1},
		{"spread", Stats{Count: 3, Min: 10, Max: 20}, 9, 21},
		{"flat nonzero", Stats{Count: 2, Min: 50, Max: 50}, 45, 55},
		{"flat zero", Stats{Count: 2, Min: 0, Max: 0}, -0.1, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := SuggestRange(tt.st)
			if lo != tt.wantLo || hi != tt.wantHi {
				t.Errorf("SuggestRange(%+v) = (%v,%v), want (%v,%v)", tt.st, lo, hi, tt.wantLo, tt.wantHi)
			}
		})
	}
}

func TestReset(t *testing.T) {
	s, _ := testStore(10)
	s.Record("p1", "t", 1)
	s.Record("p2", "t", 2)
	s.Reset("p1")
	if s.Samples("p1", "t") != nil {
		t.Error("reset panel should have no samples")
	}
	if len(s.Samples("p2", "t")) != 1 {
		t.Error("other panels must keep their samples")
	}
}
