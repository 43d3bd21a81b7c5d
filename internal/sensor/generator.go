// Package sensor produces the synthetic flex readings pushed to realtime viewers.
package sensor

import (
	"math/rand"
	"sync"
	"time"

	"glove-backend/internal/aggregator"
	"glove-backend/internal/models"
)

// Source yields the channel values for one tick.
type Source interface {
	Sample(now time.Time) models.SensorSample
}

// RandomSource draws each channel uniformly from [FlexMin, FlexMax].
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource wraps rng. A nil rng gets a time-seeded generator.
func NewRandomSource(rng *rand.Rand) *RandomSource {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomSource{rng: rng}
}

func (s *RandomSource) Sample(now time.Time) models.SensorSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := models.FlexMax - models.FlexMin + 1
	return models.SensorSample{
		Thumb:     models.FlexMin + s.rng.Intn(span),
		Index:     models.FlexMin + s.rng.Intn(span),
		Middle:    models.FlexMin + s.rng.Intn(span),
		Ring:      models.FlexMin + s.rng.Intn(span),
		Pinky:     models.FlexMin + s.rng.Intn(span),
		Timestamp: now.UnixMilli(),
	}
}

// HardwareSource prefers the freshest hardware glove reading and falls back
// to another source when no glove has reported within staleAfter.
type HardwareSource struct {
	buffer     *aggregator.SensorBuffer
	staleAfter time.Duration
	fallback   Source
}

func NewHardwareSource(buffer *aggregator.SensorBuffer, staleAfter time.Duration, fallback Source) *HardwareSource {
	return &HardwareSource{buffer: buffer, staleAfter: staleAfter, fallback: fallback}
}

func (s *HardwareSource) Sample(now time.Time) models.SensorSample {
	if sample, ok := s.buffer.Latest(now, s.staleAfter); ok {
		sample.Timestamp = now.UnixMilli()
		return sample
	}
	return s.fallback.Sample(now)
}

// Generator produces one SensorSample per call, stamped with the current time.
type Generator struct {
	source Source
	now    func() time.Time
}

func NewGenerator(source Source) *Generator {
	return &Generator{source: source, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Next returns a fresh sample with every channel inside the flex range.
func (g *Generator) Next() models.SensorSample {
	return g.source.Sample(g.now()).Clamped()
}
