package aggregator

import (
	"log/slog"
	"sync"
	"time"

	"glove-backend/internal/models"
)

// GloveState holds the latest flex reading for a hardware glove
type GloveState struct {
	DeviceID   string
	LastSample models.SensorSample
	LastSeen   time.Time
}

// SensorBuffer keeps the most recent reading per hardware glove
type SensorBuffer struct {
	mu     sync.RWMutex
	gloves map[string]*GloveState
	logger *slog.Logger
}

// NewSensorBuffer creates an empty buffer
func NewSensorBuffer(logger *slog.Logger) *SensorBuffer {
	return &SensorBuffer{
		gloves: make(map[string]*GloveState),
		logger: logger,
	}
}

// Update stores a reading, replacing the previous one for the same glove.
// It reports whether the glove was seen for the first time.
func (sb *SensorBuffer) Update(reading *models.GloveReading) bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	state, exists := sb.gloves[reading.DeviceID]
	if !exists {
		state = &GloveState{DeviceID: reading.DeviceID}
		sb.gloves[reading.DeviceID] = state
		sb.logger.Info("glove_first_seen", "device_id", reading.DeviceID)
	}
	state.LastSample = reading.Sample.Clamped()
	state.LastSeen = reading.ReceivedAt
	return !exists
}

// Latest returns the freshest reading across all gloves seen within staleAfter of now.
func (sb *SensorBuffer) Latest(now time.Time, staleAfter time.Duration) (models.SensorSample, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	var best *GloveState
	for _, state := range sb.gloves {
		if now.Sub(state.LastSeen) > staleAfter {
			continue
		}
		if best == nil || state.LastSeen.After(best.LastSeen) {
			best = state
		}
	}
	if best == nil {
		return models.SensorSample{}, false
	}
	return best.LastSample, true
}
