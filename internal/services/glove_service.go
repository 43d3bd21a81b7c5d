package services

import (
	"context"
	"log/slog"
	"time"

	"glove-backend/internal/models"
)

// ReadingBuffer keeps the latest reading per glove. *aggregator.SensorBuffer
// satisfies it.
type ReadingBuffer interface {
	Update(reading *models.GloveReading) bool
}

// GloveRegistry persists glove presence. *database.ClickHouseDB satisfies it.
type GloveRegistry interface {
	UpsertGlove(ctx context.Context, glove *models.Glove) error
}

// GloveService consumes hardware glove readings from the MQTT subscriber,
// buffers them for the generator and keeps the glove registry current.
type GloveService struct {
	buffer   ReadingBuffer
	registry GloveRegistry
	logger   *slog.Logger

	// Input channel from the MQTT subscriber
	GloveChan chan *models.GloveReading

	// registeredAt remembers the first sighting of each glove.
	registeredAt map[string]time.Time
}

// DefaultGloveChannelSize bounds the subscriber to service channel.
const DefaultGloveChannelSize = 100

// NewGloveService creates a glove ingest service. registry may be nil.
func NewGloveService(buffer ReadingBuffer, registry GloveRegistry, channelSize int, logger *slog.Logger) *GloveService {
	if channelSize <= 0 {
		channelSize = DefaultGloveChannelSize
	}
	return &GloveService{
		buffer:       buffer,
		registry:     registry,
		logger:       logger,
		GloveChan:    make(chan *models.GloveReading, channelSize),
		registeredAt: make(map[string]time.Time),
	}
}

// Start processes readings until ctx is cancelled or the channel is closed.
func (gs *GloveService) Start(ctx context.Context) {
	gs.logger.Info("glove_ingest_started")

	for {
		select {
		case <-ctx.Done():
			gs.logger.Info("glove_ingest_stopped")
			return
		case reading, ok := <-gs.GloveChan:
			if !ok {
				gs.logger.Info("glove_ingest_stopped", "reason", "channel closed")
				return
			}
			gs.process(ctx, reading)
		}
	}
}

func (gs *GloveService) process(ctx context.Context, reading *models.GloveReading) {
	gs.buffer.Update(reading)
	gs.registerGlove(ctx, reading)
}

// registerGlove upserts the glove on every reading; best effort.
func (gs *GloveService) registerGlove(ctx context.Context, reading *models.GloveReading) {
	if gs.registry == nil {
		return
	}

	registeredAt, ok := gs.registeredAt[reading.DeviceID]
	if !ok {
		registeredAt = reading.ReceivedAt
		gs.registeredAt[reading.DeviceID] = registeredAt
	}

	glove := &models.Glove{
		DeviceID:     reading.DeviceID,
		RegisteredAt: registeredAt,
		LastSeen:     reading.ReceivedAt,
		IsActive:     true,
	}
	if err := gs.registry.UpsertGlove(ctx, glove); err != nil {
		gs.logger.Warn("glove_register_failed", "device_id", reading.DeviceID, "error", err)
	}
}
