package services

import (
	"context"
	"log/slog"
	"time"

	"glove-backend/internal/models"
)

// SampleGenerator yields one sensor sample per tick.
type SampleGenerator interface {
	Next() models.SensorSample
}

// Broadcaster is the realtime registry the loop feeds.
type Broadcaster interface {
	Count() int
	Broadcast(sample models.SensorSample) (sent, skipped int)
}

// SampleMirror receives every broadcast sample, e.g. the MQTT publisher.
// It must not block.
type SampleMirror interface {
	MirrorSample(sample models.SensorSample)
}

// TickObserver counts broadcast ticks. *metrics.Metrics satisfies it.
type TickObserver interface {
	BroadcastTick()
}

// BroadcastService drives the generator at a fixed period and pushes each
// sample to every realtime viewer. Ticks with no viewers produce nothing.
type BroadcastService struct {
	generator   SampleGenerator
	broadcaster Broadcaster
	mirror      SampleMirror
	observer    TickObserver
	interval    time.Duration
	logger      *slog.Logger
}

// BroadcastServiceConfig holds the optional collaborators of BroadcastService.
type BroadcastServiceConfig struct {
	Interval time.Duration
	Mirror   SampleMirror // nil disables mirroring
	Observer TickObserver // nil disables tick counting
}

// DefaultBroadcastInterval is the generator period.
const DefaultBroadcastInterval = 500 * time.Millisecond

func NewBroadcastService(generator SampleGenerator, broadcaster Broadcaster, config BroadcastServiceConfig, logger *slog.Logger) *BroadcastService {
	interval := config.Interval
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	return &BroadcastService{
		generator:   generator,
		broadcaster: broadcaster,
		mirror:      config.Mirror,
		observer:    config.Observer,
		interval:    interval,
		logger:      logger,
	}
}

// Start runs the tick loop until ctx is cancelled.
func (bs *BroadcastService) Start(ctx context.Context) {
	bs.logger.Info("broadcast_loop_started", "interval", bs.interval)

	ticker := time.NewTicker(bs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bs.logger.Info("broadcast_loop_stopped")
			return
		case <-ticker.C:
			bs.Tick()
		}
	}
}

// Tick performs one generator step. It reports whether a sample was produced.
func (bs *BroadcastService) Tick() bool {
	if bs.broadcaster.Count() == 0 {
		return false
	}

	sample := bs.generator.Next()
	sent, skipped := bs.broadcaster.Broadcast(sample)

	if bs.mirror != nil {
		bs.mirror.MirrorSample(sample)
	}
	if bs.observer != nil {
		bs.observer.BroadcastTick()
	}
	bs.logger.Debug("broadcast_tick", "timestamp", sample.Timestamp, "sent", sent, "skipped", skipped)
	return true
}
