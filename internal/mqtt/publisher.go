package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"glove-backend/internal/models"
)

// Publisher mirrors broadcast samples and saved interpretations to MQTT
type Publisher struct {
	client mqtt.Client
	logger *slog.Logger

	// Input channels (read by publisher, written by the broadcast service and API)
	SampleChan         chan models.SensorSample
	InterpretationChan chan *models.InterpretationRecord

	sampleTopic         string
	interpretationTopic string
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	SampleTopic         string // e.g., "glove-backend/simulated/flex"
	InterpretationTopic string // e.g., "glove-backend/interpretations"
	ChannelSize         int
}

// NewPublisher creates a new MQTT publisher with its own input channels
func NewPublisher(client mqtt.Client, config PublisherConfig, logger *slog.Logger) *Publisher {
	size := config.ChannelSize
	if size <= 0 {
		size = 50
	}
	return &Publisher{
		client:              client,
		logger:              logger,
		SampleChan:          make(chan models.SensorSample, size),
		InterpretationChan:  make(chan *models.InterpretationRecord, size),
		sampleTopic:         config.SampleTopic,
		interpretationTopic: config.InterpretationTopic,
	}
}

// MirrorSample queues sample for publishing without blocking the caller.
func (p *Publisher) MirrorSample(sample models.SensorSample) {
	select {
	case p.SampleChan <- sample:
	default:
		p.logger.Debug("mqtt_sample_mirror_dropped")
	}
}

// InterpretationSaved queues rec for publishing without blocking the caller.
func (p *Publisher) InterpretationSaved(rec *models.InterpretationRecord) {
	select {
	case p.InterpretationChan <- rec:
	default:
		p.logger.Warn("mqtt_interpretation_mirror_dropped", "id", rec.ID)
	}
}

// Start publishes from the channels until ctx is cancelled
func (p *Publisher) Start(ctx context.Context) {
	p.logger.Info("mqtt_publisher_started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("mqtt_publisher_stopped")
			return

		case sample := <-p.SampleChan:
			if err := p.publish(p.sampleTopic, 0, sample); err != nil {
				p.logPublishError(p.sampleTopic, err)
			}

		case rec := <-p.InterpretationChan:
			if err := p.publish(p.interpretationTopic, 1, rec); err != nil {
				p.logPublishError(p.interpretationTopic, err)
				continue
			}
			p.logger.Debug("mqtt_interpretation_published", "id", rec.ID)
		}
	}
}

var errNotConnected = errors.New("broker not connected")

// logPublishError keeps a broker outage from logging a warning every tick.
func (p *Publisher) logPublishError(topic string, err error) {
	if errors.Is(err, errNotConnected) {
		p.logger.Debug("mqtt_publish_skipped", "topic", topic, "error", err)
		return
	}
	p.logger.Warn("mqtt_publish_failed", "topic", topic, "error", err)
}

func (p *Publisher) publish(topic string, qos byte, v any) error {
	if topic == "" {
		return nil
	}
	if !p.client.IsConnected() {
		return errNotConnected
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := p.client.Publish(topic, qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish: %w", token.Error())
	}
	return nil
}
