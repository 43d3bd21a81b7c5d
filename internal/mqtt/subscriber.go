package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"glove-backend/internal/models"
)

// Subscriber handles MQTT subscriptions and writes glove readings to a channel
type Subscriber struct {
	client mqtt.Client
	logger *slog.Logger

	// Output channel (written by subscriber, read by the glove ingest service)
	GloveChan chan *models.GloveReading

	gloveFlexTopic string
	selfTopics     []string
	now            func() time.Time
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	GloveFlexTopic string // e.g., "glove/+/flex"
	// SelfTopics are topics this backend publishes to. Messages arriving on
	// them are dropped even when the glove filter matches.
	SelfTopics []string
}

// NewSubscriber creates a new MQTT subscriber writing to gloveChan
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	gloveChan chan *models.GloveReading,
	logger *slog.Logger,
) *Subscriber {
	return &Subscriber{
		client:         client,
		logger:         logger,
		GloveChan:      gloveChan,
		gloveFlexTopic: config.GloveFlexTopic,
		selfTopics:     config.SelfTopics,
		now:            time.Now,
	}
}

// SubscribeAll subscribes to all configured glove topics
func (s *Subscriber) SubscribeAll() error {
	if s.gloveFlexTopic == "" {
		return nil
	}
	token := s.client.Subscribe(s.gloveFlexTopic, 1, s.handleGloveFlex)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to glove flex topic: %w", token.Error())
	}
	s.logger.Info("mqtt_subscribed", "topic", s.gloveFlexTopic)
	return nil
}

func (s *Subscriber) handleGloveFlex(_ mqtt.Client, msg mqtt.Message) {
	if s.isSelfTopic(msg.Topic()) {
		s.logger.Debug("mqtt_own_message_ignored", "topic", msg.Topic())
		return
	}
	reading, err := parseGloveReading(msg.Topic(), msg.Payload(), s.now())
	if err != nil {
		s.logger.Warn("mqtt_glove_payload_rejected", "topic", msg.Topic(), "error", err)
		return
	}

	// Write to channel (non-blocking with timeout)
	select {
	case s.GloveChan <- reading:
	case <-time.After(1 * time.Second):
		s.logger.Warn("mqtt_glove_channel_full", "device_id", reading.DeviceID)
	}
}

func (s *Subscriber) isSelfTopic(topic string) bool {
	for _, self := range s.selfTopics {
		if self != "" && TopicMatches(self, topic) {
			return true
		}
	}
	return false
}

// gloveFlexPayload is what hardware gloves publish. Timestamp is optional.
type gloveFlexPayload struct {
	Thumb     *int  `json:"thumb"`
	Index     *int  `json:"index"`
	Middle    *int  `json:"middle"`
	Ring      *int  `json:"ring"`
	Pinky     *int  `json:"pinky"`
	Timestamp int64 `json:"timestamp"`
}

// parseGloveReading decodes a flex payload published on glove/{device_id}/flex.
// Channel values are clamped into the flex range.
func parseGloveReading(topic string, payload []byte, receivedAt time.Time) (*models.GloveReading, error) {
	deviceID := extractDeviceID(topic)
	if deviceID == "" {
		return nil, fmt.Errorf("could not extract device ID from topic %q", topic)
	}

	var p gloveFlexPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decoding flex payload: %w", err)
	}
	if p.Thumb == nil || p.Index == nil || p.Middle == nil || p.Ring == nil || p.Pinky == nil {
		return nil, fmt.Errorf("flex payload missing a channel")
	}

	ts := p.Timestamp
	if ts == 0 {
		ts = receivedAt.UnixMilli()
	}

	sample := models.SensorSample{
		Thumb:     *p.Thumb,
		Index:     *p.Index,
		Middle:    *p.Middle,
		Ring:      *p.Ring,
		Pinky:     *p.Pinky,
		Timestamp: ts,
	}
	return &models.GloveReading{
		DeviceID:   deviceID,
		ReceivedAt: receivedAt,
		Sample:     sample.Clamped(),
	}, nil
}

// extractDeviceID extracts device ID from MQTT topic
// Example: "glove/glove-001/flex" -> "glove-001"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
