package mqtt

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"glove-backend/internal/aggregator"
	"glove-backend/internal/logging"
	"glove-backend/internal/models"
	"glove-backend/internal/sensor"
)

// memoryBroker routes publishes to matching subscriptions synchronously.
type memoryBroker struct {
	mqtt.Client

	mu        sync.Mutex
	connected bool
	handlers  map[string]mqtt.MessageHandler
	published []string
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *memoryBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *memoryBroker) Subscribe(filter string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[filter] = callback
	return doneToken{}
}

func (b *memoryBroker) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	b.mu.Lock()
	b.published = append(b.published, topic)
	var targets []mqtt.MessageHandler
	for filter, h := range b.handlers {
		if TopicMatches(filter, topic) {
			targets = append(targets, h)
		}
	}
	b.mu.Unlock()

	data, _ := payload.([]byte)
	for _, h := range targets {
		h(b, &memoryMessage{topic: topic, payload: data})
	}
	return doneToken{}
}

type doneToken struct{ mqtt.Token }

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Error() error                   { return nil }

type memoryMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *memoryMessage) Topic() string   { return m.topic }
func (m *memoryMessage) Payload() []byte { return m.payload }

// gloveBridge wires broker, subscriber, publisher, buffer and generator the
// way the server does when MQTT is enabled.
type gloveBridge struct {
	broker    *memoryBroker
	gloveChan chan *models.GloveReading
	publisher *Publisher
	buffer    *aggregator.SensorBuffer
	generator *sensor.Generator
}

func newGloveBridge(t *testing.T, mirrorTopic string) *gloveBridge {
	t.Helper()

	b := &gloveBridge{
		broker:    newMemoryBroker(),
		gloveChan: make(chan *models.GloveReading, 16),
		buffer:    aggregator.NewSensorBuffer(logging.Discard()),
	}
	sub := NewSubscriber(b.broker, SubscriberConfig{
		GloveFlexTopic: DefaultGloveFlexTopic,
		SelfTopics:     []string{mirrorTopic, DefaultInterpretationTopic},
	}, b.gloveChan, logging.Discard())
	if err := sub.SubscribeAll(); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	b.publisher = NewPublisher(b.broker, PublisherConfig{
		SampleTopic:         mirrorTopic,
		InterpretationTopic: DefaultInterpretationTopic,
	}, logging.Discard())
	random := sensor.NewRandomSource(rand.New(rand.NewSource(1)))
	b.generator = sensor.NewGenerator(sensor.NewHardwareSource(b.buffer, 2*time.Second, random))
	return b
}

// ingest moves everything the subscriber delivered into the buffer.
func (b *gloveBridge) ingest() int {
	n := 0
	for {
		select {
		case r := <-b.gloveChan:
			b.buffer.Update(r)
			n++
		default:
			return n
		}
	}
}

func channels(s models.SensorSample) [5]int {
	return [5]int{s.Thumb, s.Index, s.Middle, s.Ring, s.Pinky}
}

func TestMirroredSamplesStayOutOfHardwareFeed(t *testing.T) {
	cases := map[string]string{
		"default mirror topic":       DefaultSampleMirrorTopic,
		"mirror inside glove filter": "glove/simulated/flex",
	}
	for name, mirror := range cases {
		t.Run(name, func(t *testing.T) {
			b := newGloveBridge(t, mirror)

			var seen [][5]int
			for tick := 0; tick < 5; tick++ {
				sample := b.generator.Next()
				seen = append(seen, channels(sample))
				if err := b.publisher.publish(mirror, 0, sample); err != nil {
					t.Fatalf("tick %d: publish: %v", tick, err)
				}
				if n := b.ingest(); n != 0 {
					t.Fatalf("tick %d: own sample ingested as a glove reading", tick)
				}
			}

			if len(b.broker.published) != 5 {
				t.Fatalf("expected 5 mirrored samples, got %d", len(b.broker.published))
			}
			pinned := true
			for _, s := range seen[1:] {
				if s != seen[0] {
					pinned = false
				}
			}
			if pinned {
				t.Fatalf("generator repeated %v on every tick", seen[0])
			}
		})
	}
}

func TestHardwareGloveDrivesGenerator(t *testing.T) {
	b := newGloveBridge(t, DefaultSampleMirrorTopic)

	b.broker.Publish("glove/glove-7/flex", 1, false, []byte(`{"thumb":10,"index":20,"middle":30,"ring":40,"pinky":2000}`))
	if n := b.ingest(); n != 1 {
		t.Fatalf("expected one glove reading, got %d", n)
	}

	for tick := 0; tick < 3; tick++ {
		sample := b.generator.Next()
		if got, want := channels(sample), [5]int{10, 20, 30, 40, models.FlexMax}; got != want {
			t.Fatalf("tick %d: got %v, want hardware reading %v", tick, got, want)
		}
		if err := b.publisher.publish(DefaultSampleMirrorTopic, 0, sample); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if n := b.ingest(); n != 0 {
			t.Fatalf("tick %d: mirrored sample came back as a reading", tick)
		}
	}
}

func TestPublishSkipsWhileDisconnected(t *testing.T) {
	broker := newMemoryBroker()
	broker.connected = false
	p := NewPublisher(broker, PublisherConfig{SampleTopic: DefaultSampleMirrorTopic}, logging.Discard())

	err := p.publish(DefaultSampleMirrorTopic, 0, models.SensorSample{})
	if !errors.Is(err, errNotConnected) {
		t.Fatalf("expected errNotConnected, got %v", err)
	}
	if len(broker.published) != 0 {
		t.Fatalf("nothing should reach a disconnected broker, got %v", broker.published)
	}
}

func TestTopicMatches(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"glove/+/flex", "glove/g1/flex", true},
		{"glove/+/flex", "glove/simulated/flex", true},
		{"glove/+/flex", "glove-backend/simulated/flex", false},
		{"glove/+/flex", "glove/g1/flex/extra", false},
		{"glove/+/flex", "glove/flex", false},
		{"glove/#", "glove", true},
		{"glove/#", "glove/g1/flex", true},
		{"#", "$SYS/broker/uptime", false},
		{"glove-backend/interpretations", "glove-backend/interpretations", true},
	}
	for _, tt := range tests {
		if got := TopicMatches(tt.filter, tt.topic); got != tt.want {
			t.Errorf("TopicMatches(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestConnectHooksRunOnEveryConnect(t *testing.T) {
	c := &Client{logger: logging.Discard()}
	calls := 0
	c.OnConnect(func() { calls++ })

	c.runOnConnect()
	c.runOnConnect()
	if calls != 2 {
		t.Fatalf("expected hook on each connect, got %d calls", calls)
	}
}
