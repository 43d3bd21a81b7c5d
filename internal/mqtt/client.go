package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client owns the broker connection shared by the glove bridge: the
// Subscriber reading glove/{device_id}/flex and the Publisher mirroring
// broadcast samples and saved interpretations.
type Client struct {
	client mqtt.Client
	logger *slog.Logger

	mu        sync.Mutex
	onConnect []func()
}

// ClientConfig identifies the broker and the credentials of the backend.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient connects to the broker. paho reconnects on its own after a lost
// connection; hooks added with OnConnect run after every (re)connect.
func NewClient(config ClientConfig, logger *slog.Logger) (*Client, error) {
	c := &Client{logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		logger.Debug("mqtt_unrouted_message", "topic", msg.Topic())
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt_connected", "broker", config.Broker, "client_id", config.ClientID)
		c.runOnConnect()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt_connection_lost", "broker", config.Broker, "error", err)
	})
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to glove broker %s: %w", config.Broker, token.Error())
	}
	return c, nil
}

// OnConnect registers fn to run after each reconnect. A clean session drops
// subscriptions, so the Subscriber renews them here.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

func (c *Client) runOnConnect() {
	c.mu.Lock()
	hooks := append([]func(){}, c.onConnect...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// GetNativeClient hands the paho client to the Subscriber and Publisher.
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// Close disconnects, giving in-flight mirror publishes 250ms to drain.
func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("mqtt_disconnected")
}
