package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"glove-backend/internal/mqtt"
)

type Config struct {
	// HTTP / realtime
	HTTPAddr   string
	SensorTick time.Duration

	// External inference (OpenAI chat completions compatible)
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIMaxTokens  int
	InferenceTimeout time.Duration // zero means no timeout
	SimulationOnly   bool
	CatalogPath      string

	// History
	HistoryBackend     string // "memory" or "clickhouse"
	HistoryListDefault int

	// ClickHouse Configuration
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// MQTT Configuration
	MQTTEnabled  bool
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	MQTTTopicGloveFlex      string
	MQTTTopicSensorMirror   string
	MQTTTopicInterpretation string
	HardwareStaleAfter      time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

// ConfigurationError reports a required setting that is missing.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is not set", e.Key)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":5000"),
		SensorTick: getEnvDuration("SENSOR_TICK", 500*time.Millisecond),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-5"),
		OpenAIMaxTokens:  getEnvInt("OPENAI_MAX_TOKENS", 2048),
		InferenceTimeout: getEnvDuration("INFERENCE_TIMEOUT", 0),
		SimulationOnly:   getEnvBool("SIMULATION_ONLY", false),
		CatalogPath:      getEnv("CATALOG_PATH", ""),

		HistoryBackend:     getEnv("HISTORY_BACKEND", "memory"),
		HistoryListDefault: getEnvInt("HISTORY_LIST_DEFAULT", 20),

		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "glove"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		MQTTEnabled:  getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "glove-backend"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),

		MQTTTopicGloveFlex:      getEnv("MQTT_TOPIC_GLOVE_FLEX", mqtt.DefaultGloveFlexTopic),
		MQTTTopicSensorMirror:   getEnv("MQTT_TOPIC_SENSOR_MIRROR", mqtt.DefaultSampleMirrorTopic),
		MQTTTopicInterpretation: getEnv("MQTT_TOPIC_INTERPRETATION", mqtt.DefaultInterpretationTopic),
		HardwareStaleAfter:      getEnvDuration("HARDWARE_STALE_AFTER", 2*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// RequireInferenceKey fails when the external inference credential is absent.
func (c *Config) RequireInferenceKey() error {
	if c.OpenAIAPIKey == "" {
		return &ConfigurationError{Key: "OPENAI_API_KEY"}
	}
	return nil
}

// Validate checks settings that would otherwise fail later and opaquely.
func (c *Config) Validate() error {
	if !c.SimulationOnly {
		if err := c.RequireInferenceKey(); err != nil {
			return err
		}
	}
	switch c.HistoryBackend {
	case "memory", "clickhouse":
	default:
		return &ConfigurationError{Key: "HISTORY_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.HistoryBackend)}
	}
	if c.SensorTick <= 0 {
		return &ConfigurationError{Key: "SENSOR_TICK", Reason: "must be positive"}
	}
	if c.MQTTEnabled {
		return c.validateMQTTTopics()
	}
	return nil
}

// validateMQTTTopics rejects mirror topics the glove subscription would read
// back as hardware readings.
func (c *Config) validateMQTTTopics() error {
	published := []struct{ key, topic string }{
		{"MQTT_TOPIC_SENSOR_MIRROR", c.MQTTTopicSensorMirror},
		{"MQTT_TOPIC_INTERPRETATION", c.MQTTTopicInterpretation},
	}
	for _, p := range published {
		if p.topic != "" && mqtt.TopicMatches(c.MQTTTopicGloveFlex, p.topic) {
			return &ConfigurationError{
				Key:    p.key,
				Reason: fmt.Sprintf("%q is matched by MQTT_TOPIC_GLOVE_FLEX %q", p.topic, c.MQTTTopicGloveFlex),
			}
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}
