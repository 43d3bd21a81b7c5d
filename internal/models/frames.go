package models

// Realtime frame types
const (
	FrameConnected       = "connected"
	FrameSensorData      = "sensor_data"
	FrameStartSimulation = "start_simulation"
	FrameStopSimulation  = "stop_simulation"
)

// ConnectedFrame is sent once when a realtime connection opens.
type ConnectedFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SensorDataFrame carries one generator tick.
type SensorDataFrame struct {
	Type string       `json:"type"`
	Data SensorSample `json:"data"`
}

// ControlFrame is an inbound client message.
type ControlFrame struct {
	Type string `json:"type"`
}

// Frame is the union shape used by clients decoding server frames.
type Frame struct {
	Type    string        `json:"type"`
	Message string        `json:"message,omitempty"`
	Data    *SensorSample `json:"data,omitempty"`
}
