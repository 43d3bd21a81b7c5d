package models

// InterpretationRequest is the body of POST /api/interpret-gesture.
type InterpretationRequest struct {
	HandLandmarks []HandLandmark `json:"handLandmarks,omitempty"`
	SensorData    *SensorSample  `json:"sensorData,omitempty"`
	Context       string         `json:"context,omitempty"`
	UseSimulation bool           `json:"useSimulation"`
}

// GestureData returns the raw payload snapshot stored alongside a record.
func (r *InterpretationRequest) GestureData() GestureData {
	var gd GestureData
	if r.HandLandmarks != nil {
		gd.HandLandmarks = append([]HandLandmark(nil), r.HandLandmarks...)
	}
	if r.SensorData != nil {
		s := *r.SensorData
		gd.SensorData = &s
	}
	return gd
}

// InterpretationResult is returned by both interpretation strategies.
type InterpretationResult struct {
	InterpretedText   string `json:"interpretedText"`
	Command           string `json:"command,omitempty"`
	Confidence        int    `json:"confidence"`
	ActionDescription string `json:"actionDescription,omitempty"`
	Timestamp         int64  `json:"timestamp"`
}

// GestureData is the landmarks+sensor snapshot persisted with a record.
type GestureData struct {
	HandLandmarks []HandLandmark `json:"handLandmarks,omitempty"`
	SensorData    *SensorSample  `json:"sensorData,omitempty"`
}

// InterpretationRecord is a persisted interpretation. ID is assigned by the store.
type InterpretationRecord struct {
	ID              string      `json:"id"`
	GestureData     GestureData `json:"gestureData"`
	InterpretedText string      `json:"interpretedText"`
	Command         string      `json:"command,omitempty"`
	Confidence      int         `json:"confidence"`
	Timestamp       int64       `json:"timestamp"`
}

// NewRecord builds an id-less record from a request and its result.
func NewRecord(req *InterpretationRequest, res *InterpretationResult) *InterpretationRecord {
	return &InterpretationRecord{
		GestureData:     req.GestureData(),
		InterpretedText: res.InterpretedText,
		Command:         res.Command,
		Confidence:      res.Confidence,
		Timestamp:       res.Timestamp,
	}
}

// ClampConfidence forces a confidence score into [0, 100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
