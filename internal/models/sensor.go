package models

import "time"

// Flex channel range reported by the glove ADCs.
const (
	FlexMin = 0
	FlexMax = 1023
)

// SensorSample is one 5-channel flex reading. Timestamp is epoch milliseconds.
type SensorSample struct {
	Thumb     int   `json:"thumb"`
	Index     int   `json:"index"`
	Middle    int   `json:"middle"`
	Ring      int   `json:"ring"`
	Pinky     int   `json:"pinky"`
	Timestamp int64 `json:"timestamp"`
}

// Channels returns the five flex values in finger order.
func (s SensorSample) Channels() [5]int {
	return [5]int{s.Thumb, s.Index, s.Middle, s.Ring, s.Pinky}
}

// Clamped returns a copy with every channel forced into [FlexMin, FlexMax].
func (s SensorSample) Clamped() SensorSample {
	s.Thumb = clampFlex(s.Thumb)
	s.Index = clampFlex(s.Index)
	s.Middle = clampFlex(s.Middle)
	s.Ring = clampFlex(s.Ring)
	s.Pinky = clampFlex(s.Pinky)
	return s
}

func clampFlex(v int) int {
	if v < FlexMin {
		return FlexMin
	}
	if v > FlexMax {
		return FlexMax
	}
	return v
}

// HandLandmark is a single tracked hand point from the camera pipeline.
type HandLandmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// GloveReading is a flex reading received from a hardware glove over MQTT
type GloveReading struct {
	DeviceID   string       `json:"device_id"`
	ReceivedAt time.Time    `json:"received_at"`
	Sample     SensorSample `json:"sample"`
}
