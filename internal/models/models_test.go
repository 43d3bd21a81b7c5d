package models

import "testing"

func TestClampConfidence(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{57, 57},
		{100, 100},
		{140, 100},
	}
	for _, tc := range cases {
		if got := ClampConfidence(tc.in); got != tc.want {
			t.Errorf("ClampConfidence(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSensorSampleClamped(t *testing.T) {
	s := SensorSample{Thumb: -1, Index: 2000, Middle: 512, Ring: 0, Pinky: 1023, Timestamp: 7}.Clamped()
	want := [5]int{0, 1023, 512, 0, 1023}
	if s.Channels() != want {
		t.Fatalf("got %v, want %v", s.Channels(), want)
	}
	if s.Timestamp != 7 {
		t.Fatalf("timestamp changed: %d", s.Timestamp)
	}
}

func TestGestureDataIsSnapshot(t *testing.T) {
	req := &InterpretationRequest{
		HandLandmarks: []HandLandmark{{X: 1}},
		SensorData:    &SensorSample{Thumb: 10},
	}
	gd := req.GestureData()
	req.HandLandmarks[0].X = 99
	req.SensorData.Thumb = 99

	if gd.HandLandmarks[0].X != 1 || gd.SensorData.Thumb != 10 {
		t.Fatalf("snapshot aliased the request: %+v", gd)
	}
}
