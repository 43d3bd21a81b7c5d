package mqtt

import (
	"testing"
	"time"

	"glove-backend/internal/logging"
	"glove-backend/internal/models"
)

func TestExtractDeviceID(t *testing.T) {
	cases := map[string]string{
		"glove/glove-001/flex": "glove-001",
		"glove/left":           "left",
		"glove":                "",
	}
	for topic, want := range cases {
		if got := extractDeviceID(topic); got != want {
			t.Errorf("extractDeviceID(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestParseGloveReading(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	tests := []struct {
		name    string
		topic   string
		payload string
		want    models.SensorSample
		wantErr bool
	}{
		{
			name:    "full payload",
			topic:   "glove/g1/flex",
			payload: `{"thumb":1,"index":2,"middle":3,"ring":4,"pinky":5,"timestamp":99}`,
			want:    models.SensorSample{Thumb: 1, Index: 2, Middle: 3, Ring: 4, Pinky: 5, Timestamp: 99},
		},
		{
			name:    "missing timestamp uses receive time",
			topic:   "glove/g1/flex",
			payload: `{"thumb":0,"index":0,"middle":0,"ring":0,"pinky":0}`,
			want:    models.SensorSample{Timestamp: now.UnixMilli()},
		},
		{
			name:    "out of range values are clamped",
			topic:   "glove/g1/flex",
			payload: `{"thumb":-20,"index":5000,"middle":10,"ring":1023,"pinky":0,"timestamp":1}`,
			want:    models.SensorSample{Thumb: 0, Index: 1023, Middle: 10, Ring: 1023, Pinky: 0, Timestamp: 1},
		},
		{name: "missing channel", topic: "glove/g1/flex", payload: `{"thumb":1}`, wantErr: true},
		{name: "not json", topic: "glove/g1/flex", payload: `512,512`, wantErr: true},
		{name: "no device", topic: "glove", payload: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := parseGloveReading(tt.topic, []byte(tt.payload), now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", reading)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if reading.DeviceID != "g1" || !reading.ReceivedAt.Equal(now) {
				t.Fatalf("unexpected reading metadata %+v", reading)
			}
			if reading.Sample != tt.want {
				t.Fatalf("got %+v, want %+v", reading.Sample, tt.want)
			}
		})
	}
}

func TestPublisherQueuesWithoutBlocking(t *testing.T) {
	p := NewPublisher(nil, PublisherConfig{ChannelSize: 1}, logging.Discard())

	p.MirrorSample(models.SensorSample{Timestamp: 1})
	p.MirrorSample(models.SensorSample{Timestamp: 2})
	if got := (<-p.SampleChan).Timestamp; got != 1 {
		t.Fatalf("expected the first sample to be kept, got %d", got)
	}

	p.InterpretationSaved(&models.InterpretationRecord{ID: "a"})
	p.InterpretationSaved(&models.InterpretationRecord{ID: "b"})
	if got := (<-p.InterpretationChan).ID; got != "a" {
		t.Fatalf("expected the first record to be kept, got %s", got)
	}
}
