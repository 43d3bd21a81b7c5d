package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.SetClients(3)
	m.FrameSent()
	m.FrameSkipped()
	m.BroadcastTick()
	m.ObserveInterpretation("simulation", nil, 10*time.Millisecond)
	m.ObserveInterpretation("external", errors.New("boom"), time.Second)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Result().Body)
	text := string(body)

	for _, want := range []string{
		"glove_ws_clients 3",
		"glove_frames_sent_total 1",
		"glove_frames_skipped_total 1",
		"glove_broadcast_ticks_total 1",
		`glove_interpretations_total{outcome="ok",strategy="simulation"} 1`,
		`glove_interpretations_total{outcome="error",strategy="external"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
