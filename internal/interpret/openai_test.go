package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"glove-backend/internal/models"
	"glove-backend/pkg/config"
)

// chatServer answers chat completions with the given assistant content.
func chatServer(t *testing.T, status int, content string, inspect func(*http.Request, chatRequest)) *OpenAI {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var wire chatRequest
		if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if inspect != nil {
			inspect(r, wire)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(content))
			return
		}
		_ = json.NewEncoder(w).Encode(chatResponse{
			ID:      "chatcmpl-1",
			Model:   wire.Model,
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: content}}},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1/", Model: "gpt-5", MaxTokens: 2048}, server.Client())
	o.now = func() time.Time { return time.UnixMilli(777) }
	return o
}

func TestOpenAIInterpretSendsStructuredRequest(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	o := chatServer(t, http.StatusOK, `{"interpretedText":"Thumbs up","command":"approve","confidence":91,"actionDescription":"Approve"}`,
		func(r *http.Request, wire chatRequest) {
			gotAuth = r.Header.Get("Authorization")
			gotReq = wire
		})

	res, err := o.Interpret(context.Background(), &models.InterpretationRequest{
		SensorData: &models.SensorSample{Thumb: 100},
	})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}

	want := models.InterpretationResult{InterpretedText: "Thumbs up", Command: "approve", Confidence: 91, ActionDescription: "Approve", Timestamp: 777}
	if *res != want {
		t.Fatalf("got %+v, want %+v", *res, want)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", gotReq.ResponseFormat)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || !strings.Contains(gotReq.Messages[1].Content, "- Thumb: 100") {
		t.Errorf("unexpected messages %+v", gotReq.Messages)
	}
	if gotReq.MaxCompletionTokens != 2048 {
		t.Errorf("expected max_completion_tokens 2048, got %d", gotReq.MaxCompletionTokens)
	}
}

func TestOpenAIClampsConfidence(t *testing.T) {
	cases := []struct {
		reply string
		want  int
	}{
		{`{"interpretedText":"a","confidence":-5}`, 0},
		{`{"interpretedText":"a","confidence":140}`, 100},
		{`{"interpretedText":"a","confidence":87.6}`, 88},
		{`{"interpretedText":"a"}`, 0},
	}
	for _, tc := range cases {
		o := chatServer(t, http.StatusOK, tc.reply, nil)
		res, err := o.Interpret(context.Background(), &models.InterpretationRequest{})
		if err != nil {
			t.Fatalf("%s: %v", tc.reply, err)
		}
		if res.Confidence != tc.want {
			t.Errorf("%s: confidence %d, want %d", tc.reply, res.Confidence, tc.want)
		}
	}
}

func TestOpenAIFallbackText(t *testing.T) {
	for _, reply := range []string{`{"confidence":50}`, ``} {
		o := chatServer(t, http.StatusOK, reply, nil)
		res, err := o.Interpret(context.Background(), &models.InterpretationRequest{})
		if err != nil {
			t.Fatalf("%q: %v", reply, err)
		}
		if res.InterpretedText != fallbackInterpretation {
			t.Errorf("%q: expected fallback text, got %q", reply, res.InterpretedText)
		}
	}
}

func TestOpenAICoercesLooselyTypedReply(t *testing.T) {
	cases := []struct {
		reply string
		want  models.InterpretationResult
	}{
		{
			`{"interpretedText":"Thumbs up","command":"approve","confidence":"85"}`,
			models.InterpretationResult{InterpretedText: "Thumbs up", Command: "approve", Confidence: 85, Timestamp: 777},
		},
		{
			`{"interpretedText":"Wave","command":7,"confidence":" 240 "}`,
			models.InterpretationResult{InterpretedText: "Wave", Command: "7", Confidence: 100, Timestamp: 777},
		},
		{
			`{"interpretedText":"Wave","command":{"name":"x"},"confidence":"high","actionDescription":null}`,
			models.InterpretationResult{InterpretedText: "Wave", Confidence: 0, Timestamp: 777},
		},
		{
			`{"interpretedText":["a"],"confidence":true}`,
			models.InterpretationResult{InterpretedText: fallbackInterpretation, Timestamp: 777},
		},
	}
	for _, tc := range cases {
		o := chatServer(t, http.StatusOK, tc.reply, nil)
		res, err := o.Interpret(context.Background(), &models.InterpretationRequest{})
		if err != nil {
			t.Fatalf("%s: %v", tc.reply, err)
		}
		if *res != tc.want {
			t.Errorf("%s: got %+v, want %+v", tc.reply, *res, tc.want)
		}
	}
}

func TestOpenAIFailures(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		o := chatServer(t, http.StatusUnauthorized, `{"error":{"type":"invalid_request_error","message":"bad key"}}`, nil)
		_, err := o.Interpret(context.Background(), &models.InterpretationRequest{})

		var failure *InterpretationFailure
		if !errors.As(err, &failure) {
			t.Fatalf("expected InterpretationFailure, got %v", err)
		}
		var provider *ProviderError
		if !errors.As(err, &provider) || provider.StatusCode != http.StatusUnauthorized || provider.Message != "bad key" {
			t.Fatalf("expected provider error cause, got %v", err)
		}
	})

	t.Run("unparsable reply", func(t *testing.T) {
		o := chatServer(t, http.StatusOK, `not json at all`, nil)
		_, err := o.Interpret(context.Background(), &models.InterpretationRequest{})
		var failure *InterpretationFailure
		if !errors.As(err, &failure) {
			t.Fatalf("expected InterpretationFailure, got %v", err)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		o := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, nil)
		_, err := o.Interpret(context.Background(), &models.InterpretationRequest{})
		var failure *InterpretationFailure
		if !errors.As(err, &failure) {
			t.Fatalf("expected InterpretationFailure, got %v", err)
		}
	})
}

type stubInterpreter struct {
	calls int
	res   *models.InterpretationResult
}

func (s *stubInterpreter) Interpret(context.Context, *models.InterpretationRequest) (*models.InterpretationResult, error) {
	s.calls++
	return s.res, nil
}

func TestServiceSelectsStrategy(t *testing.T) {
	sim := &stubInterpreter{res: &models.InterpretationResult{InterpretedText: "sim"}}
	ext := &stubInterpreter{res: &models.InterpretationResult{InterpretedText: "ext"}}
	svc := NewService(sim, ext)

	res, _ := svc.Interpret(context.Background(), &models.InterpretationRequest{UseSimulation: true})
	if res.InterpretedText != "sim" || sim.calls != 1 || ext.calls != 0 {
		t.Fatalf("simulation request routed wrong: %+v", res)
	}
	res, _ = svc.Interpret(context.Background(), &models.InterpretationRequest{})
	if res.InterpretedText != "ext" || ext.calls != 1 {
		t.Fatalf("external request routed wrong: %+v", res)
	}
}

func TestServiceWithoutExternalReportsConfiguration(t *testing.T) {
	svc := NewService(&stubInterpreter{}, nil)

	_, err := svc.Interpret(context.Background(), &models.InterpretationRequest{})
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration cause, got %v", err)
	}
}
