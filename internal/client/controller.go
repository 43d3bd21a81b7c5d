// Package client is a headless version of the dashboard controller: it holds
// the realtime subscription, interprets the latest sample on a timer and keeps
// a bounded local history.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"glove-backend/internal/models"
)

const (
	DefaultInterpretInterval = 3 * time.Second
	DefaultReconnectDelay    = 3 * time.Second
	DefaultHistorySize       = 20

	writeWait = 5 * time.Second
)

// ErrNoSample is returned by InterpretOnce before any sample has arrived.
var ErrNoSample = errors.New("no sensor sample received yet")

// Config configures a Controller. Zero values take the defaults above.
type Config struct {
	BaseURL           string // e.g. http://localhost:5000
	InterpretInterval time.Duration
	ReconnectDelay    time.Duration
	HistorySize       int

	HTTPClient *http.Client
	Dialer     *websocket.Dialer

	// OnChange, when set, receives a snapshot after every state change.
	OnChange func(State)
}

// State is a snapshot of what the dashboard would display.
type State struct {
	Active    bool
	Connected bool
	Status    models.CommandStatus
	Sensor    *models.SensorSample
	Current   *models.InterpretationResult
	History   []models.CommandExecution
}

// Controller drives one viewer session against the backend.
type Controller struct {
	cfg    Config
	wsURL  string
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	active    bool
	connected bool
	status    models.CommandStatus
	sensor    *models.SensorSample
	current   *models.InterpretationResult
	history   []models.CommandExecution

	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates cfg and builds an idle controller.
func New(cfg Config, logger *slog.Logger) (*Controller, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	default:
		return nil, fmt.Errorf("base URL must be http or https, got %q", cfg.BaseURL)
	}
	base.Path += "/ws"

	if cfg.InterpretInterval <= 0 {
		cfg.InterpretInterval = DefaultInterpretInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Controller{
		cfg:    cfg,
		wsURL:  base.String(),
		logger: logger,
		now:    time.Now,
		status: models.StatusProcessing,
	}, nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Active:    c.active,
		Connected: c.connected,
		Status:    c.status,
		History:   append([]models.CommandExecution(nil), c.history...),
	}
	if c.sensor != nil {
		sample := *c.sensor
		s.Sensor = &sample
	}
	if c.current != nil {
		res := *c.current
		s.Current = &res
	}
	return s
}

// update applies fn under the lock and publishes the resulting snapshot.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if c.cfg.OnChange != nil {
		c.cfg.OnChange(snap)
	}
}

// LoadHistory replaces the local history with the newest records on the server.
func (c *Controller) LoadHistory(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/api/gesture-history?limit=%d", c.cfg.BaseURL, c.cfg.HistorySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	var records []models.InterpretationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return fmt.Errorf("decoding history: %w", err)
	}

	entries := make([]models.CommandExecution, 0, len(records))
	for _, rec := range records {
		entries = append(entries, models.CommandExecution{
			ID:              rec.ID,
			GestureType:     "gesture",
			InterpretedText: rec.InterpretedText,
			Command:         rec.Command,
			Status:          models.StatusExecuted,
			Timestamp:       rec.Timestamp,
			Confidence:      rec.Confidence,
		})
	}
	if len(entries) > c.cfg.HistorySize {
		entries = entries[:c.cfg.HistorySize]
	}

	c.update(func() { c.history = entries })
	c.logger.Info("history_loaded", "entries", len(entries))
	return nil
}

// Start activates recognition: it subscribes to the realtime feed and begins
// interpreting on a timer. Calling Start while active does nothing.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.update(func() {
		c.active = true
		c.status = models.StatusProcessing
	})

	c.wg.Add(2)
	go c.connectLoop(runCtx)
	go c.interpretLoop(runCtx)
	c.logger.Info("recognition_started")
}

// Stop deactivates recognition, closes the subscription and clears the
// current interpretation and sensor state. History is kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	conn := c.conn
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	if conn != nil {
		if err := c.writeControl(conn, models.FrameStopSimulation); err != nil {
			c.logger.Debug("stop_message_failed", "error", err)
		}
	}
	cancel()
	c.wg.Wait()

	c.update(func() {
		c.active = false
		c.current = nil
		c.sensor = nil
		c.status = models.StatusProcessing
	})
	c.logger.Info("recognition_stopped")
}

func (c *Controller) connectLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		conn, _, err := c.cfg.Dialer.DialContext(ctx, c.wsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("ws_connect_failed", "url", c.wsURL, "error", err)
		} else {
			c.serve(ctx, conn)
		}

		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
			c.logger.Info("ws_reconnecting")
		}
	}
}

// serve holds one connection until it drops or ctx ends.
func (c *Controller) serve(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.update(func() { c.connected = true })
	c.logger.Info("ws_connected", "url", c.wsURL)

	done := make(chan struct{})
	defer func() {
		close(done)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
		c.update(func() { c.connected = false })
		c.logger.Info("ws_disconnected")
	}()

	go func() {
		select {
		case <-ctx.Done():
			c.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.writeMu.Unlock()
			_ = conn.Close()
		case <-done:
		}
	}()

	if err := c.writeControl(conn, models.FrameStartSimulation); err != nil {
		c.logger.Warn("start_message_failed", "error", err)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("ws_read_failed", "error", err)
			}
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warn("ws_malformed_frame", "error", err)
			continue
		}
		switch frame.Type {
		case models.FrameSensorData:
			if frame.Data != nil {
				sample := *frame.Data
				c.update(func() { c.sensor = &sample })
			}
		case models.FrameConnected:
			c.logger.Debug("ws_acknowledged", "message", frame.Message)
		default:
			c.logger.Debug("ws_unknown_frame", "type", frame.Type)
		}
	}
}

func (c *Controller) writeControl(conn *websocket.Conn, frameType string) error {
	payload, err := json.Marshal(models.ControlFrame{Type: frameType})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Controller) interpretLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.InterpretInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.InterpretOnce(ctx); err != nil && !errors.Is(err, ErrNoSample) && ctx.Err() == nil {
				c.logger.Warn("interpretation_failed", "error", err)
			}
		}
	}
}

// interpretPayload always carries handLandmarks, empty until camera tracking exists.
type interpretPayload struct {
	SensorData    *models.SensorSample  `json:"sensorData"`
	HandLandmarks []models.HandLandmark `json:"handLandmarks"`
	UseSimulation bool                  `json:"useSimulation"`
}

type interpretReply struct {
	models.InterpretationResult
	ID string `json:"id"`
}

// InterpretOnce submits the latest sample for interpretation. On failure the
// status becomes failed and the last good interpretation is left in place.
func (c *Controller) InterpretOnce(ctx context.Context) error {
	c.mu.Lock()
	var sample *models.SensorSample
	if c.sensor != nil {
		s := *c.sensor
		sample = &s
	}
	c.mu.Unlock()

	if sample == nil {
		return ErrNoSample
	}

	c.update(func() { c.status = models.StatusProcessing })

	reply, err := c.postInterpretation(ctx, sample)
	if err != nil {
		c.update(func() { c.status = models.StatusFailed })
		return err
	}

	result := reply.InterpretationResult
	c.update(func() {
		c.current = &result
		c.status = models.StatusRecognized
	})

	id := reply.ID
	if id == "" {
		id = strconv.FormatInt(c.now().UnixMilli(), 10)
	}
	entry := models.CommandExecution{
		ID:              id,
		GestureType:     "gesture",
		InterpretedText: result.InterpretedText,
		Command:         result.Command,
		Status:          models.StatusExecuted,
		Timestamp:       result.Timestamp,
		Confidence:      result.Confidence,
	}
	c.update(func() {
		c.history = append([]models.CommandExecution{entry}, c.history...)
		if len(c.history) > c.cfg.HistorySize {
			c.history = c.history[:c.cfg.HistorySize]
		}
		c.status = models.StatusExecuted
	})

	c.logger.Info("gesture_recognized", "text", result.InterpretedText, "confidence", result.Confidence)
	return nil
}

func (c *Controller) postInterpretation(ctx context.Context, sample *models.SensorSample) (*interpretReply, error) {
	body, err := json.Marshal(interpretPayload{
		SensorData:    sample,
		HandLandmarks: []models.HandLandmark{},
		UseSimulation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/interpret-gesture", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	var reply interpretReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &reply, nil
}

// APIError is a non-200 reply from the backend.
type APIError struct {
	StatusCode int
	Err        string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s: %s", e.StatusCode, e.Err, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Err)
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Err == "" {
		apiErr.Err = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
