package cozmo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ottobotics/go-cozmo/internal/config"
	"github.com/ottobotics/go-cozmo/internal/httpc"
)

// commandTimeout bounds every bridge HTTP call so a wedged bridge cannot
// block command issuance indefinitely.
const commandTimeout = 2 * time.Second

// BridgeClient implements Client using the bridge daemon's HTTP API for
// commands and its websocket feed for camera frames and events.
type BridgeClient struct {
	BaseURL   string
	EventsURL string

	http *http.Client

	mu          sync.Mutex
	onFrame     func([]byte)
	onAudioDone func()
	events      *eventStream
	connected   bool
}

// NewBridgeClient creates a client for the bridge daemon on the given host.
func NewBridgeClient(host string) *BridgeClient {
	return &BridgeClient{
		BaseURL:   config.BridgeAPIURL(host),
		EventsURL: config.BridgeEventsURL(host),
		http:      httpc.NewClient(commandTimeout),
	}
}

// OnCameraFrame registers the camera frame callback. Must be called before
// Connect.
func (b *BridgeClient) OnCameraFrame(fn func(jpeg []byte)) {
	b.mu.Lock()
	b.onFrame = fn
	b.mu.Unlock()
}

// OnAudioDone registers the audio completion callback. Must be called before
// Connect.
func (b *BridgeClient) OnAudioDone(fn func()) {
	b.mu.Lock()
	b.onAudioDone = fn
	b.mu.Unlock()
}

// Connect waits for the bridge to report a ready robot, then opens the
// event feed. The context bounds the whole handshake.
func (b *BridgeClient) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connected {
		return nil
	}

	if err := b.waitReady(ctx); err != nil {
		return fmt.Errorf("bridge not ready: %w", err)
	}

	es, err := openEventStream(ctx, b.EventsURL, b.onFrame, b.onAudioDone)
	if err != nil {
		return fmt.Errorf("event feed: %w", err)
	}
	b.events = es
	b.connected = true
	return nil
}

// waitReady polls the bridge status endpoint until the robot is up.
func (b *BridgeClient) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		ok, err := b.ready(ctx)
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("%w (last status error: %v)", ctx.Err(), err)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *BridgeClient) ready(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.BaseURL+"/api/status", nil)
	if err != nil {
		return false, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var status struct {
		Robot string `json:"robot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("failed to decode bridge status: %w", err)
	}
	return status.Robot == "ready", nil
}

// Close shuts down the event feed. The bridge keeps its own robot
// connection; closing the client does not power anything off.
func (b *BridgeClient) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil
	}
	b.connected = false
	if b.events != nil {
		return b.events.Close()
	}
	return nil
}

// DriveWheels sets the wheel speeds in mm/s.
func (b *BridgeClient) DriveWheels(leftMmps, rightMmps float64) error {
	return b.post("/api/motors/wheels", map[string]float64{
		"lwheel_speed": leftMmps,
		"rwheel_speed": rightMmps,
	})
}

// StopAllMotors stops the wheels, head and lift motors.
func (b *BridgeClient) StopAllMotors() error {
	return b.post("/api/motors/stop", struct{}{})
}

// SetHeadAngle sets the head angle in radians.
func (b *BridgeClient) SetHeadAngle(rad float64) error {
	return b.post("/api/head/angle", map[string]float64{"angle_rad": rad})
}

// SetLiftHeight sets the lift height in millimeters.
func (b *BridgeClient) SetLiftHeight(mm float64) error {
	return b.post("/api/lift/height", map[string]float64{"height_mm": mm})
}

// EnableCamera turns the camera on and sets the bridge's JPEG encoding.
func (b *BridgeClient) EnableCamera(color bool, quality int) error {
	return b.post("/api/camera/enable", map[string]any{
		"color":   color,
		"quality": config.JPEGQuality(quality),
	})
}

// PlayAudio plays a WAV file by path on the bridge host.
func (b *BridgeClient) PlayAudio(path string) error {
	return b.post("/api/audio/play", map[string]string{"path": path})
}

// post sends a JSON command to the bridge API.
func (b *BridgeClient) post(path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", path, err)
	}

	resp, err := b.http.Post(b.BaseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("bridge request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("bridge request %s failed: status %d", path, resp.StatusCode)
	}
	return nil
}
