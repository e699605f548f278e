// Package control owns the single bridge connection and serializes all
// motion and pose commands against it. It also buffers the most recent
// camera frame for concurrent readers, so video delivery is never blocked
// behind command issuance.
package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ottobotics/go-cozmo/internal/log"
	"github.com/ottobotics/go-cozmo/pkg/cozmo"
)

// Motion defaults, matching the original RC examples.
const (
	DefaultSpeed = 100 // mm/s
	MaxSpeed     = 250 // mm/s, HTTP-facing clamp
	HeadStep     = 0.1 // radians per increment
	LiftStep     = 5.0 // mm per increment
)

// ErrNotConnected is returned by commands issued before Connect.
var ErrNotConnected = errors.New("control: not connected")

// Config holds camera options applied at connect time.
type Config struct {
	ColorCamera bool
	JPEGQuality int
}

// Status is a snapshot of the controller state for the status endpoints.
type Status struct {
	Connected    bool    `json:"connected"`
	SpeedMmps    int     `json:"speed_mmps"`
	HeadStepRad  float64 `json:"head_step_rad"`
	LiftStepMm   float64 `json:"lift_step_mm"`
	HeadAngleRad float64 `json:"head_angle_rad"`
	LiftHeightMm float64 `json:"lift_height_mm"`
}

// Controller serializes commands to one robot connection.
//
// The command mutex guarantees at most one in-flight command reaches the
// device; the frame buffer has its own lock. There is no queuing or retry:
// a newer command simply overwrites the effect of an older one, and command
// errors propagate to the caller.
type Controller struct {
	cfg Config

	mu         sync.Mutex // guards cli calls, connected flag and setpoints
	cli        cozmo.Client
	connected  bool
	headAngle  float64
	liftHeight float64
	speed      int

	frameMu  sync.RWMutex // guards frame, frameSeq, frameCh
	frame    []byte
	frameSeq uint64
	frameCh  chan struct{} // closed and replaced on every new frame
}

// New creates a controller around a bridge client. The controller is not
// connected until Connect is called.
func New(cli cozmo.Client, cfg Config) *Controller {
	return &Controller{
		cfg:     cfg,
		cli:     cli,
		speed:   DefaultSpeed,
		frameCh: make(chan struct{}),
	}
}

// Connect establishes the bridge connection, raises the head to the middle
// of its range so the camera looks ahead, and enables the camera feed.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	c.cli.OnCameraFrame(c.storeFrame)

	if err := c.cli.Connect(ctx); err != nil {
		return err
	}

	angle := (cozmo.MaxHeadAngle - cozmo.MinHeadAngle) / 2.0
	if err := c.cli.SetHeadAngle(angle); err != nil {
		return err
	}
	c.headAngle = angle
	c.liftHeight = cozmo.MinLiftHeight

	if err := c.cli.EnableCamera(c.cfg.ColorCamera, c.cfg.JPEGQuality); err != nil {
		return err
	}

	c.connected = true
	return nil
}

// Disconnect stops the motors and closes the bridge connection.
// Cleanup is best-effort: failures are logged, never returned.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	if err := c.cli.StopAllMotors(); err != nil {
		log.Warn("stop motors on disconnect", "err", err)
	}
	if err := c.cli.Close(); err != nil {
		log.Warn("close bridge connection", "err", err)
	}
	c.connected = false
}

// Drive sets the wheel speeds in mm/s.
func (c *Controller) Drive(leftMmps, rightMmps float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	return c.cli.DriveWheels(leftMmps, rightMmps)
}

// Stop stops all motors.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	return c.cli.StopAllMotors()
}

// HeadUp raises the head setpoint by one step, clamped to device limits.
func (c *Controller) HeadUp() error {
	return c.moveHead(HeadStep)
}

// HeadDown lowers the head setpoint by one step, clamped to device limits.
func (c *Controller) HeadDown() error {
	return c.moveHead(-HeadStep)
}

func (c *Controller) moveHead(delta float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	angle := cozmo.ClampHeadAngle(c.headAngle + delta)
	if err := c.cli.SetHeadAngle(angle); err != nil {
		return err
	}
	c.headAngle = angle
	return nil
}

// LiftUp raises the lift setpoint by one step, clamped to device limits.
func (c *Controller) LiftUp() error {
	return c.moveLift(LiftStep)
}

// LiftDown lowers the lift setpoint by one step, clamped to device limits.
func (c *Controller) LiftDown() error {
	return c.moveLift(-LiftStep)
}

func (c *Controller) moveLift(delta float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	height := cozmo.ClampLiftHeight(c.liftHeight + delta)
	if err := c.cli.SetLiftHeight(height); err != nil {
		return err
	}
	c.liftHeight = height
	return nil
}

// PlayAudio plays a WAV file by path on the bridge host.
func (c *Controller) PlayAudio(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return ErrNotConnected
	}
	return c.cli.PlayAudio(path)
}

// SetSpeed clamps the requested speed to [0, MaxSpeed], stores it as the
// commanded speed setpoint and returns the clamped value.
func (c *Controller) SetSpeed(mmps int) int {
	if mmps < 0 {
		mmps = 0
	}
	if mmps > MaxSpeed {
		mmps = MaxSpeed
	}
	c.mu.Lock()
	c.speed = mmps
	c.mu.Unlock()
	return mmps
}

// Speed returns the commanded speed setpoint.
func (c *Controller) Speed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Connected:    c.connected,
		SpeedMmps:    c.speed,
		HeadStepRad:  HeadStep,
		LiftStepMm:   LiftStep,
		HeadAngleRad: c.headAngle,
		LiftHeightMm: c.liftHeight,
	}
}

// storeFrame replaces the buffered camera frame and wakes waiters.
// Frames are overwritten, never queued: readers only ever see the latest.
func (c *Controller) storeFrame(jpeg []byte) {
	c.frameMu.Lock()
	c.frame = jpeg
	c.frameSeq++
	close(c.frameCh)
	c.frameCh = make(chan struct{})
	c.frameMu.Unlock()
}

// LastFrame returns a copy of the most recent camera frame, or nil if no
// frame has arrived yet.
func (c *Controller) LastFrame() []byte {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()
	if c.frame == nil {
		return nil
	}
	frame := make([]byte, len(c.frame))
	copy(frame, c.frame)
	return frame
}

// WaitFrame blocks until a frame newer than lastSeq arrives or the timeout
// elapses. It returns the frame (nil on timeout) and the sequence number to
// pass on the next call. Each caller blocks independently; nothing here
// touches the command lock.
func (c *Controller) WaitFrame(lastSeq uint64, timeout time.Duration) ([]byte, uint64) {
	c.frameMu.RLock()
	if c.frameSeq != lastSeq && c.frame != nil {
		frame := make([]byte, len(c.frame))
		copy(frame, c.frame)
		seq := c.frameSeq
		c.frameMu.RUnlock()
		return frame, seq
	}
	ch := c.frameCh
	c.frameMu.RUnlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		c.frameMu.RLock()
		defer c.frameMu.RUnlock()
		if c.frame == nil {
			return nil, lastSeq
		}
		frame := make([]byte, len(c.frame))
		copy(frame, c.frame)
		return frame, c.frameSeq
	case <-timer.C:
		return nil, lastSeq
	}
}
