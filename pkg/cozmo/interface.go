// Package cozmo talks to the pycozmo bridge daemon that owns the actual
// UDP connection to the robot. The bridge exposes motor, head, lift, camera
// and audio commands over HTTP and pushes camera frames and events over a
// websocket feed. Nothing in this package speaks the Cozmo wire protocol.
//
// The package follows the Interface Segregation Principle: small, focused
// interfaces that can be composed as needed. Consumers should depend only
// on the interfaces they actually use.
package cozmo

import "context"

// Driver provides wheel motor control.
// Use this minimal interface when only driving is needed.
type Driver interface {
	DriveWheels(leftMmps, rightMmps float64) error
	StopAllMotors() error
}

// Mover provides head and lift actuator control.
// Angles are radians, heights are millimeters; callers are expected to
// clamp values to the device limits before sending.
type Mover interface {
	SetHeadAngle(rad float64) error
	SetLiftHeight(mm float64) error
}

// CameraController enables the robot camera. Quality is the JPEG encoder
// quality (1-95) applied by the bridge before frames hit the event feed.
type CameraController interface {
	EnableCamera(color bool, quality int) error
}

// AudioPlayer plays a WAV file that is reachable from the bridge host.
type AudioPlayer interface {
	PlayAudio(path string) error
}

// Client is the composite interface for a full bridge connection.
// Event callbacks must be registered before Connect; they are invoked from
// the client's read goroutine and must not block.
type Client interface {
	Driver
	Mover
	CameraController
	AudioPlayer

	Connect(ctx context.Context) error
	Close() error

	// OnCameraFrame registers a callback for each new JPEG camera frame.
	OnCameraFrame(fn func(jpeg []byte))
	// OnAudioDone registers a callback for audio playback completion.
	OnAudioDone(fn func())
}

// Ensure BridgeClient implements Client
var _ Client = (*BridgeClient)(nil)
