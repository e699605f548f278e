package control

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ottobotics/go-cozmo/pkg/cozmo"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// mockClient records all bridge commands for testing. Every command also
// tracks whether another command was in flight at the same time, which lets
// the tests verify that the controller serializes device writes.
type mockClient struct {
	mu          sync.Mutex
	wheelCalls  []struct{ left, right float64 }
	headAngles  []float64
	liftHeights []float64
	stopCalls   int
	audioPaths  []string
	camColor    bool
	camQuality  int

	connectErr error
	headErr    error
	stopErr    error
	closeErr   error

	frameFn func([]byte)

	busy    int32
	overlap atomic.Bool
}

func (m *mockClient) enter() {
	if !atomic.CompareAndSwapInt32(&m.busy, 0, 1) {
		m.overlap.Store(true)
	}
	time.Sleep(100 * time.Microsecond)
}

func (m *mockClient) exit() {
	atomic.StoreInt32(&m.busy, 0)
}

func (m *mockClient) Connect(ctx context.Context) error { return m.connectErr }

func (m *mockClient) Close() error { return m.closeErr }

func (m *mockClient) OnCameraFrame(fn func([]byte)) { m.frameFn = fn }

func (m *mockClient) OnAudioDone(fn func()) {}

func (m *mockClient) DriveWheels(left, right float64) error {
	m.enter()
	defer m.exit()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wheelCalls = append(m.wheelCalls, struct{ left, right float64 }{left, right})
	return nil
}

func (m *mockClient) StopAllMotors() error {
	m.enter()
	defer m.exit()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	return m.stopErr
}

func (m *mockClient) SetHeadAngle(rad float64) error {
	m.enter()
	defer m.exit()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.headErr != nil {
		return m.headErr
	}
	m.headAngles = append(m.headAngles, rad)
	return nil
}

func (m *mockClient) SetLiftHeight(mm float64) error {
	m.enter()
	defer m.exit()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liftHeights = append(m.liftHeights, mm)
	return nil
}

func (m *mockClient) EnableCamera(color bool, quality int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.camColor = color
	m.camQuality = quality
	return nil
}

func (m *mockClient) PlayAudio(path string) error {
	m.enter()
	defer m.exit()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audioPaths = append(m.audioPaths, path)
	return nil
}

func (m *mockClient) lastWheels() (left, right float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.wheelCalls) == 0 {
		return 0, 0
	}
	last := m.wheelCalls[len(m.wheelCalls)-1]
	return last.left, last.right
}

func connected(t *testing.T) (*Controller, *mockClient) {
	t.Helper()
	mock := &mockClient{}
	ctrl := New(mock, Config{ColorCamera: true, JPEGQuality: 70})
	if err := ctrl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return ctrl, mock
}

func TestController_ConnectRaisesHead(t *testing.T) {
	ctrl, mock := connected(t)

	want := (cozmo.MaxHeadAngle - cozmo.MinHeadAngle) / 2.0
	if len(mock.headAngles) != 1 || !floatEquals(mock.headAngles[0], want) {
		t.Errorf("head on connect: got %v, want [%v]", mock.headAngles, want)
	}
	if !mock.camColor || mock.camQuality != 70 {
		t.Errorf("camera: got color=%v quality=%d, want color=true quality=70", mock.camColor, mock.camQuality)
	}
	if !ctrl.Status().Connected {
		t.Error("Status().Connected: got false, want true")
	}
}

func TestController_HeadStaysInBounds(t *testing.T) {
	ctrl, mock := connected(t)

	for i := 0; i < 100; i++ {
		if err := ctrl.HeadUp(); err != nil {
			t.Fatalf("HeadUp: %v", err)
		}
	}
	for _, a := range mock.headAngles {
		if a < cozmo.MinHeadAngle-floatTolerance || a > cozmo.MaxHeadAngle+floatTolerance {
			t.Fatalf("head angle %v outside [%v, %v]", a, cozmo.MinHeadAngle, cozmo.MaxHeadAngle)
		}
	}
	if got := ctrl.Status().HeadAngleRad; !floatEquals(got, cozmo.MaxHeadAngle) {
		t.Errorf("head setpoint after 100 ups: got %v, want %v", got, cozmo.MaxHeadAngle)
	}

	for i := 0; i < 200; i++ {
		if err := ctrl.HeadDown(); err != nil {
			t.Fatalf("HeadDown: %v", err)
		}
	}
	if got := ctrl.Status().HeadAngleRad; !floatEquals(got, cozmo.MinHeadAngle) {
		t.Errorf("head setpoint after 200 downs: got %v, want %v", got, cozmo.MinHeadAngle)
	}
}

func TestController_LiftStaysInBounds(t *testing.T) {
	ctrl, mock := connected(t)

	for i := 0; i < 50; i++ {
		if err := ctrl.LiftUp(); err != nil {
			t.Fatalf("LiftUp: %v", err)
		}
	}
	for _, h := range mock.liftHeights {
		if h < cozmo.MinLiftHeight-floatTolerance || h > cozmo.MaxLiftHeight+floatTolerance {
			t.Fatalf("lift height %v outside [%v, %v]", h, cozmo.MinLiftHeight, cozmo.MaxLiftHeight)
		}
	}
	if got := ctrl.Status().LiftHeightMm; !floatEquals(got, cozmo.MaxLiftHeight) {
		t.Errorf("lift setpoint after 50 ups: got %v, want %v", got, cozmo.MaxLiftHeight)
	}

	for i := 0; i < 50; i++ {
		if err := ctrl.LiftDown(); err != nil {
			t.Fatalf("LiftDown: %v", err)
		}
	}
	if got := ctrl.Status().LiftHeightMm; !floatEquals(got, cozmo.MinLiftHeight) {
		t.Errorf("lift setpoint after 50 downs: got %v, want %v", got, cozmo.MinLiftHeight)
	}
}

func TestController_SetSpeedClamps(t *testing.T) {
	ctrl := New(&mockClient{}, Config{})

	cases := []struct{ in, want int }{
		{300, 250},
		{-20, 0},
		{100, 100},
		{250, 250},
		{0, 0},
	}
	for _, tc := range cases {
		if got := ctrl.SetSpeed(tc.in); got != tc.want {
			t.Errorf("SetSpeed(%d): got %d, want %d", tc.in, got, tc.want)
		}
		if got := ctrl.Speed(); got != tc.want {
			t.Errorf("Speed() after SetSpeed(%d): got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestController_NotConnected(t *testing.T) {
	mock := &mockClient{}
	ctrl := New(mock, Config{})

	if err := ctrl.Drive(100, 100); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Drive: got %v, want ErrNotConnected", err)
	}
	if err := ctrl.HeadUp(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HeadUp: got %v, want ErrNotConnected", err)
	}
	if err := ctrl.Stop(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Stop: got %v, want ErrNotConnected", err)
	}
	if len(mock.wheelCalls) != 0 || mock.stopCalls != 0 {
		t.Error("device commands issued while disconnected")
	}
}

func TestController_HeadErrorKeepsSetpoint(t *testing.T) {
	ctrl, mock := connected(t)
	before := ctrl.Status().HeadAngleRad

	mock.mu.Lock()
	mock.headErr = errors.New("bridge down")
	mock.mu.Unlock()

	if err := ctrl.HeadUp(); err == nil {
		t.Fatal("HeadUp: got nil, want error")
	}
	if got := ctrl.Status().HeadAngleRad; !floatEquals(got, before) {
		t.Errorf("setpoint advanced despite error: got %v, want %v", got, before)
	}
}

func TestController_DisconnectBestEffort(t *testing.T) {
	ctrl, mock := connected(t)

	mock.mu.Lock()
	mock.stopErr = errors.New("stop failed")
	mock.closeErr = errors.New("close failed")
	mock.mu.Unlock()

	ctrl.Disconnect() // must not panic or return the errors

	if ctrl.Status().Connected {
		t.Error("Status().Connected after Disconnect: got true, want false")
	}
	if err := ctrl.Drive(10, 10); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Drive after Disconnect: got %v, want ErrNotConnected", err)
	}
}

func TestController_FrameBufferKeepsLatestOnly(t *testing.T) {
	ctrl, mock := connected(t)

	mock.frameFn([]byte("frame-1"))
	mock.frameFn([]byte("frame-2"))
	mock.frameFn([]byte("frame-three"))

	got := ctrl.LastFrame()
	if string(got) != "frame-three" {
		t.Fatalf("LastFrame: got %q, want %q", got, "frame-three")
	}

	// Mutating the returned slice must not touch the buffer.
	got[0] = 'X'
	if string(ctrl.LastFrame()) != "frame-three" {
		t.Error("LastFrame returned a view into the buffer, want a copy")
	}
}

func TestController_LastFrameNilBeforeFirstFrame(t *testing.T) {
	ctrl, _ := connected(t)
	if got := ctrl.LastFrame(); got != nil {
		t.Errorf("LastFrame before any frame: got %v, want nil", got)
	}
}

func TestController_WaitFrame(t *testing.T) {
	ctrl, mock := connected(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		mock.frameFn([]byte("jpeg"))
	}()

	frame, seq := ctrl.WaitFrame(0, 500*time.Millisecond)
	if string(frame) != "jpeg" {
		t.Fatalf("WaitFrame: got %q, want %q", frame, "jpeg")
	}
	if seq == 0 {
		t.Error("WaitFrame: sequence did not advance")
	}

	// No newer frame: must time out with nil.
	frame, seq2 := ctrl.WaitFrame(seq, 30*time.Millisecond)
	if frame != nil || seq2 != seq {
		t.Errorf("WaitFrame timeout: got (%q, %d), want (nil, %d)", frame, seq2, seq)
	}
}

func TestController_CommandsSerialized(t *testing.T) {
	ctrl, mock := connected(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				switch (n + j) % 4 {
				case 0:
					ctrl.Drive(100, 100)
				case 1:
					ctrl.HeadUp()
				case 2:
					ctrl.LiftDown()
				case 3:
					ctrl.Stop()
				}
			}
		}(i)
	}
	wg.Wait()

	if mock.overlap.Load() {
		t.Error("device writes interleaved, want serialized commands")
	}
}

func TestController_FrameReadsNotBlockedByCommands(t *testing.T) {
	ctrl, mock := connected(t)
	mock.frameFn([]byte("jpeg"))

	// Keep the command lock busy in the background.
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			ctrl.Drive(50, 50)
		}
		close(release)
	}()

	// Frame reads must complete while commands are in flight.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ctrl.LastFrame() == nil {
			t.Fatal("LastFrame: lost frame during command burst")
		}
		select {
		case <-release:
			wg.Wait()
			if l, r := mock.lastWheels(); l != 50 || r != 50 {
				t.Errorf("lastWheels: got (%v, %v), want (50, 50)", l, r)
			}
			return
		default:
		}
	}
	t.Fatal("command burst did not finish, frame reads may be blocked")
}
