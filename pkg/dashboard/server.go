// Package dashboard is the websocket variant of the remote control server.
// It exposes the same REST control endpoints as pkg/web but delivers the
// camera feed and controller status over websockets instead of MJPEG.
package dashboard

import (
	_ "embed"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/ottobotics/go-cozmo/internal/log"
	"github.com/ottobotics/go-cozmo/pkg/control"
	"github.com/ottobotics/go-cozmo/pkg/hub"
	"github.com/ottobotics/go-cozmo/pkg/web"
)

//go:embed dashboard.html
var dashboardHTML string

// statusPeriod is how often the controller status is rebroadcast.
const statusPeriod = time.Second

// Server serves the dashboard page, the REST API and the websocket feeds.
type Server struct {
	app  *fiber.App
	ctrl *control.Controller
	addr string

	cameraHub *hub.Hub
	statusHub *hub.Hub

	stop chan struct{}
}

// New creates the dashboard server around an injected controller.
func New(ctrl *control.Controller, addr string) *Server {
	s := &Server{
		ctrl:      ctrl,
		addr:      addr,
		cameraHub: hub.New("camera"),
		statusHub: hub.New("status"),
		stop:      make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Cozmo RC Dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	web.NewAPI(ctrl).Register(app.Group("/api"))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start launches the hubs and pumps and serves. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.cameraHub.Run()
	go s.statusHub.Run()
	go s.pumpFrames()
	go s.pumpStatus()

	log.Info("rc-dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops the pumps and the fiber app.
func (s *Server) Shutdown() error {
	close(s.stop)
	return s.app.Shutdown()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(dashboardHTML)
}

func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}

func (s *Server) handleStatusWS(c *websocket.Conn) {
	// Register first, then broadcast so the new client sees the current
	// state immediately instead of waiting for the next tick.
	cl := hub.NewClient(s.statusHub, c)
	s.statusHub.BroadcastJSON(s.ctrl.Status())
	cl.Run()
}

// pumpFrames forwards each new camera frame to the camera hub. One pump
// serves all clients; the hub drops the ones that cannot keep up.
func (s *Server) pumpFrames() {
	var seq uint64
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		frame, next := s.ctrl.WaitFrame(seq, 500*time.Millisecond)
		seq = next
		if frame == nil {
			continue
		}
		s.cameraHub.BroadcastBinary(frame)
	}
}

// pumpStatus rebroadcasts the controller status once per second.
func (s *Server) pumpStatus() {
	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			s.statusHub.BroadcastJSON(s.ctrl.Status())
		}
	}
}
