// Package web provides the REST + MJPEG remote control server for Cozmo.
package web

import (
	"bufio"
	_ "embed"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/ottobotics/go-cozmo/internal/log"
	"github.com/ottobotics/go-cozmo/pkg/control"
)

//go:embed index.html
var indexHTML string

// Server serves the control page, the REST API and the MJPEG camera stream.
type Server struct {
	app  *fiber.App
	ctrl *control.Controller
	addr string
	stop chan struct{}
}

// New creates the rc-web server around an injected controller.
func New(ctrl *control.Controller, addr string) *Server {
	s := &Server{
		ctrl: ctrl,
		addr: addr,
		stop: make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Cozmo RC",
		DisableStartupMessage: true,
	})

	// CORS so the page can be embedded or hit from other local frontends
	app.Use(cors.New())

	app.Get("/", s.handleIndex)
	app.Get("/stream", s.handleStream)

	NewAPI(ctrl).Register(app.Group("/api"))

	s.app = app
	return s
}

// Start runs the server. Blocks until Shutdown.
func (s *Server) Start() error {
	log.Info("rc-web listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops active streams and the fiber app.
func (s *Server) Shutdown() error {
	close(s.stop)
	return s.app.Shutdown()
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(indexHTML)
}

// handleStream serves the MJPEG camera stream. Each connection gets its own
// writer goroutine; the stream restarts cleanly on reconnect.
func (s *Server) handleStream(c *fiber.Ctx) error {
	// Discourage any caching or transformation on the path
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate, private")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
	// Honored by some reverse proxies (e.g. nginx), harmless elsewhere
	c.Set("X-Accel-Buffering", "no")
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+streamBoundary)

	ctrl, stop := s.ctrl, s.stop
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		streamMJPEG(w, ctrl, stop)
	})
	return nil
}
