package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ottobotics/go-cozmo/pkg/control"
)

// API maps the REST control endpoints onto a controller. Both web variants
// mount it; the dashboard just swaps the camera transport.
type API struct {
	ctrl *control.Controller
}

// NewAPI creates the REST control surface for a controller.
func NewAPI(ctrl *control.Controller) *API {
	return &API{ctrl: ctrl}
}

// Register mounts the control endpoints on a router (typically an /api group).
func (a *API) Register(r fiber.Router) {
	r.Get("/status", a.handleStatus)
	r.Post("/drive", a.handleDrive)
	r.Post("/head", a.handleHead)
	r.Post("/lift", a.handleLift)
	// Stop is reachable via GET as well so navigator.sendBeacon and plain
	// links work on page unload.
	r.Post("/stop", a.handleStop)
	r.Get("/stop", a.handleStop)
}

// driveRequest is the body of POST /api/drive.
type driveRequest struct {
	Action string `json:"action"`
	Speed  *int   `json:"speed"`
}

// dirRequest is the body of POST /api/head and POST /api/lift.
type dirRequest struct {
	Dir string `json:"dir"`
}

func (a *API) handleStatus(c *fiber.Ctx) error {
	return c.JSON(a.ctrl.Status())
}

func (a *API) handleDrive(c *fiber.Ctx) error {
	var req driveRequest
	if err := c.BodyParser(&req); err != nil {
		// Malformed bodies fall through to action validation below.
		req = driveRequest{}
	}

	speed := a.ctrl.Speed()
	if req.Speed != nil {
		speed = a.ctrl.SetSpeed(*req.Speed)
	}
	s := float64(speed)

	var err error
	switch strings.ToLower(req.Action) {
	case "forward":
		err = a.ctrl.Drive(s, s)
	case "backward":
		err = a.ctrl.Drive(-s, -s)
	case "left":
		err = a.ctrl.Drive(-s, s)
	case "right":
		err = a.ctrl.Drive(s, -s)
	default:
		return badRequest(c, "invalid action")
	}
	return commandResult(c, err)
}

func (a *API) handleHead(c *fiber.Ctx) error {
	var req dirRequest
	if err := c.BodyParser(&req); err != nil {
		req = dirRequest{}
	}

	var err error
	switch strings.ToLower(req.Dir) {
	case "up":
		err = a.ctrl.HeadUp()
	case "down":
		err = a.ctrl.HeadDown()
	default:
		return badRequest(c, "invalid dir")
	}
	return commandResult(c, err)
}

func (a *API) handleLift(c *fiber.Ctx) error {
	var req dirRequest
	if err := c.BodyParser(&req); err != nil {
		req = dirRequest{}
	}

	var err error
	switch strings.ToLower(req.Dir) {
	case "up":
		err = a.ctrl.LiftUp()
	case "down":
		err = a.ctrl.LiftDown()
	default:
		return badRequest(c, "invalid dir")
	}
	return commandResult(c, err)
}

func (a *API) handleStop(c *fiber.Ctx) error {
	return commandResult(c, a.ctrl.Stop())
}

// badRequest rejects invalid input with a short message. No device command
// is issued on this path.
func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// commandResult returns the boolean-success envelope, or surfaces the
// command error unretried.
func commandResult(c *fiber.Ctx, err error) error {
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}
