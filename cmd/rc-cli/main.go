// Cozmo RC cli - keyboard remote control with a live camera window.
//
// Controls:
//
//	w - forward
//	s - backward
//	a - turn left
//	d - turn right
//	r - raise head
//	f - lower head
//	t - raise lift
//	g - lower lift
//	p - play the --wav file on the robot
//	space - stop motors
//	ESC - exit
//
// The keyboard is polled once per displayed frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gocv.io/x/gocv"

	"github.com/ottobotics/go-cozmo/internal/config"
	"github.com/ottobotics/go-cozmo/internal/log"
	"github.com/ottobotics/go-cozmo/pkg/control"
	"github.com/ottobotics/go-cozmo/pkg/cozmo"
)

const connectTimeout = 30 * time.Second

func main() {
	bridge := flag.String("bridge", "", "pycozmo bridge host (overrides COZMO_BRIDGE)")
	speed := flag.Int("speed", control.DefaultSpeed, "Drive speed in mm/s (0-250)")
	color := flag.Bool("color", true, "Enable color camera")
	quality := flag.Int("jpeg-quality", config.DefaultJPEGQual, "JPEG quality (1-95)")
	wav := flag.String("wav", "", "WAV file on the bridge host, played with 'p'")
	level := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*level)

	bridgeHost := *bridge
	if bridgeHost == "" {
		bridgeHost = config.BridgeHostRequired()
	}

	fmt.Println("🤖 Cozmo RC")
	fmt.Printf("Bridge: %s\n", bridgeHost)
	fmt.Println("Keys: w/a/s/d drive, r/f head, t/g lift, space stop, ESC exit")

	cli := cozmo.NewBridgeClient(bridgeHost)
	ctrl := control.New(cli, control.Config{
		ColorCamera: *color,
		JPEGQuality: config.JPEGQuality(*quality),
	})

	connectCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ctrl.Connect(connectCtx); err != nil {
		fmt.Printf("❌ Connect failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Robot ready")

	mmps := float64(ctrl.SetSpeed(*speed))

	window := gocv.NewWindow("Cozmo")
	defer window.Close()

	run(ctrl, window, mmps, *wav)

	if err := ctrl.Stop(); err != nil {
		log.Warn("stop on exit", "err", err)
	}
	ctrl.Disconnect()
	fmt.Println("👋 Goodbye!")
}

// run shows frames and dispatches keys until ESC.
func run(ctrl *control.Controller, window *gocv.Window, mmps float64, wav string) {
	for {
		if frame := ctrl.LastFrame(); frame != nil {
			img, err := gocv.IMDecode(frame, gocv.IMReadColor)
			if err == nil && !img.Empty() {
				window.IMShow(img)
			}
			img.Close()
		}

		var err error
		switch key := window.WaitKey(33); key {
		case 27: // ESC
			return
		case 'w':
			err = ctrl.Drive(mmps, mmps)
		case 's':
			err = ctrl.Drive(-mmps, -mmps)
		case 'a':
			err = ctrl.Drive(-mmps, mmps)
		case 'd':
			err = ctrl.Drive(mmps, -mmps)
		case 'r':
			err = ctrl.HeadUp()
		case 'f':
			err = ctrl.HeadDown()
		case 't':
			err = ctrl.LiftUp()
		case 'g':
			err = ctrl.LiftDown()
		case ' ':
			err = ctrl.Stop()
		case 'p':
			if wav != "" {
				err = ctrl.PlayAudio(wav)
			}
		}
		if err != nil {
			log.Warn("command failed", "err", err)
		}
	}
}
