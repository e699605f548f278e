// Cozmo RC dashboard - the websocket variant of the web remote control.
// Camera frames and controller status are pushed over websockets instead of
// an MJPEG stream; the REST control endpoints are identical to rc-web.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ottobotics/go-cozmo/internal/config"
	"github.com/ottobotics/go-cozmo/internal/log"
	"github.com/ottobotics/go-cozmo/pkg/control"
	"github.com/ottobotics/go-cozmo/pkg/cozmo"
	"github.com/ottobotics/go-cozmo/pkg/dashboard"
)

const connectTimeout = 30 * time.Second

func main() {
	host := flag.String("host", "127.0.0.1", "Bind address")
	port := flag.Int("port", 8081, "Port")
	bridge := flag.String("bridge", "", "pycozmo bridge host (overrides COZMO_BRIDGE)")
	color := flag.Bool("color", false, "Enable color camera")
	quality := flag.Int("jpeg-quality", config.DefaultJPEGQual, "JPEG quality (1-95), lower = smaller frames")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*level)

	bridgeHost := *bridge
	if bridgeHost == "" {
		bridgeHost = config.BridgeHostRequired()
	}

	fmt.Println("🤖 Cozmo RC Dashboard")
	fmt.Printf("Bridge: %s\n\n", bridgeHost)

	cli := cozmo.NewBridgeClient(bridgeHost)
	ctrl := control.New(cli, control.Config{
		ColorCamera: *color || config.ColorCamera(),
		JPEGQuality: config.JPEGQuality(*quality),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("🔌 Connecting to robot...")
	connectCtx, cancelConnect := context.WithTimeout(ctx, connectTimeout)
	defer cancelConnect()
	if err := ctrl.Connect(connectCtx); err != nil {
		fmt.Printf("❌ Connect failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Robot ready")

	srv := dashboard.New(ctrl, fmt.Sprintf("%s:%d", *host, *port))
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("dashboard server stopped", "err", err)
			cancel()
		}
	}()
	fmt.Printf("🌐 Open http://%s:%d\n", *host, *port)

	<-ctx.Done()
	fmt.Println("\n👋 Shutting down...")
	srv.Shutdown()
	ctrl.Disconnect()
}
