// Package config provides configuration helpers for go-cozmo commands.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Default bridge configuration.
const (
	DefaultBridgePort = "9128"
	DefaultJPEGQual   = 70
)

// BridgeHost returns the bridge host from the COZMO_BRIDGE env var.
// Falls back to the provided default if not set.
func BridgeHost(defaultHost string) string {
	if host := os.Getenv("COZMO_BRIDGE"); host != "" {
		return host
	}
	return defaultHost
}

// BridgeHostRequired returns the bridge host from the COZMO_BRIDGE env var.
// Exits with usage help if not set.
func BridgeHostRequired() string {
	host := os.Getenv("COZMO_BRIDGE")
	if host == "" {
		fmt.Fprintln(os.Stderr, "Error: COZMO_BRIDGE environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: COZMO_BRIDGE=192.168.42.1 go run ./cmd/...")
		os.Exit(1)
	}
	return host
}

// BridgeAPIURL returns the bridge HTTP API URL.
func BridgeAPIURL(host string) string {
	return fmt.Sprintf("http://%s:%s", host, DefaultBridgePort)
}

// BridgeEventsURL returns the bridge websocket event feed URL.
func BridgeEventsURL(host string) string {
	return fmt.Sprintf("ws://%s:%s/events", host, DefaultBridgePort)
}

// ColorCamera reports whether the color camera should be enabled,
// from the COZMO_COLOR env var ("1"/"true"). Defaults to false.
func ColorCamera() bool {
	v, err := strconv.ParseBool(os.Getenv("COZMO_COLOR"))
	return err == nil && v
}

// JPEGQuality clamps a requested JPEG quality to the encoder's valid
// range (1-95). Lower quality means fewer bytes on the wire.
func JPEGQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 95 {
		return 95
	}
	return q
}
