package cozmo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ottobotics/go-cozmo/internal/log"
)

// eventStream consumes the bridge's websocket feed. Camera frames arrive as
// binary messages (ready-encoded JPEG); everything else is a small JSON
// event envelope on a text message.
type eventStream struct {
	ws          *websocket.Conn
	onFrame     func([]byte)
	onAudioDone func()
	closed      chan struct{}
}

// openEventStream dials the feed and starts the read loop.
func openEventStream(ctx context.Context, url string, onFrame func([]byte), onAudioDone func()) (*eventStream, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("event feed connect failed: %w", err)
	}

	es := &eventStream{
		ws:          ws,
		onFrame:     onFrame,
		onAudioDone: onAudioDone,
		closed:      make(chan struct{}),
	}
	go es.readLoop()
	return es, nil
}

func (es *eventStream) readLoop() {
	for {
		msgType, msg, err := es.ws.ReadMessage()
		if err != nil {
			select {
			case <-es.closed:
				// Shutting down, not an error.
			default:
				log.Warn("bridge event feed closed", "err", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if es.onFrame != nil {
				// Copy: gorilla reuses its read buffer.
				frame := make([]byte, len(msg))
				copy(frame, msg)
				es.onFrame(frame)
			}
		case websocket.TextMessage:
			es.handleEvent(msg)
		}
	}
}

func (es *eventStream) handleEvent(msg []byte) {
	var event struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		log.Debug("unparseable bridge event", "err", err)
		return
	}

	switch event.Event {
	case "audio_done":
		if es.onAudioDone != nil {
			es.onAudioDone()
		}
	default:
		log.Debug("ignoring bridge event", "event", event.Event)
	}
}

// Close stops the read loop and closes the websocket.
func (es *eventStream) Close() error {
	close(es.closed)
	return es.ws.Close()
}
