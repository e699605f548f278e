package web

import (
	"bufio"
	"fmt"
	"time"
)

// MJPEG stream parameters.
const (
	streamBoundary = "frame"

	// framePoll is how long a stream waits for a new frame before rechecking
	// its stop channel. The buffer wakes waiters as soon as a frame lands, so
	// this is a liveness tick, not the frame cadence.
	framePoll = 33 * time.Millisecond
)

// frameSource yields camera frames by sequence number. WaitFrame blocks
// until a frame newer than lastSeq arrives or the timeout elapses, returning
// nil on timeout.
type frameSource interface {
	WaitFrame(lastSeq uint64, timeout time.Duration) ([]byte, uint64)
}

// streamMJPEG writes an infinite multipart frame stream. A frame is only
// re-emitted when its byte length differs from the previously sent one;
// equal-length frames are assumed unchanged (cheap dedup, same heuristic the
// browser-facing stream has always used). Returns when the client goes away
// (write error) or stop is closed.
func streamMJPEG(w *bufio.Writer, src frameSource, stop <-chan struct{}) {
	var seq uint64
	lastSent := 0

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, next := src.WaitFrame(seq, framePoll)
		seq = next
		if frame == nil || len(frame) == lastSent {
			continue
		}

		if err := writeFramePart(w, frame); err != nil {
			return
		}
		lastSent = len(frame)
	}
}

// writeFramePart emits one boundary-delimited JPEG part and flushes so the
// frame reaches the client immediately instead of sitting in the buffer.
func writeFramePart(w *bufio.Writer, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n",
		streamBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
