// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the size of the length prefix on every frame.
const HeaderSize = 4

// MaxPayloadSize bounds the declared length of an incoming frame. It
// matches the OpenSSH agent's message limit; no legitimate request
// comes close to it.
const MaxPayloadSize = 256 * 1024

// ErrPayloadTooLarge is reported in a [Failed] result when a frame
// header declares a payload larger than [MaxPayloadSize].
var ErrPayloadTooLarge = errors.New("wire: frame payload exceeds maximum size")

// Status tags the outcome of [ReadFrame].
type Status int

const (
	// Message means a complete frame was read. Result.Payload holds it.
	Message Status = iota

	// Closed means the stream ended before the first byte of a length
	// prefix: the peer disconnected cleanly between messages.
	Closed

	// Failed means the stream broke mid-frame, a read failed (reset,
	// timeout), or the frame was malformed. Result.Err holds the cause.
	Failed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Message:
		return "message"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the tagged outcome of reading one frame.
type Result struct {
	Status  Status
	Payload []byte
	Err     error
}

// Frame returns payload prefixed with its 4-byte big-endian length.
func Frame(payload []byte) []byte {
	framed := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(framed, uint32(len(payload)))
	copy(framed[HeaderSize:], payload)
	return framed
}

// WriteFrame writes payload to w as a single frame. The header and
// payload go out in one Write so a concurrent reader never observes a
// header without its body.
func WriteFrame(w io.Writer, payload []byte) error {
	if _, err := w.Write(Frame(payload)); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r. It blocks until the full header and
// payload have arrived, the stream ends, or r returns an error.
func ReadFrame(r io.Reader) Result {
	var header [HeaderSize]byte
	count, err := io.ReadFull(r, header[:])
	if err != nil {
		if count == 0 && errors.Is(err, io.EOF) {
			return Result{Status: Closed}
		}
		return Result{Status: Failed, Err: fmt.Errorf("reading frame header: %w", err)}
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > MaxPayloadSize {
		return Result{Status: Failed, Err: fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, length)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Result{Status: Failed, Err: fmt.Errorf("reading %d-byte frame payload: %w", length, err)}
	}

	return Result{Status: Message, Payload: payload}
}
