// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"context"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/bureau-foundation/keyagent/lib/wire"
)

func TestHandleConnectionEmptyStream(t *testing.T) {
	conn := newFakeConn(nil)
	HandleConnection(context.Background(), conn, NewHandler(nil, nil), ConnectionOptions{})

	if written := conn.written(); len(written) != 0 {
		t.Errorf("wrote %x to a connection that sent nothing", written)
	}
	if !conn.closed.Load() {
		t.Error("connection not closed")
	}
}

func TestHandleConnectionIdentityRequests(t *testing.T) {
	handler := NewHandler(nil, nil)

	tests := []struct {
		name    string
		request Opcode
		want    []byte
	}{
		{"legacy", RequestLegacyIdentities, []byte("\x00\x00\x00\x05\x02\x00\x00\x00\x00")},
		{"current", RequestIdentities, []byte("\x00\x00\x00\x05\x0C\x00\x00\x00\x00")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conn := newFakeConn(wire.Frame([]byte{byte(test.request)}))
			HandleConnection(context.Background(), conn, handler, ConnectionOptions{})

			if got := conn.written(); !bytes.Equal(got, test.want) {
				t.Errorf("wrote %q, want %q", got, test.want)
			}
		})
	}
}

func TestHandleConnectionTransportErrorThenEOF(t *testing.T) {
	conn := &fakeConn{reads: []error{errFakeTransport, io.EOF}}

	// Must return normally even with no handler.
	HandleConnection(context.Background(), conn, nil, ConnectionOptions{})

	if !conn.closed.Load() {
		t.Error("connection not closed after transport error")
	}
	if len(conn.written()) != 0 {
		t.Errorf("wrote %x after a transport error", conn.written())
	}
}

func TestHandleConnectionResetIsQuiet(t *testing.T) {
	conn := &fakeConn{reads: []error{syscall.ECONNRESET}}
	HandleConnection(context.Background(), conn, NewHandler(nil, nil), ConnectionOptions{})
	if !conn.closed.Load() {
		t.Error("connection not closed after reset")
	}
}

func TestHandleConnectionSequentialRequests(t *testing.T) {
	key := KeyEntry{Blob: []byte("blob"), Comment: "c"}
	signer := &recordingSigner{signature: []byte("sig")}
	handler := NewHandler([]KeyEntry{key}, signer)

	var input bytes.Buffer
	input.Write(wire.Frame([]byte{byte(RequestIdentities)}))
	input.Write(wire.Frame(signRequest(key.Blob, []byte("data"), 0)))
	input.Write(wire.Frame([]byte{0x63}))

	conn := newFakeConn(input.Bytes())
	HandleConnection(context.Background(), conn, handler, ConnectionOptions{})

	output := bytes.NewReader(conn.written())
	var opcodes []Opcode
	for {
		result := wire.ReadFrame(output)
		if result.Status != wire.Message {
			break
		}
		opcodes = append(opcodes, Opcode(result.Payload[0]))
	}

	want := []Opcode{IdentitiesAnswer, SignResponse, Failure}
	if len(opcodes) != len(want) {
		t.Fatalf("responses = %v, want %v", opcodes, want)
	}
	for index := range want {
		if opcodes[index] != want[index] {
			t.Errorf("response %d = %v, want %v", index, opcodes[index], want[index])
		}
	}
}

func TestHandleConnectionStopsAtTruncatedFrame(t *testing.T) {
	var input bytes.Buffer
	input.Write(wire.Frame([]byte{byte(RequestIdentities)}))
	input.Write([]byte{0, 0, 0, 9, byte(RequestIdentities)})

	conn := newFakeConn(input.Bytes())
	HandleConnection(context.Background(), conn, NewHandler(nil, nil), ConnectionOptions{})

	want := wire.Frame([]byte{byte(IdentitiesAnswer), 0, 0, 0, 0})
	if got := conn.written(); !bytes.Equal(got, want) {
		t.Errorf("wrote %x, want only the first response %x", got, want)
	}
}

func TestHandleConnectionOversizedFrame(t *testing.T) {
	conn := newFakeConn([]byte{0xff, 0xff, 0xff, 0xff})
	HandleConnection(context.Background(), conn, NewHandler(nil, nil), ConnectionOptions{})
	if len(conn.written()) != 0 {
		t.Errorf("answered an oversized frame: %x", conn.written())
	}
}

func TestHandleConnectionWriteFailure(t *testing.T) {
	var input bytes.Buffer
	input.Write(wire.Frame([]byte{byte(RequestIdentities)}))
	input.Write(wire.Frame([]byte{byte(RequestIdentities)}))

	conn := newFakeConn(input.Bytes())
	conn.writeErr = syscall.EPIPE
	HandleConnection(context.Background(), conn, NewHandler(nil, nil), ConnectionOptions{})

	if !conn.closed.Load() {
		t.Error("connection not closed after write failure")
	}
	if remaining := conn.rx.(*bytes.Reader).Len(); remaining == 0 {
		t.Error("kept reading after a write failure")
	}
}

func TestHandleConnectionRecoversFromSignerPanic(t *testing.T) {
	key := KeyEntry{Blob: []byte("blob")}
	handler := NewHandler([]KeyEntry{key}, SignerFunc(func(context.Context, []byte, []byte, uint32) ([]byte, error) {
		panic("signer exploded")
	}))

	conn := newFakeConn(wire.Frame(signRequest(key.Blob, []byte("data"), 0)))
	HandleConnection(context.Background(), conn, handler, ConnectionOptions{})

	if !conn.closed.Load() {
		t.Error("connection not closed after signer panic")
	}
}

func TestHandleConnectionArmsDeadline(t *testing.T) {
	conn := newFakeConn(wire.Frame([]byte{byte(RequestIdentities)}))
	HandleConnection(context.Background(), conn, NewHandler(nil, nil), ConnectionOptions{IdleTimeout: time.Minute})

	// One before the request read, one before the response write, one
	// before the read that sees end of stream.
	if conn.deadlines != 3 {
		t.Errorf("SetDeadline called %d times, want 3", conn.deadlines)
	}

	conn = newFakeConn(wire.Frame([]byte{byte(RequestIdentities)}))
	HandleConnection(context.Background(), conn, NewHandler(nil, nil), ConnectionOptions{})
	if conn.deadlines != 0 {
		t.Errorf("SetDeadline called %d times with the timeout disabled", conn.deadlines)
	}
}
