// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"

	"golang.org/x/crypto/ssh"
)

// Opcode is the first byte of every agent protocol payload.
type Opcode byte

// Opcodes use the OpenSSH agent protocol numbering.
const (
	RequestLegacyIdentities Opcode = 1
	LegacyIdentitiesAnswer  Opcode = 2
	Failure                 Opcode = 5
	Success                 Opcode = 6
	RequestIdentities       Opcode = 11
	IdentitiesAnswer        Opcode = 12
	SignRequest             Opcode = 13
	SignResponse            Opcode = 14
)

// String returns the protocol name of the opcode, used as a log field
// and a metrics label.
func (o Opcode) String() string {
	switch o {
	case RequestLegacyIdentities:
		return "request_legacy_identities"
	case LegacyIdentitiesAnswer:
		return "legacy_identities_answer"
	case Failure:
		return "failure"
	case Success:
		return "success"
	case RequestIdentities:
		return "request_identities"
	case IdentitiesAnswer:
		return "identities_answer"
	case SignRequest:
		return "sign_request"
	case SignResponse:
		return "sign_response"
	default:
		return "unknown"
	}
}

// Sign request flags defined by the agent protocol. They are passed
// through to the [Signer] untouched; only RSA keys interpret them.
const (
	FlagRSASHA256 uint32 = 2
	FlagRSASHA512 uint32 = 4
)

// signRequestBody is the body of a sign request after the opcode. The
// sshtype tag lets ssh.Unmarshal check the opcode and reject trailing
// bytes.
type signRequestBody struct {
	KeyBlob []byte `sshtype:"13"`
	Data    []byte
	Flags   uint32
}

// signResponseBody wraps a signature for the sign response.
type signResponseBody struct {
	Signature []byte `sshtype:"14"`
}

// Handler answers agent protocol requests from a fixed set of keys and a
// signer. A Handler is immutable after NewHandler returns and is safe
// for concurrent use by any number of connections; a slow signer stalls
// only the connection whose request invoked it.
type Handler struct {
	keys   []KeyEntry
	signer Signer
	logger *slog.Logger
}

// HandlerOption configures optional Handler behavior.
type HandlerOption func(*Handler)

// WithLogger makes the handler log request outcomes at debug level.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a handler serving keys in the given order. The
// slice and each blob are copied, so later changes by the caller are not
// observed. signer may be nil when no signing should succeed (every sign
// request then gets a failure response).
func NewHandler(keys []KeyEntry, signer Signer, options ...HandlerOption) *Handler {
	copied := make([]KeyEntry, len(keys))
	for index, key := range keys {
		copied[index] = KeyEntry{
			Blob:    bytes.Clone(key.Blob),
			Comment: key.Comment,
		}
	}
	handler := &Handler{
		keys:   copied,
		signer: signer,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(handler)
	}
	return handler
}

// Keys returns a copy of the keys the handler serves.
func (h *Handler) Keys() []KeyEntry {
	keys := make([]KeyEntry, len(h.keys))
	copy(keys, h.keys)
	return keys
}

// Handle processes one request payload (opcode byte plus body) and
// returns the response payload. It never fails: malformed requests,
// unknown opcodes, unknown keys and signer errors all produce the single
// byte [Failure] response.
func (h *Handler) Handle(ctx context.Context, message []byte) []byte {
	if len(message) == 0 {
		h.logger.Debug("empty agent request")
		return failureResponse()
	}

	opcode := Opcode(message[0])
	body := message[1:]

	switch opcode {
	case RequestLegacyIdentities:
		return h.listIdentities(opcode, LegacyIdentitiesAnswer, body)
	case RequestIdentities:
		return h.listIdentities(opcode, IdentitiesAnswer, body)
	case SignRequest:
		return h.sign(ctx, message)
	default:
		h.logger.Debug("unsupported agent request", "opcode", int(opcode))
		return failureResponse()
	}
}

// listIdentities encodes the key list as: answer opcode, u32 key count,
// then for each key its blob and comment as length-prefixed strings.
// Identity requests have no body; trailing bytes mean the request is
// malformed.
func (h *Handler) listIdentities(request, answer Opcode, body []byte) []byte {
	if len(body) != 0 {
		h.logger.Debug("identities request with trailing bytes",
			"opcode", request.String(),
			"trailing", len(body),
		)
		return failureResponse()
	}

	size := 1 + 4
	for _, key := range h.keys {
		size += 4 + len(key.Blob) + 4 + len(key.Comment)
	}

	response := make([]byte, 0, size)
	response = append(response, byte(answer))
	response = binary.BigEndian.AppendUint32(response, uint32(len(h.keys)))
	for _, key := range h.keys {
		response = appendString(response, key.Blob)
		response = appendString(response, []byte(key.Comment))
	}

	h.logger.Debug("listed identities",
		"opcode", request.String(),
		"count", len(h.keys),
	)
	return response
}

func (h *Handler) sign(ctx context.Context, message []byte) []byte {
	var request signRequestBody
	if err := ssh.Unmarshal(message, &request); err != nil {
		h.logger.Debug("malformed sign request", "error", err)
		return failureResponse()
	}

	key, found := h.lookup(request.KeyBlob)
	if !found {
		h.logger.Debug("sign request for unknown key",
			"fingerprint", Fingerprint(request.KeyBlob),
		)
		return failureResponse()
	}
	if h.signer == nil {
		h.logger.Debug("sign request with no signer configured",
			"fingerprint", key.Fingerprint(),
		)
		return failureResponse()
	}

	signature, err := h.signer.Sign(ctx, key.Blob, request.Data, request.Flags)
	if err != nil {
		h.logger.Debug("signer refused request",
			"fingerprint", key.Fingerprint(),
			"comment", key.Comment,
			"error", err,
		)
		return failureResponse()
	}

	h.logger.Debug("signed request",
		"fingerprint", key.Fingerprint(),
		"comment", key.Comment,
		"data_bytes", len(request.Data),
		"flags", request.Flags,
	)
	return ssh.Marshal(signResponseBody{Signature: signature})
}

// lookup finds the key whose blob equals blob exactly.
func (h *Handler) lookup(blob []byte) (KeyEntry, bool) {
	for _, key := range h.keys {
		if bytes.Equal(key.Blob, blob) {
			return key, true
		}
	}
	return KeyEntry{}, false
}

func failureResponse() []byte {
	return []byte{byte(Failure)}
}

// appendString appends value as an SSH string: u32 length then bytes.
func appendString(buffer, value []byte) []byte {
	buffer = binary.BigEndian.AppendUint32(buffer, uint32(len(value)))
	return append(buffer, value...)
}

// describeResponse summarizes a response payload for logs and metrics.
func describeResponse(response []byte) string {
	if len(response) == 0 {
		return "empty"
	}
	return Opcode(response[0]).String()
}
