// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the agent's CBOR configuration, used for the keyring
// document inside the age envelope.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. Sealing
// the same keyring twice therefore encrypts the same plaintext bytes.
// Timestamps encode as integer Unix seconds.
//
// Decoding rejects duplicate map keys and bounds nesting and collection
// sizes, since a keyring file is read before anything about it is
// trusted. Unknown struct fields are ignored so older agents can read
// newer documents.
//
//	data, err := codec.Marshal(document)
//	err = codec.Unmarshal(data, &document)
//
// Types serialized here carry `cbor` struct tags.
package codec
