// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"github.com/zeebo/blake3"
)

// blobDigest identifies a public key blob for de-duplication.
type blobDigest [32]byte

// blobDomainKey keys the BLAKE3 hash so blob digests cannot be confused
// with digests of anything else. ASCII, zero-padded to 32 bytes.
var blobDomainKey = [32]byte{
	'b', 'u', 'r', 'e', 'a', 'u', '.', 'k', 'e', 'y', 'a', 'g', 'e', 'n', 't', '.',
	'k', 'e', 'y', '-', 'b', 'l', 'o', 'b', 0, 0, 0, 0, 0, 0, 0, 0,
}

func digestBlob(blob []byte) blobDigest {
	hasher, err := blake3.NewKeyed(blobDomainKey[:])
	if err != nil {
		panic("keyring: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(blob)
	var digest blobDigest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
