// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type sampleEntry struct {
	Type      string    `cbor:"type"`
	Comment   string    `cbor:"comment,omitempty"`
	Seed      []byte    `cbor:"seed"`
	CreatedAt time.Time `cbor:"created_at"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleEntry{
		Type:      "ssh-ed25519",
		Comment:   "deploy@ci",
		Seed:      bytes.Repeat([]byte{7}, 32),
		CreatedAt: time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Type != original.Type || decoded.Comment != original.Comment {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
	if !bytes.Equal(decoded.Seed, original.Seed) {
		t.Errorf("seed mismatch: %x", decoded.Seed)
	}
	if !decoded.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("created_at = %v, want %v", decoded.CreatedAt, original.CreatedAt)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	first, err := Marshal(map[string]int{"zeta": 1, "alpha": 2, "mid": 3})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(map[string]int{"mid": 3, "alpha": 2, "zeta": 1})
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding not deterministic: %x vs %x", first, again)
		}
	}
}

func TestTimeEncodesAsUnixSeconds(t *testing.T) {
	data, err := Marshal(time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if notation != "1700000000" {
		t.Errorf("time encoded as %s, want 1700000000", notation)
	}
}

func TestUnmarshalRejects(t *testing.T) {
	trailing, err := Marshal("x")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	trailing = append(trailing, 0x00)

	tests := []struct {
		name string
		data []byte
	}{
		{"invalid", []byte{0xFF, 0xFE, 0xFD}},
		{"trailing bytes", trailing},
		// {"a": 1, "a": 2}
		{"duplicate key", []byte{0xA2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}},
		// indefinite-length array [_ 1]
		{"indefinite length", []byte{0x9F, 0x01, 0xFF}},
		// array header claiming 5000 elements
		{"oversized array", []byte{0x99, 0x13, 0x88}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var decoded any
			if err := Unmarshal(test.data, &decoded); err == nil {
				t.Errorf("Unmarshal(%x) succeeded with %v", test.data, decoded)
			}
		})
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	type newer struct {
		Type  string `cbor:"type"`
		Extra string `cbor:"extra"`
	}
	data, err := Marshal(newer{Type: "ssh-ed25519", Extra: "future"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleEntry
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Type != "ssh-ed25519" {
		t.Errorf("Type = %q", decoded.Type)
	}
}

func TestSeedIsByteString(t *testing.T) {
	data, err := Marshal(sampleEntry{Type: "ssh-ed25519", Seed: []byte{1, 2}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"seed": h'0102'`) {
		t.Errorf("seed not a byte string in %s", notation)
	}
}

func BenchmarkMarshal(b *testing.B) {
	entry := sampleEntry{Type: "ssh-ed25519", Seed: make([]byte, 32), CreatedAt: time.Now()}
	b.ReportAllocs()
	for b.Loop() {
		Marshal(entry)
	}
}
