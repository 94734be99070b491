package nostr_test

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/Negr087/substr/internal/nostr"
	"github.com/Negr087/substr/internal/services"
)

const sampleID = "5c83da77af1dec6d7289834998ad7aafbd9e2191396d75ec3cc27f5a77226f36"

func encodeBech32(t *testing.T, hrp string, payload []byte) string {
	t.Helper()
	grouped, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	encoded, err := bech32.Encode(hrp, grouped)
	if err != nil {
		t.Fatalf("bech32 encode: %v", err)
	}
	return encoded
}

func sampleIDBytes(t *testing.T) []byte {
	t.Helper()
	raw, err := hex.DecodeString(sampleID)
	if err != nil {
		t.Fatalf("decode sample id: %v", err)
	}
	return raw
}

func TestDecodeIdentifierNote(t *testing.T) {
	t.Parallel()

	note := encodeBech32(t, "note", sampleIDBytes(t))
	if !strings.HasPrefix(note, "note1") {
		t.Fatalf("test vector should start with note1, got %q", note)
	}
	got, err := nostr.DecodeIdentifier(note)
	if err != nil {
		t.Fatalf("DecodeIdentifier: %v", err)
	}
	if got != sampleID {
		t.Fatalf("expected %s, got %s", sampleID, got)
	}
}

func TestDecodeIdentifierEventPointer(t *testing.T) {
	t.Parallel()

	id := sampleIDBytes(t)
	relayHint := []byte("wss://relay.damus.io")
	payload := make([]byte, 0, len(id)+len(relayHint)+4)
	// Relay hint first proves the id entry is found by type, not position.
	payload = append(payload, 1, byte(len(relayHint)))
	payload = append(payload, relayHint...)
	payload = append(payload, 0, 32)
	payload = append(payload, id...)

	nevent := encodeBech32(t, "nevent", payload)
	got, err := nostr.DecodeIdentifier(nevent)
	if err != nil {
		t.Fatalf("DecodeIdentifier: %v", err)
	}
	if got != sampleID {
		t.Fatalf("expected %s, got %s", sampleID, got)
	}
}

func TestDecodeIdentifierHex(t *testing.T) {
	t.Parallel()

	got, err := nostr.DecodeIdentifier(strings.ToUpper(sampleID))
	if err != nil {
		t.Fatalf("DecodeIdentifier: %v", err)
	}
	if got != sampleID {
		t.Fatalf("expected canonical lowercase id, got %s", got)
	}
}

func TestDecodeIdentifierRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"short hex", sampleID[:40]},
		{"not hex not bech32", "definitely not an identifier"},
		{"corrupt note checksum", "note1" + strings.Repeat("q", 58)},
		{"nevent without id entry", func() string {
			grouped, _ := bech32.ConvertBits([]byte{1, 4, 'a', 'b', 'c', 'd'}, 8, 5, true)
			encoded, _ := bech32.Encode("nevent", grouped)
			return encoded
		}()},
		{"wrong hrp", func() string {
			grouped, _ := bech32.ConvertBits(make([]byte, 32), 8, 5, true)
			encoded, _ := bech32.Encode("nprofile", grouped)
			return encoded
		}()},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := nostr.DecodeIdentifier(tc.input); !errors.Is(err, services.ErrInvalidIdentifier) {
				t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
			}
		})
	}
}
