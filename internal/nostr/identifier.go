package nostr

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/Negr087/substr/internal/services"
)

var hexIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// DecodeIdentifier parses a user-supplied event reference into its canonical
// 64-character lowercase hex event id. Accepted encodings are NIP-19 note1 and
// nevent1 bech32 strings and raw 64-hex ids.
func DecodeIdentifier(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "":
		return "", services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode", "empty identifier", nil)
	case strings.HasPrefix(trimmed, "note1"):
		return decodeNote(trimmed)
	case strings.HasPrefix(trimmed, "nevent1"):
		return decodeEventPointer(trimmed)
	case hexIDPattern.MatchString(trimmed):
		return strings.ToLower(trimmed), nil
	default:
		return "", services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode",
			fmt.Sprintf("unrecognized identifier %q", truncateForError(trimmed)), nil)
	}
}

func decodeNote(input string) (string, error) {
	hrp, payload, err := decodeBech32(input)
	if err != nil {
		return "", err
	}
	if hrp != "note" {
		return "", services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode",
			fmt.Sprintf("unexpected prefix %q", hrp), nil)
	}
	if len(payload) != 32 {
		return "", services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode",
			fmt.Sprintf("note payload is %d bytes, want 32", len(payload)), nil)
	}
	return hex.EncodeToString(payload), nil
}

// decodeEventPointer extracts the event id from an nevent TLV payload. Only
// the special (type 0) entry matters here; relay hints and authors are
// ignored.
func decodeEventPointer(input string) (string, error) {
	hrp, payload, err := decodeBech32(input)
	if err != nil {
		return "", err
	}
	if hrp != "nevent" {
		return "", services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode",
			fmt.Sprintf("unexpected prefix %q", hrp), nil)
	}
	for offset := 0; offset+2 <= len(payload); {
		tlvType := payload[offset]
		tlvLen := int(payload[offset+1])
		offset += 2
		if offset+tlvLen > len(payload) {
			break
		}
		if tlvType == 0 {
			if tlvLen != 32 {
				return "", services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode",
					fmt.Sprintf("nevent id entry is %d bytes, want 32", tlvLen), nil)
			}
			return hex.EncodeToString(payload[offset : offset+tlvLen]), nil
		}
		offset += tlvLen
	}
	return "", services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode", "nevent has no id entry", nil)
}

func decodeBech32(input string) (string, []byte, error) {
	// nevent strings routinely exceed the 90-character bech32 limit, so the
	// unlimited variant is required.
	hrp, grouped, err := bech32.DecodeNoLimit(strings.ToLower(input))
	if err != nil {
		return "", nil, services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode", "bech32 decode failed", err)
	}
	payload, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return "", nil, services.Wrap(services.ErrInvalidIdentifier, "nostr", "decode", "bech32 regroup failed", err)
	}
	return hrp, payload, nil
}

func truncateForError(s string) string {
	const max = 24
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
