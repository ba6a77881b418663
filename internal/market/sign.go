package market

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Digest encodings Sign can produce, matching uxapi.helpers.hmac's
// digest parameter.
const (
	DigestHex    = "hex"
	DigestBase64 = "base64"
	DigestRaw    = "raw"
)

// Sign HMAC-SHA256 signs msg with secret and encodes the result per
// digest. Okex, Bitmex, and Huobi logins all share this helper, each
// choosing a different digest encoding for the signature field.
func Sign(secret, msg []byte, digest string) string {
	h := hmac.New(sha256.New, secret)
	h.Write(msg)
	sum := h.Sum(nil)
	switch digest {
	case DigestHex:
		return hex.EncodeToString(sum)
	case DigestRaw:
		return string(sum)
	default:
		return base64.StdEncoding.EncodeToString(sum)
	}
}
