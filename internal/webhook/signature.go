package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the payload signature on every delivery.
const SignatureHeader = "X-Faceverify-Signature"

// Sign computes the HMAC-SHA256 signature of the payload with the
// webhook's secret, in the "sha256=<hex>" form sent to receivers.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the signature matches the payload. Receivers
// should use it against the value of the signature header.
func Verify(secret string, payload []byte, signature string) bool {
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(signature), []byte(expected))
}
