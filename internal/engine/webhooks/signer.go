package webhooks

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the HMAC of the raw request body.
const SignatureHeader = "X-Passslot-Signature"

const signaturePrefix = "sha1="

// Sign returns "sha1=" followed by the hex HMAC-SHA1 of payload.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha1.New, []byte(secret))
	h.Write(payload)
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether supplied is the signature of payload under secret.
// The comparison is constant time.
func Verify(secret string, payload []byte, supplied string) bool {
	if !strings.HasPrefix(supplied, signaturePrefix) {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, payload)), []byte(supplied))
}
