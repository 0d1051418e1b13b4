package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// VerifySignature reports whether signature is the HMAC-SHA256 of body under
// secret. The signature may be base64 (Shopify style) or hex encoded.
func VerifySignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)

	for _, decoded := range decodeSignature(signature) {
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}

// Sign returns the base64 HMAC-SHA256 of body, as marketplaces send it.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func decodeSignature(signature string) [][]byte {
	var out [][]byte
	if b, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256=")); err == nil {
		out = append(out, b)
	}
	if b, err := base64.StdEncoding.DecodeString(signature); err == nil {
		out = append(out, b)
	}
	return out
}
