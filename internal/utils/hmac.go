package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateHMAC returns the hex-encoded HMAC-SHA256 of data
func GenerateHMAC(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC reports whether signature is the HMAC of data
func VerifyHMAC(data []byte, signature, secret string) bool {
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hmac.Equal(h.Sum(nil), expected)
}
