package stream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyWebhook verifies the sha256 HMAC hex signature the provider attaches
// to webhook deliveries. Constant-time compare; an empty secret or signature
// always fails.
func (c *Client) VerifyWebhook(payload []byte, signatureHex string) bool {
	return verifyHMAC(c.apiSecret, payload, signatureHex)
}

func verifyHMAC(secret string, payload []byte, signatureHex string) bool {
	if secret == "" || signatureHex == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHex))
}

// SignPayload computes the hex HMAC for a payload. Used by tests and by
// outbound calls that require request signing.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
