package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// sign computes the hex-encoded HMAC-SHA256 of the query string, as
// required by Binance signed endpoints.
func sign(query, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}
