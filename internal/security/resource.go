package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignResource produces a stable HMAC over the identifying parts of a stored
// object, used to detect tampering with media metadata rows.
func SignResource(secret string, parts ...string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, ":")))
	sum := mac.Sum(nil)
	return []byte(base64.RawURLEncoding.EncodeToString(sum))
}
