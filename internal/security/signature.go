package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Request signing headers. Authenticated calls carry a signature bound to the
// session's device, so a leaked access token alone cannot replay requests.
const (
	HeaderSignature = "X-Legacy-Signature"
	HeaderDate      = "X-Legacy-Date"
	HeaderNonce     = "X-Legacy-Nonce"
)

var ErrSignatureHeaders = errors.New("missing signature headers")

// BodyDigest hashes the request body for the canonical string.
func BodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// canonicalRequest joins the signed parts with newlines. The device ID leads
// so two devices never produce colliding signatures for the same request.
func canonicalRequest(deviceID string, r *http.Request, bodyDigest, date, nonce string) string {
	parts := []string{
		deviceID,
		strings.ToUpper(r.Method),
		r.URL.Path,
		r.URL.RawQuery,
		bodyDigest,
		date,
		nonce,
	}
	return strings.Join(parts, "\n")
}

// SignRequest computes the HMAC-SHA256 signature a client sends for r.
func SignRequest(secret, deviceID string, r *http.Request, body []byte, date, nonce string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonicalRequest(deviceID, r, BodyDigest(body), date, nonce)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyRequest recomputes the signature for r and compares in constant time.
func VerifyRequest(secret, deviceID, signature string, r *http.Request, body []byte, date, nonce string) bool {
	expected := SignRequest(secret, deviceID, r, body, date, nonce)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// SignatureHeaders pulls the three signing headers off the request.
func SignatureHeaders(c *gin.Context) (date, nonce, signature string, err error) {
	date = c.GetHeader(HeaderDate)
	nonce = c.GetHeader(HeaderNonce)
	signature = c.GetHeader(HeaderSignature)

	if date == "" || nonce == "" || signature == "" {
		return "", "", "", ErrSignatureHeaders
	}
	return date, nonce, signature, nil
}
