package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"legacyvault/internal/config"
	"legacyvault/internal/security"
)

const (
	maxSignatureAge  = 5 * time.Minute
	maxSignatureSkew = 2 * time.Minute
)

// Signature verifies the request HMAC and consumes its nonce, rejecting
// replays. Runs after Auth so the device ID is available from the claims.
func Signature(cfg *config.AppConfig, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, nonce, signature, err := security.SignatureHeaders(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature_required"})
			return
		}

		requestTime, err := time.Parse(time.RFC3339, date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_date"})
			return
		}

		if time.Since(requestTime) > maxSignatureAge || time.Until(requestTime) > maxSignatureSkew {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "request_expired"})
			return
		}

		rawBody, err := c.GetRawData()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

		claims, ok := AccessClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_access_claims"})
			return
		}

		valid := security.VerifyRequest(
			cfg.Security.SignatureSecret,
			claims.DeviceID,
			signature,
			c.Request,
			rawBody,
			date,
			nonce,
		)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
			return
		}

		nonceKey := fmt.Sprintf("sig:%s:%s", claims.DeviceID, nonce)
		if ok := redisClient.SetNX(c, nonceKey, "1", maxSignatureAge); !ok.Val() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "replay_detected"})
			return
		}

		c.Next()
	}
}
