package middleware

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/syed-c/foster-care-sub001/internal/captcha"
)

const (
	// ContextKeyIsHumanVerified holds the captcha status in the Gin context.
	ContextKeyIsHumanVerified = "isHumanVerified"

	// HeaderHumanToken carries a previously issued human token, and returns a fresh one.
	HeaderHumanToken = "X-C-T"
	// HeaderChallenge carries a Turnstile challenge response.
	HeaderChallenge = "X-C-V"
	// HeaderFingerprint carries the browser fingerprint a human token is bound to.
	HeaderFingerprint = "X-BFP"
)

func clientOf(c *gin.Context) captcha.Client {
	return captcha.Client{IP: c.ClientIP(), Fingerprint: c.GetHeader(HeaderFingerprint)}
}

// CaptchaMiddleware marks the request as coming from a verified human when it carries a valid
// human token or a Turnstile challenge that verifies. It never rejects a request.
func CaptchaMiddleware(verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := clientOf(c)
		isHuman := false

		if token := c.GetHeader(HeaderHumanToken); token != "" {
			isHuman = verifier.ValidHumanToken(token, client)
		}

		if challenge := c.GetHeader(HeaderChallenge); !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, client)
			if err != nil {
				log.Printf("WARN: Turnstile verification error for %s: %v", client.IP, err)
			}
			if verified {
				isHuman = true
				if token, err := verifier.IssueHumanToken(client); err != nil {
					log.Printf("ERROR: failed to issue human token: %v", err)
				} else {
					c.Header(HeaderHumanToken, token)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}
