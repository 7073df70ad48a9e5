package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog/log"
	"omnihook/internal/platform/config"
	"omnihook/internal/platform/models"
)

const signaturePrefix = "sha256="

// SignatureVerifier checks the X-Hub-Signature-256 header on webhook
// bodies against the per-platform app secret.
type SignatureVerifier struct {
	secrets         map[models.Platform]string
	allowUnverified map[models.Platform]bool
}

func NewSignatureVerifier(platforms config.PlatformsConfig) *SignatureVerifier {
	return &SignatureVerifier{
		secrets: map[models.Platform]string{
			models.PlatformWhatsApp:  platforms.WhatsApp.AppSecret,
			models.PlatformFacebook:  platforms.Facebook.AppSecret,
			models.PlatformInstagram: platforms.Instagram.AppSecret,
		},
		allowUnverified: map[models.Platform]bool{
			models.PlatformWhatsApp:  platforms.WhatsApp.AllowUnverified,
			models.PlatformFacebook:  platforms.Facebook.AllowUnverified,
			models.PlatformInstagram: platforms.Instagram.AllowUnverified,
		},
	}
}

// Verify reports whether the signature header matches the body. With no
// secret configured the check fails closed unless the platform opted in
// to unverified delivery.
func (v *SignatureVerifier) Verify(platform models.Platform, signature string, body []byte) bool {
	secret := v.secrets[platform]
	if secret == "" {
		if v.allowUnverified[platform] {
			log.Warn().Str("platform", string(platform)).
				Msg("accepting unverified webhook, no app secret configured")
			return true
		}
		return false
	}

	if !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}
	provided := strings.TrimPrefix(signature, signaturePrefix)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(provided) != len(expected) {
		return false
	}
	return hmac.Equal([]byte(provided), []byte(expected))
}

// Sign computes the signature header value for a body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// EndpointVerifier answers the GET subscription handshake. Meta sends
// hub.mode=subscribe with the configured verify token and an opaque
// challenge to echo back.
type EndpointVerifier struct {
	tokens map[models.Platform]string
}

func NewEndpointVerifier(platforms config.PlatformsConfig) *EndpointVerifier {
	return &EndpointVerifier{
		tokens: map[models.Platform]string{
			models.PlatformWhatsApp:  platforms.WhatsApp.VerifyToken,
			models.PlatformFacebook:  platforms.Facebook.VerifyToken,
			models.PlatformInstagram: platforms.Instagram.VerifyToken,
		},
	}
}

// Verify returns the challenge to echo and whether the handshake is
// accepted. An unconfigured token rejects every handshake.
func (v *EndpointVerifier) Verify(platform models.Platform, mode, token, challenge string) (string, bool) {
	if mode != "subscribe" {
		return "", false
	}
	expected := v.tokens[platform]
	if expected == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return "", false
	}
	return challenge, true
}
