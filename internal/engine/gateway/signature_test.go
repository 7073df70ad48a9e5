package gateway

import (
	"testing"

	"omnihook/internal/platform/config"
	"omnihook/internal/platform/models"
)

func testPlatforms() config.PlatformsConfig {
	return config.PlatformsConfig{
		WhatsApp:  config.PlatformConfig{AppSecret: "wa-secret", VerifyToken: "wa-token"},
		Facebook:  config.PlatformConfig{AppSecret: "fb-secret", VerifyToken: "fb-token"},
		Instagram: config.PlatformConfig{VerifyToken: "ig-token", AllowUnverified: true},
	}
}

func TestSignatureVerify(t *testing.T) {
	v := NewSignatureVerifier(testPlatforms())
	body := []byte(`{"object":"page","entry":[]}`)
	good := Sign("fb-secret", body)

	tests := []struct {
		name      string
		platform  models.Platform
		signature string
		body      []byte
		want      bool
	}{
		{"valid signature", models.PlatformFacebook, good, body, true},
		{"wrong secret", models.PlatformWhatsApp, good, body, false},
		{"missing prefix", models.PlatformFacebook, good[len("sha256="):], body, false},
		{"truncated digest", models.PlatformFacebook, good[:len(good)-2], body, false},
		{"tampered body", models.PlatformFacebook, good, []byte(`{"object":"page"}`), false},
		{"empty header", models.PlatformFacebook, "", body, false},
		{"unconfigured secret fails closed", models.Platform("unknown"), good, body, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Verify(tt.platform, tt.signature, tt.body); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignatureVerifyFlippedBit(t *testing.T) {
	v := NewSignatureVerifier(testPlatforms())
	body := []byte(`{"object":"page"}`)
	good := Sign("fb-secret", body)

	// Flip the last hex digit while keeping the length intact.
	last := good[len(good)-1]
	flipped := byte('0')
	if last == '0' {
		flipped = '1'
	}
	bad := good[:len(good)-1] + string(flipped)

	if v.Verify(models.PlatformFacebook, bad, body) {
		t.Error("Verify() accepted a flipped digest")
	}
}

func TestSignatureVerifyAllowUnverified(t *testing.T) {
	// Instagram has no secret but opted into unverified delivery.
	v := NewSignatureVerifier(testPlatforms())
	if !v.Verify(models.PlatformInstagram, "", []byte(`{}`)) {
		t.Error("Verify() = false with allow_unverified set")
	}

	// Without the opt-in the same config must fail closed.
	platforms := testPlatforms()
	platforms.Instagram.AllowUnverified = false
	strict := NewSignatureVerifier(platforms)
	if strict.Verify(models.PlatformInstagram, "", []byte(`{}`)) {
		t.Error("Verify() = true with no secret and no opt-in")
	}
}

func TestEndpointVerify(t *testing.T) {
	v := NewEndpointVerifier(testPlatforms())

	tests := []struct {
		name          string
		platform      models.Platform
		mode          string
		token         string
		challenge     string
		wantChallenge string
		wantOK        bool
	}{
		{"valid handshake", models.PlatformFacebook, "subscribe", "fb-token", "12345", "12345", true},
		{"empty challenge echoed", models.PlatformFacebook, "subscribe", "fb-token", "", "", true},
		{"wrong token", models.PlatformFacebook, "subscribe", "nope", "12345", "", false},
		{"wrong mode", models.PlatformFacebook, "unsubscribe", "fb-token", "12345", "", false},
		{"cross-platform token", models.PlatformWhatsApp, "subscribe", "fb-token", "12345", "", false},
		{"unconfigured platform", models.Platform("unknown"), "subscribe", "any", "12345", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			challenge, ok := v.Verify(tt.platform, tt.mode, tt.token, tt.challenge)
			if ok != tt.wantOK || challenge != tt.wantChallenge {
				t.Errorf("Verify() = (%q, %v), want (%q, %v)", challenge, ok, tt.wantChallenge, tt.wantOK)
			}
		})
	}
}
