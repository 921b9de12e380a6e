package auth

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Default transport/verification knobs.
const (
	DefaultCookieName = "pawline_access"
	DefaultIssuer     = "pawline"
	defaultClockSkew  = 30 * time.Second
)

// Config carries the verifier configuration.
type Config struct {
	// Issuer must match the "iss" claim of accepted tokens.
	Issuer string

	// PublicKeyHex is the Ed25519 public key (hex) of the token issuer.
	PublicKeyHex string

	// ClockSkew tolerated during validity checks.
	ClockSkew time.Duration

	// CookieName is the cookie carrying the access token on HTTP requests
	// and the websocket upgrade request.
	CookieName string

	// DevInsecure enables the dev-only verifier accepting "dev:<user_id>"
	// tokens. Never enable outside local development.
	DevInsecure bool
}

// LoadConfigFromEnv reads the verifier configuration from environment variables.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Issuer:       envString("PAWLINE_AUTH_ISSUER", DefaultIssuer),
		PublicKeyHex: envString("PAWLINE_AUTH_PUBLIC_KEY_HEX", ""),
		ClockSkew:    envDuration("PAWLINE_AUTH_CLOCK_SKEW", defaultClockSkew),
		CookieName:   envString("PAWLINE_AUTH_COOKIE_NAME", DefaultCookieName),
		DevInsecure:  envBool("PAWLINE_AUTH_DEV_INSECURE", false),
	}

	if cfg.PublicKeyHex == "" && !cfg.DevInsecure {
		return Config{}, fmt.Errorf("%w: PAWLINE_AUTH_PUBLIC_KEY_HEX is required (or set PAWLINE_AUTH_DEV_INSECURE for local dev)", ErrConfig)
	}
	return cfg, nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
