package auth

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Claims is the minimal identity envelope attached to a verified request or
// connection. UserID is the durable numeric member id.
type Claims struct {
	UserID    int64
	SessionID string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// Verifier validates previously issued access tokens.
type Verifier interface {
	Verify(token string, now time.Time) (Claims, error)
}

type pasetoV4PublicVerifier struct {
	issuer    string
	clockSkew time.Duration
	public    paseto.V4AsymmetricPublicKey
}

// NewVerifier builds the Verifier selected by cfg: PASETO v4.public when a
// public key is configured, otherwise the dev-insecure verifier.
func NewVerifier(cfg Config) (Verifier, error) {
	if strings.TrimSpace(cfg.PublicKeyHex) != "" {
		return NewPasetoV4PublicVerifier(cfg)
	}
	if cfg.DevInsecure {
		return DevVerifier{}, nil
	}
	return nil, ErrConfig
}

// NewPasetoV4PublicVerifier builds a Verifier for PASETO v4.public tokens.
//
// It checks the Ed25519 signature and enforces issuer and expiration rules.
// Clock skew is applied during verification via ValidAt to tolerate minor
// clock differences.
func NewPasetoV4PublicVerifier(cfg Config) (Verifier, error) {
	public, err := paseto.NewV4AsymmetricPublicKeyFromHex(cfg.PublicKeyHex)
	if err != nil {
		return nil, ErrConfig
	}

	return &pasetoV4PublicVerifier{
		issuer:    cfg.Issuer,
		clockSkew: cfg.ClockSkew,
		public:    public,
	}, nil
}

func (v *pasetoV4PublicVerifier) Verify(token string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenMissing
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Clock-skew tolerance:
	// Validate slightly in the future to avoid failing "nbf" when clocks differ.
	// This also makes expiration checks slightly stricter, which is typically desirable.
	validNow := now.Add(v.clockSkew)

	// Build a fresh parser per call to avoid accumulating rules across verifies.
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(v.issuer))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.ValidAt(validNow))

	parsed, err := p.ParseV4Public(v.public, token, nil)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}

	iss, _ := parsed.GetIssuer()
	exp, _ := parsed.GetExpiration()
	iat, _ := parsed.GetIssuedAt()

	uidRaw, err := parsed.GetString("uid")
	if err != nil || uidRaw == "" {
		return Claims{}, ErrTokenInvalid
	}
	uid, err := strconv.ParseInt(uidRaw, 10, 64)
	if err != nil || uid <= 0 {
		return Claims{}, ErrTokenInvalid
	}
	sid, err := parsed.GetString("sid")
	if err != nil || sid == "" {
		return Claims{}, ErrTokenInvalid
	}

	return Claims{
		UserID:    uid,
		SessionID: sid,
		ExpiresAt: exp,
		IssuedAt:  iat,
		Issuer:    iss,
	}, nil
}

// DevVerifier accepts tokens of the form "dev:<user_id>".
// Dev-only escape hatch; enabled exclusively via PAWLINE_AUTH_DEV_INSECURE.
type DevVerifier struct{}

// Verify parses "dev:<user_id>".
func (DevVerifier) Verify(token string, now time.Time) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenMissing
	}
	rest, ok := strings.CutPrefix(token, "dev:")
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	uid, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || uid <= 0 {
		return Claims{}, ErrTokenInvalid
	}
	return Claims{
		UserID:    uid,
		SessionID: fmt.Sprintf("dev-%d", uid),
		IssuedAt:  now,
	}, nil
}
