package auth

import (
	"errors"
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

func signTestToken(t *testing.T, sk paseto.V4AsymmetricSecretKey, issuer, uid, sid string, iat, exp time.Time) string {
	t.Helper()

	tok := paseto.NewToken()
	tok.SetIssuer(issuer)
	tok.SetIssuedAt(iat)
	tok.SetNotBefore(iat)
	tok.SetExpiration(exp)
	tok.SetString("uid", uid)
	tok.SetString("sid", sid)
	return tok.V4Sign(sk, nil)
}

func TestPasetoVerifier_RoundTrip(t *testing.T) {
	t.Parallel()

	sk := paseto.NewV4AsymmetricSecretKey()

	v, err := NewPasetoV4PublicVerifier(Config{
		Issuer:       "pawline",
		PublicKeyHex: sk.Public().ExportHex(),
		ClockSkew:    30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	now := time.Now().UTC()
	token := signTestToken(t, sk, "pawline", "42", "sess-1", now, now.Add(time.Hour))

	claims, err := v.Verify(token, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 || claims.SessionID != "sess-1" || claims.Issuer != "pawline" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestPasetoVerifier_Rejections(t *testing.T) {
	t.Parallel()

	sk := paseto.NewV4AsymmetricSecretKey()
	other := paseto.NewV4AsymmetricSecretKey()

	v, err := NewPasetoV4PublicVerifier(Config{
		Issuer:       "pawline",
		PublicKeyHex: sk.Public().ExportHex(),
		ClockSkew:    time.Second,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	now := time.Now().UTC()

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrTokenMissing},
		{"garbage", "v4.public.not-a-token", ErrTokenInvalid},
		{"wrong key", signTestToken(t, other, "pawline", "42", "s", now, now.Add(time.Hour)), ErrTokenInvalid},
		{"wrong issuer", signTestToken(t, sk, "someone-else", "42", "s", now, now.Add(time.Hour)), ErrTokenInvalid},
		{"expired", signTestToken(t, sk, "pawline", "42", "s", now.Add(-2*time.Hour), now.Add(-time.Hour)), ErrTokenInvalid},
		{"non-numeric uid", signTestToken(t, sk, "pawline", "forty-two", "s", now, now.Add(time.Hour)), ErrTokenInvalid},
		{"missing sid", func() string {
			tok := paseto.NewToken()
			tok.SetIssuer("pawline")
			tok.SetIssuedAt(now)
			tok.SetNotBefore(now)
			tok.SetExpiration(now.Add(time.Hour))
			tok.SetString("uid", "42")
			return tok.V4Sign(sk, nil)
		}(), ErrTokenInvalid},
	}

	for _, tc := range cases {
		if _, err := v.Verify(tc.token, now); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestDevVerifier(t *testing.T) {
	t.Parallel()

	var v DevVerifier
	now := time.Now().UTC()

	claims, err := v.Verify("dev:7", now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("uid = %d", claims.UserID)
	}

	for _, bad := range []string{"", "dev:", "dev:0", "dev:-1", "dev:abc", "7"} {
		if _, err := v.Verify(bad, now); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNewVerifier_Selection(t *testing.T) {
	t.Parallel()

	if _, err := NewVerifier(Config{}); !errors.Is(err, ErrConfig) {
		t.Fatalf("empty config: got %v, want ErrConfig", err)
	}

	v, err := NewVerifier(Config{DevInsecure: true})
	if err != nil {
		t.Fatalf("dev config: %v", err)
	}
	if _, ok := v.(DevVerifier); !ok {
		t.Fatalf("dev config selected %T", v)
	}

	if _, err := NewVerifier(Config{PublicKeyHex: "zz"}); !errors.Is(err, ErrConfig) {
		t.Fatalf("bad key: got %v, want ErrConfig", err)
	}
}
