package images

import (
	"errors"
	"testing"
)

func TestValidateKey(t *testing.T) {
	t.Parallel()

	good := []string{
		"chat/1/01ABC.jpg",
		"chat/42/photo.png",
	}
	for _, k := range good {
		if err := ValidateKey(k); err != nil {
			t.Fatalf("ValidateKey(%q): %v", k, err)
		}
	}

	bad := []string{
		"",
		"chat",
		"chat/1",
		"chat/1/a/b.jpg",
		"other/1/a.jpg",
		"/chat/1/a.jpg",
		"chat/../secrets",
		"chat/1/../../etc/passwd",
	}
	for _, k := range bad {
		if err := ValidateKey(k); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("ValidateKey(%q): got %v, want ErrInvalidKey", k, err)
		}
	}
}

func TestThreadIDFromKey(t *testing.T) {
	t.Parallel()

	id, err := ThreadIDFromKey("chat/42/photo.webp")
	if err != nil {
		t.Fatalf("ThreadIDFromKey: %v", err)
	}
	if id != 42 {
		t.Fatalf("id = %d, want 42", id)
	}

	for _, k := range []string{"chat/0/a.jpg", "chat/-1/a.jpg", "chat/nope/a.jpg", "x/1/a.jpg"} {
		if _, err := ThreadIDFromKey(k); err == nil {
			t.Fatalf("expected error for %q", k)
		}
	}
}
