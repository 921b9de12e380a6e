package chat

import (
	"errors"
	"testing"
	"time"

	v1 "pawline/shared/contracts/chat/v1"
)

func TestOriginHostOnly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"http://localhost", "localhost"},
		{"http://localhost:5173", "localhost"},
		{"https://App.Pawline.example", "app.pawline.example"},
		{"localhost:8080", "localhost"},
		{"localhost", "localhost"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := originHostOnly(tc.in); got != tc.want {
			t.Fatalf("originHostOnly(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDeriveOriginPatterns(t *testing.T) {
	t.Parallel()

	got := deriveOriginPatternsFromAllowedOrigins([]string{
		"http://localhost",
		"http://localhost:5173",
		"https://app.pawline.example",
		"*",
		"",
	})

	want := []string{"app.pawline.example", "localhost"}
	if len(got) != len(want) {
		t.Fatalf("patterns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("patterns = %v, want %v", got, want)
		}
	}
}

func TestSendErrorCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{ErrListingNotFound, "listing_not_found"},
		{ErrSenderNotFound, "sender_not_found"},
		{ErrForbidden, "forbidden"},
		{ErrSelfThread, "self_thread"},
		{ErrEmptyMessage, "empty_message"},
		{errors.New("boom"), "send_failed"},
	}
	for _, tc := range cases {
		if got := sendErrorCode(tc.err); got != tc.want {
			t.Fatalf("sendErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	env := newEnvelope(v1.TypeConnectAck, nil, ts)

	if env.V != v1.Version || env.Type != v1.TypeConnectAck {
		t.Fatalf("envelope = %+v", env)
	}
	if env.ID == "" {
		t.Fatalf("envelope id must be set")
	}
	if !env.TS.Equal(ts) {
		t.Fatalf("ts = %v", env.TS)
	}
	if env.Token != "" {
		t.Fatalf("server envelopes never carry a token")
	}
}
