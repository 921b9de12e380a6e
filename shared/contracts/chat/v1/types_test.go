package v1

import "testing"

func TestEnvelope_Validate(t *testing.T) {
	t.Parallel()

	ok := []Envelope{
		{V: Version, Type: TypeConnect},
		{V: Version, Type: TypeMessageSend},
		{V: Version, Type: TypeReadReceipt},
	}
	for _, e := range ok {
		if err := e.Validate(); err != nil {
			t.Fatalf("Validate(%s): %v", e.Type, err)
		}
	}

	bad := []Envelope{
		{},
		{V: Version},
		{V: "v9", Type: TypeConnect},
		{V: Version, Type: "dance"},
	}
	for _, e := range bad {
		if err := e.Validate(); err == nil {
			t.Fatalf("Validate(v=%q type=%q): expected error", e.V, e.Type)
		}
	}
}

func TestEnvelope_RequiresToken(t *testing.T) {
	t.Parallel()

	gated := []string{TypeConnect, TypeSubscribe, TypeMessageSend}
	for _, typ := range gated {
		if !(Envelope{Type: typ}).RequiresToken() {
			t.Fatalf("%s must require a token", typ)
		}
	}

	open := []string{TypeConnectAck, TypeSubscribeAck, TypeMessageAck, TypeMessageNew, TypeReadReceipt, TypeError}
	for _, typ := range open {
		if (Envelope{Type: typ}).RequiresToken() {
			t.Fatalf("%s must not require a token", typ)
		}
	}
}
