package chat

import (
	"testing"

	v1 "pawline/shared/contracts/chat/v1"
)

func TestHub_AttachDeliverDetach(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)

	phone := NewClient(7, "sess-phone", 4)
	laptop := NewClient(7, "sess-laptop", 4)
	other := NewClient(8, "sess-other", 4)

	h.Attach(phone)
	h.Attach(laptop)
	h.Attach(other)

	if n := h.LocalSessions(7); n != 2 {
		t.Fatalf("user 7 sessions = %d, want 2", n)
	}

	env := newEnvelope(v1.TypeMessageNew, nil, testTime())
	h.Deliver(7, env)

	for _, c := range []*Client{phone, laptop} {
		select {
		case got := <-c.Send:
			if got.Type != v1.TypeMessageNew {
				t.Fatalf("%s: got type %q", c.SessionID, got.Type)
			}
		default:
			t.Fatalf("%s: nothing delivered", c.SessionID)
		}
	}
	select {
	case <-other.Send:
		t.Fatalf("user 8 received user 7's envelope")
	default:
	}

	h.Detach(phone)
	if n := h.LocalSessions(7); n != 1 {
		t.Fatalf("after detach sessions = %d, want 1", n)
	}
	select {
	case <-phone.Done():
	default:
		t.Fatalf("detach must signal client shutdown")
	}

	// Delivering to a detached client is a no-op, not a panic.
	h.Deliver(7, env)
	select {
	case <-phone.Send:
		t.Fatalf("detached session received an envelope")
	default:
	}
}

func TestHub_DeliverNeverBlocks(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	c := NewClient(9, "sess-slow", 1)
	h.Attach(c)

	env := newEnvelope(v1.TypeMessageNew, nil, testTime())

	// Queue capacity 1: the second delivery must drop instead of blocking.
	h.Deliver(9, env)
	h.Deliver(9, env)

	if len(c.Send) != 1 {
		t.Fatalf("queue length = %d, want 1", len(c.Send))
	}
}

func TestHub_DeliverUnknownUserIsNoop(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	h.Deliver(12345, newEnvelope(v1.TypeReadReceipt, nil, testTime()))
}
