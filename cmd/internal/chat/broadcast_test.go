package chat

import (
	"encoding/json"
	"log/slog"
	"testing"

	v1 "pawline/shared/contracts/chat/v1"
)

type recordingDeliverer struct {
	calls []struct {
		userID int64
		env    v1.Envelope
	}
}

func (d *recordingDeliverer) Deliver(userID int64, env v1.Envelope) {
	d.calls = append(d.calls, struct {
		userID int64
		env    v1.Envelope
	}{userID, env})
}

func testBroadcast() *RedisBroadcast {
	return &RedisBroadcast{
		log:            slog.Default(),
		messageChannel: defaultMessageChannel,
		readChannel:    defaultReadChannel,
	}
}

func TestBroadcast_DispatchMessage(t *testing.T) {
	t.Parallel()

	b := testBroadcast()

	d := Delivery{
		MessageID: 5, ThreadID: 3, ListingID: 100,
		SenderID: 2, ReceiverID: 1,
		Kind: KindText, Content: "hi", CreatedAt: testTime(),
	}
	payload, _ := json.Marshal(d)

	local := &recordingDeliverer{}
	b.dispatch(defaultMessageChannel, payload, local)

	if len(local.calls) != 2 {
		t.Fatalf("delivered to %d addresses, want 2", len(local.calls))
	}
	if local.calls[0].userID != 2 || local.calls[1].userID != 1 {
		t.Fatalf("addresses = %d, %d", local.calls[0].userID, local.calls[1].userID)
	}

	env := local.calls[0].env
	if env.Type != v1.TypeMessageNew || env.V != v1.Version || env.ID == "" {
		t.Fatalf("envelope = %+v", env)
	}

	var p v1.MessageNewPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.MessageID != 5 || p.ThreadID != 3 || p.Content != "hi" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestBroadcast_DispatchReadReceipt(t *testing.T) {
	t.Parallel()

	b := testBroadcast()

	r := ReadReceipt{MessageID: 5, ThreadID: 3, SenderID: 2, ReaderID: 1}
	payload, _ := json.Marshal(r)

	local := &recordingDeliverer{}
	b.dispatch(defaultReadChannel, payload, local)

	// Receipts address the original sender only.
	if len(local.calls) != 1 || local.calls[0].userID != 2 {
		t.Fatalf("calls = %+v", local.calls)
	}
	if local.calls[0].env.Type != v1.TypeReadReceipt {
		t.Fatalf("type = %q", local.calls[0].env.Type)
	}
}

func TestBroadcast_DispatchIgnoresGarbage(t *testing.T) {
	t.Parallel()

	b := testBroadcast()

	local := &recordingDeliverer{}
	b.dispatch(defaultMessageChannel, []byte("{not json"), local)
	b.dispatch("someone:else", []byte("{}"), local)

	if len(local.calls) != 0 {
		t.Fatalf("garbage dispatched %d deliveries", len(local.calls))
	}
}
