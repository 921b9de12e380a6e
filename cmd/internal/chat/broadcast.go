package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	v1 "pawline/shared/contracts/chat/v1"

	"github.com/go-redis/redis/v8"
)

// Broadcast channel names. Read receipts ride a separate channel so receipt
// volume never competes with message delivery consumers.
const (
	defaultMessageChannel = "pawline:chat:messages"
	defaultReadChannel    = "pawline:chat:reads"
)

// Publisher pushes delivery-ready payloads onto the shared broadcast channel
// so any process in the fleet can serve the addressed users' live sessions.
type Publisher interface {
	PublishMessage(ctx context.Context, d Delivery) error
	PublishRead(ctx context.Context, r ReadReceipt) error
}

// NopPublisher is used in dev mode without Redis: sends still persist, live
// cross-process delivery is simply absent.
type NopPublisher struct{}

// PublishMessage discards the payload.
func (NopPublisher) PublishMessage(context.Context, Delivery) error { return nil }

// PublishRead discards the payload.
func (NopPublisher) PublishRead(context.Context, ReadReceipt) error { return nil }

// RedisBroadcast is both the Publisher and the per-process Subscriber over
// Redis pub/sub.
//
// Ownership model:
// - RedisBroadcast does NOT own the redis client. The caller must close it.
type RedisBroadcast struct {
	log *slog.Logger
	rdb *redis.Client

	messageChannel string
	readChannel    string

	metrics *Metrics
}

// BroadcastOption configures RedisBroadcast behavior.
type BroadcastOption func(*RedisBroadcast) error

// WithChannels overrides the pub/sub channel names.
func WithChannels(messageChannel, readChannel string) BroadcastOption {
	return func(b *RedisBroadcast) error {
		messageChannel = strings.TrimSpace(messageChannel)
		readChannel = strings.TrimSpace(readChannel)
		if messageChannel == "" || readChannel == "" || messageChannel == readChannel {
			return errors.New("chat: invalid broadcast channels")
		}
		b.messageChannel = messageChannel
		b.readChannel = readChannel
		return nil
	}
}

// WithBroadcastMetrics attaches delivery counters.
func WithBroadcastMetrics(m *Metrics) BroadcastOption {
	return func(b *RedisBroadcast) error {
		b.metrics = m
		return nil
	}
}

// NewRedisBroadcast constructs the broadcast layer over a shared redis client.
func NewRedisBroadcast(log *slog.Logger, rdb *redis.Client, opts ...BroadcastOption) (*RedisBroadcast, error) {
	if log == nil {
		log = slog.Default()
	}
	b := &RedisBroadcast{
		log:            log,
		rdb:            rdb,
		messageChannel: defaultMessageChannel,
		readChannel:    defaultReadChannel,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	if b.rdb == nil {
		return nil, errors.New("chat: nil redis client")
	}
	return b, nil
}

// PublishMessage serializes a delivery payload onto the message channel.
func (b *RedisBroadcast) PublishMessage(ctx context.Context, d Delivery) error {
	if b == nil || b.rdb == nil {
		return errors.New("chat: nil broadcast")
	}
	buf, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.messageChannel, buf).Err()
}

// PublishRead serializes a read receipt onto the read channel.
func (b *RedisBroadcast) PublishRead(ctx context.Context, r ReadReceipt) error {
	if b == nil || b.rdb == nil {
		return errors.New("chat: nil broadcast")
	}
	buf, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.readChannel, buf).Err()
}

// Run subscribes to both channels and forwards payloads to local sessions
// until ctx is cancelled. Every process in the fleet runs exactly one of
// these loops; a payload addressed to a user with no local sessions is a
// no-op here and handled by whichever process holds them.
func (b *RedisBroadcast) Run(ctx context.Context, local LocalDeliverer) error {
	if b == nil || b.rdb == nil {
		return errors.New("chat: nil broadcast")
	}
	if local == nil {
		return errors.New("chat: nil local deliverer")
	}

	sub := b.rdb.Subscribe(ctx, b.messageChannel, b.readChannel)
	defer func() { _ = sub.Close() }()

	// Force the SUBSCRIBE round-trip so startup fails loudly when Redis is down.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	b.log.Info("broadcast.subscribe", "channels", []string{b.messageChannel, b.readChannel})

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("chat: subscription channel closed")
			}
			b.dispatch(msg.Channel, []byte(msg.Payload), local)
		}
	}
}

func (b *RedisBroadcast) dispatch(channel string, payload []byte, local LocalDeliverer) {
	now := time.Now().UTC()

	switch channel {
	case b.messageChannel:
		var d Delivery
		if err := json.Unmarshal(payload, &d); err != nil {
			b.log.Error("broadcast.decode.fail", "channel", channel, "err", err)
			return
		}

		buf, _ := json.Marshal(v1.MessageNewPayload{
			MessageID:  d.MessageID,
			ThreadID:   d.ThreadID,
			ListingID:  d.ListingID,
			SenderID:   d.SenderID,
			ReceiverID: d.ReceiverID,
			Kind:       string(d.Kind),
			Content:    d.Content,
			ImageKey:   d.ImageKey,
			CreatedAt:  d.CreatedAt,
		})
		env := newEnvelope(v1.TypeMessageNew, buf, now)

		// Once per logical user id; the hub fans out to physical sessions.
		local.Deliver(d.SenderID, env)
		local.Deliver(d.ReceiverID, env)
		b.metrics.deliveryObserved(channel)

	case b.readChannel:
		var r ReadReceipt
		if err := json.Unmarshal(payload, &r); err != nil {
			b.log.Error("broadcast.decode.fail", "channel", channel, "err", err)
			return
		}

		buf, _ := json.Marshal(v1.ReadReceiptPayload{
			MessageID: r.MessageID,
			ThreadID:  r.ThreadID,
			SenderID:  r.SenderID,
			ReaderID:  r.ReaderID,
		})
		env := newEnvelope(v1.TypeReadReceipt, buf, now)

		// Read receipts address the original sender only.
		local.Deliver(r.SenderID, env)
		b.metrics.deliveryObserved(channel)

	default:
		b.log.Info("broadcast.channel.unknown", "channel", channel)
	}
}
