// Package v1 defines the Pawline Chat Protocol v1 contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between server and clients to keep the wire protocol authoritative.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Type constants (wire-stable).
const (
	// TypeConnect opens a logical chat session on an upgraded connection (client -> server).
	TypeConnect = "connect"
	// TypeConnectAck acknowledges the logical session (server -> client).
	TypeConnectAck = "connect_ack"

	// TypeSubscribe registers the session under the caller's delivery address (client -> server).
	TypeSubscribe = "subscribe"
	// TypeSubscribeAck acknowledges the subscription (server -> client).
	TypeSubscribeAck = "subscribe_ack"

	// TypeMessageSend requests sending a new message on a listing (client -> server).
	TypeMessageSend = "message_send"
	// TypeMessageAck acknowledges a send request (server -> client).
	TypeMessageAck = "message_ack"
	// TypeMessageNew delivers a newly persisted message (server -> sender/receiver sessions).
	TypeMessageNew = "message_new"

	// TypeReadReceipt notifies the original sender that a message was read (server -> client).
	TypeReadReceipt = "read_receipt"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Message kinds carried by MessageNewPayload.
const (
	KindText  = "text"
	KindImage = "image"
)

// Envelope is the canonical wire wrapper.
//
// Token carries the access token for the frame types that require
// re-authorization (connect, subscribe, message_send). It is never set on
// server -> client envelopes.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeConnect,
		TypeConnectAck,
		TypeSubscribe,
		TypeSubscribeAck,
		TypeMessageSend,
		TypeMessageAck,
		TypeMessageNew,
		TypeReadReceipt,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// RequiresToken reports whether the frame type is gated by per-frame
// authorization.
func (e Envelope) RequiresToken() bool {
	switch e.Type {
	case TypeConnect, TypeSubscribe, TypeMessageSend:
		return true
	default:
		return false
	}
}

// ---- Payloads ----

// ConnectPayload is sent by the client to open the logical session.
type ConnectPayload struct{}

// ConnectAckPayload confirms the session and echoes the resolved identity.
type ConnectAckPayload struct {
	SessionID string `json:"session_id"`
	UserID    int64  `json:"user_id"`
}

// SubscribePayload registers the session for personal delivery addresses.
// An empty Destinations slice subscribes to both messages and read receipts.
type SubscribePayload struct {
	Destinations []string `json:"destinations,omitempty"`
}

// SubscribeAckPayload echoes the destinations that are now active.
type SubscribeAckPayload struct {
	Destinations []string `json:"destinations"`
}

// MessageSendPayload requests sending a message tied to a listing.
// Exactly one of Content and ImageKey must be set. ReceiverID is optional:
// when zero the receiver resolves to the listing owner.
type MessageSendPayload struct {
	ListingID  int64  `json:"listing_id"`
	ReceiverID int64  `json:"receiver_id,omitempty"`
	Content    string `json:"content,omitempty"`
	ImageKey   string `json:"image_key,omitempty"`
}

// MessageAckPayload acknowledges a send request with the canonical server ids.
type MessageAckPayload struct {
	MessageID int64     `json:"message_id"`
	ThreadID  int64     `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageNewPayload is the delivery payload fanned out to sender and receiver.
type MessageNewPayload struct {
	MessageID  int64     `json:"message_id"`
	ThreadID   int64     `json:"thread_id"`
	ListingID  int64     `json:"listing_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content,omitempty"`
	ImageKey   string    `json:"image_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReadReceiptPayload notifies the original sender that ReaderID has read
// MessageID. It travels on the dedicated read channel so receipt volume
// never competes with message delivery.
type ReadReceiptPayload struct {
	MessageID int64 `json:"message_id"`
	ThreadID  int64 `json:"thread_id"`
	SenderID  int64 `json:"sender_id"`
	ReaderID  int64 `json:"reader_id"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
