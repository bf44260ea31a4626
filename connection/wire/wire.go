/*
The wire package defines the messages that travel over the gateway's duplex
channel. Every frame is a flat, json-encoded object tagged with a required
"type" discriminator and an optional "requestId" correlator. Decoding is
forward-compatible: a well-formed frame with an unrecognized type is still
returned to the caller, which routes it to a discard handler.
*/
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const CurrentVersion = "1.0"

// The different categories of frames we might send/receive
type MessageType string

const (
	// liveness probes between the gateway and the backend
	HeartbeatPing MessageType = "heartbeat-ping"
	HeartbeatPong MessageType = "heartbeat-pong"

	// backend instruction to perform an HTTP call with the browser session
	ProxyRequestMessage  MessageType = "proxy-request"
	ProxyResponseMessage MessageType = "proxy-response"

	// backend asks the gateway to re-send its session/identity info
	SessionRefresh MessageType = "session-refresh"
	SessionInfo    MessageType = "session-info"

	// one-way informational message from the backend
	Notification MessageType = "notification"

	// generic correlated frames
	Response MessageType = "response"
	Error    MessageType = "error"
)

// Header carries the discriminator and correlator shared by every frame.
// Typed messages embed it so they all satisfy the Message interface.
type Header struct {
	Type      MessageType `json:"type"`
	RequestId string      `json:"requestId,omitempty"`
}

func (h Header) MessageType() MessageType {
	return h.Type
}

func (h Header) CorrelationId() string {
	return h.RequestId
}

// Message is any frame that can be sent over the channel.
type Message interface {
	MessageType() MessageType
}

// Envelope is a decoded inbound frame. Raw holds the complete frame so that
// handlers can unmarshal the type-specific fields they understand.
type Envelope struct {
	Header
	Raw json.RawMessage
}

// Known reports whether the frame's type belongs to the recognized set.
// Unknown types are accepted by the codec and discarded by the supervisor.
func (e *Envelope) Known() bool {
	switch e.Type {
	case HeartbeatPing, HeartbeatPong,
		ProxyRequestMessage, ProxyResponseMessage,
		SessionRefresh, SessionInfo,
		Notification, Response, Error:
		return true
	default:
		return false
	}
}

// Payload unmarshals the frame's type-specific fields into v.
func (e *Envelope) Payload(v any) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// Decode parses a raw frame. Malformed input yields a *ParseError, never a
// panic; this is the boundary past which protocol garbage must not travel.
func Decode(raw []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &ParseError{Raw: raw, Reason: "empty frame"}
	}

	var header Header
	if err := json.Unmarshal(trimmed, &header); err != nil {
		return nil, &ParseError{Raw: raw, Reason: err.Error()}
	}

	if header.Type == "" {
		return nil, &ParseError{Raw: raw, Reason: "missing required type field"}
	}

	return &Envelope{
		Header: header,
		Raw:    append(json.RawMessage{}, trimmed...),
	}, nil
}

// Encode serializes an outbound frame.
func Encode(message Message) ([]byte, error) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", message.MessageType(), err)
	}
	return messageBytes, nil
}

// EncodeRequest builds a flat correlated frame from an arbitrary payload by
// folding the discriminator and correlator into the payload's top-level fields.
func EncodeRequest(messageType MessageType, requestId string, payload any) ([]byte, error) {
	fields := map[string]json.RawMessage{}

	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request payload: %w", messageType, err)
		}
		if err := json.Unmarshal(payloadBytes, &fields); err != nil {
			return nil, fmt.Errorf("%s request payload must encode to a json object: %w", messageType, err)
		}
	}

	typeBytes, _ := json.Marshal(messageType)
	idBytes, _ := json.Marshal(requestId)
	fields["type"] = typeBytes
	fields["requestId"] = idBytes

	return json.Marshal(fields)
}
