// Package gateway connects to the chat gateway: a WebSocket stream of
// inbound room messages and an HTTP endpoint for replies.
package gateway

import "context"

// Message is one inbound chat event from the gateway stream.
type Message struct {
	Room       string `json:"room"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

// ReplyRequest is the outbound reply payload. Type is "text" or
// "image"; image data travels base64-encoded.
type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

// Sender delivers replies back into a room.
type Sender interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

type MessageCallback func(message *Message)

type StateCallback func(state StreamState)

// StreamState tracks the WebSocket connection lifecycle.
type StreamState string

const (
	StreamDisconnected StreamState = "disconnected"
	StreamConnecting   StreamState = "connecting"
	StreamConnected    StreamState = "connected"
	StreamReconnecting StreamState = "reconnecting"
	StreamFailed       StreamState = "failed"
)
