package protocol

import (
	"encoding/json"
	"log"
)

// FrameType discriminates the messages exchanged over the stream.
type FrameType string

const (
	FrameStart  FrameType = "start"
	FrameChunk  FrameType = "chunk"
	FrameDone   FrameType = "done"
	FrameError  FrameType = "error"
	FrameCancel FrameType = "cancel"
)

// Frame is one structured message on the wire. Which fields are meaningful
// depends on Type: chunk carries Seq and Content, error carries Code and
// Message, cancel is client-originated. Seq is passed through as received;
// ordering is the transport's job.
type Frame struct {
	Type      FrameType `json:"type"`
	RequestID string    `json:"requestId"`
	Seq       int       `json:"seq,omitempty"`
	Content   string    `json:"content,omitempty"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Known reports whether the frame type is one this client dispatches.
// Unknown types are ignored at the dispatch site, not here.
func (f Frame) Known() bool {
	switch f.Type {
	case FrameStart, FrameChunk, FrameDone, FrameError, FrameCancel:
		return true
	}
	return false
}

// Parse decodes a raw inbound message. Malformed JSON or a missing "type"
// discriminator yields no frame; the payload is logged and dropped. Parse
// never returns a condition that should stop a read loop.
func Parse(raw []byte) (Frame, bool) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		log.Printf("protocol: dropping invalid JSON (%v): %s", err, truncate(raw, 200))
		return Frame{}, false
	}
	if f.Type == "" {
		log.Printf("protocol: dropping message without type: %s", truncate(raw, 200))
		return Frame{}, false
	}
	return f, true
}

// EncodeCancel builds the fire-and-forget cancel message for a request.
func EncodeCancel(requestID string) []byte {
	data, _ := json.Marshal(Frame{Type: FrameCancel, RequestID: requestID})
	return data
}

func truncate(raw []byte, n int) string {
	if len(raw) > n {
		return string(raw[:n]) + "..."
	}
	return string(raw)
}
