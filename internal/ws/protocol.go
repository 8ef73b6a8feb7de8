package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// recordSeparator terminates every JSON record on the wire.
const recordSeparator byte = 0x1e

// FrameType identifies a hub protocol record.
type FrameType int

const (
	InvocationFrame FrameType = 1
	CompletionFrame FrameType = 3
	PingFrame       FrameType = 6
	CloseFrame      FrameType = 7
)

// Frame is one hub protocol record.
type Frame struct {
	Type           FrameType         `json:"type"`
	InvocationID   string            `json:"invocationId,omitempty"`
	Target         string            `json:"target,omitempty"`
	Arguments      []json.RawMessage `json:"arguments,omitempty"`
	Result         json.RawMessage   `json:"result,omitempty"`
	Error          string            `json:"error,omitempty"`
	AllowReconnect bool              `json:"allowReconnect,omitempty"`
}

type handshakeRequest struct {
	Protocol string `json:"protocol"`
	Version  int    `json:"version"`
}

// handshakeResponse is an empty record on success. A hub may instead answer
// with an error or a close record.
type handshakeResponse struct {
	Type  FrameType `json:"type,omitempty"`
	Error string    `json:"error,omitempty"`
}

// EncodeRecord marshals v and appends the record separator.
func EncodeRecord(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(body, recordSeparator), nil
}

// SplitRecords splits a websocket message into its records. A trailing
// fragment without separator is ignored.
func SplitRecords(data []byte) [][]byte {
	var out [][]byte
	for len(data) > 0 {
		i := bytes.IndexByte(data, recordSeparator)
		if i < 0 {
			break
		}
		if i > 0 {
			out = append(out, data[:i])
		}
		data = data[i+1:]
	}
	return out
}

// Invocation builds an invocation frame. An empty id makes it fire-and-forget.
func Invocation(id, target string, args ...any) (Frame, error) {
	raw := make([]json.RawMessage, 0, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return Frame{}, fmt.Errorf("encode argument %d of %s: %w", i, target, err)
		}
		raw = append(raw, b)
	}
	return Frame{Type: InvocationFrame, InvocationID: id, Target: target, Arguments: raw}, nil
}
