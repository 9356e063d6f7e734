// Package frame defines the tagged frame descriptor that the codec
// collaborator hands to h2conn for received frames. The core never
// parses or serializes the wire format; it only inspects a descriptor's
// Kind to derive a connstate.Input.
package frame

import "golang.org/x/net/http2/hpack"

// Kind identifies which HTTP/2 frame type a Descriptor describes. Only
// the frame types that gate a connection-level state transition are
// represented; frame types the core never inspects (SETTINGS, PRIORITY,
// RST_STREAM, CONTINUATION) are a codec/stream-layer concern and have no
// Kind here.
type Kind int

const (
	Headers Kind = iota
	PushPromise
	Data
	GoAway
	WindowUpdate
	Ping
)

func (k Kind) String() string {
	switch k {
	case Headers:
		return "HEADERS"
	case PushPromise:
		return "PUSH_PROMISE"
	case Data:
		return "DATA"
	case GoAway:
		return "GOAWAY"
	case WindowUpdate:
		return "WINDOW_UPDATE"
	case Ping:
		return "PING"
	default:
		return "UNKNOWN"
	}
}

// Direction distinguishes a frame the local endpoint is about to send
// from one the local endpoint has just received.
type Direction int

const (
	Send Direction = iota
	Recv
)

func (d Direction) String() string {
	if d == Send {
		return "send"
	}
	return "recv"
}

// Descriptor is an opaque-payload, tagged description of a single frame.
// The core inspects only Kind and StreamID; every other field is left
// to the stream layer untouched.
type Descriptor struct {
	Kind      Kind
	Direction Direction

	// StreamID is 0 for connection-scoped frames (GOAWAY, connection-level
	// WINDOW_UPDATE, PING) and the stream identifier otherwise.
	StreamID uint32

	// EndStream mirrors the END_STREAM flag on HEADERS and DATA frames.
	EndStream bool

	// Fields carries already-HPACK-decoded header fields for HEADERS and
	// PUSH_PROMISE frames. CONTINUATION reassembly is assumed complete by
	// the time a Descriptor reaches the core: that reassembly belongs to
	// the frame-codec collaborator, not to h2core.
	Fields []hpack.HeaderField

	// PromisedStreamID is set for PUSH_PROMISE frames.
	PromisedStreamID uint32

	// DataLength is the DATA payload length, used only for flow-control
	// accounting by the embedder; the core does not inspect the payload
	// itself.
	DataLength int

	// Increment is the WINDOW_UPDATE increment.
	Increment int32

	// ErrorCode and LastStreamID are set for GOAWAY frames.
	ErrorCode    uint32
	LastStreamID uint32

	// OpaqueData is the 8-octet PING payload.
	OpaqueData [8]byte
}
