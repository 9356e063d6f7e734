// Package h2conn is the connection façade: a thin shell holding the
// connection state machine, a stream-id-to-stream-object mapping
// (stream objects stay opaque to the core), and the negotiated maximum
// frame sizes. It routes every operation except EndStream through
// connstate first and only forwards to the stream map once the state
// machine accepts the corresponding input. EndStream does not step the
// state machine: it updates the stream map in any connection state.
package h2conn

//go:generate errtrace -w .

import (
	"context"
	"log/slog"
	"slices"

	"github.com/quietloop/h2core/connstate"
	"github.com/quietloop/h2core/flowctl"
	"github.com/quietloop/h2core/frame"
	"github.com/quietloop/h2core/header"
	"github.com/quietloop/h2core/internal/log"
	"github.com/quietloop/h2core/internal/xerr"
)

// Stream is implemented by the embedder. The core never inspects a
// Stream beyond ID and the Closed notification: everything else about
// per-stream state (flow-control accounting, body buffering, priority)
// is the stream layer's concern, out of scope for the core.
type Stream interface {
	// ID returns the stream identifier this Stream was registered under.
	ID() uint32

	// Closed is called once the façade accepts the end of this stream.
	Closed()
}

// Option configures a Conn at construction time.
type Option func(*Conn)

// WithLogger sets the logger a Conn uses to report accepted transitions
// and rejected operations. The default is log.Noop().
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxInboundFrameSize records the negotiated maximum inbound frame
// size. It is bookkeeping only: the façade does not itself enforce it
// against any payload, since the wire codec is out of core scope.
func WithMaxInboundFrameSize(n uint32) Option {
	return func(c *Conn) { c.maxInboundFrameSize = &n }
}

// WithMaxOutboundFrameSize records the negotiated maximum outbound frame
// size, symmetric to WithMaxInboundFrameSize.
func WithMaxOutboundFrameSize(n uint32) Option {
	return func(c *Conn) { c.maxOutboundFrameSize = &n }
}

// Conn is the connection façade.
type Conn struct {
	sm      *connstate.Machine
	streams map[uint32]Stream

	maxInboundFrameSize  *uint32
	maxOutboundFrameSize *uint32

	log *slog.Logger
}

// New returns a Conn with its state machine in connstate.Idle and an
// empty stream map.
func New(opts ...Option) *Conn {
	c := &Conn{
		sm:      connstate.New(),
		streams: make(map[uint32]Stream),
		log:     log.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() connstate.State { return c.sm.State() }

// MaxInboundFrameSize returns the negotiated maximum inbound frame size,
// and false if none has been negotiated yet.
func (c *Conn) MaxInboundFrameSize() (uint32, bool) {
	if c.maxInboundFrameSize == nil {
		return 0, false
	}
	return *c.maxInboundFrameSize, true
}

// MaxOutboundFrameSize is the symmetric accessor for MaxInboundFrameSize.
func (c *Conn) MaxOutboundFrameSize() (uint32, bool) {
	if c.maxOutboundFrameSize == nil {
		return 0, false
	}
	return *c.maxOutboundFrameSize, true
}

// Stream returns the opaque stream object registered under id, if any.
func (c *Conn) Stream(id uint32) (Stream, bool) {
	s, ok := c.streams[id]
	return s, ok
}

func (c *Conn) step(ctx context.Context, in connstate.Input) error {
	if err := c.sm.Step(ctx, in); err != nil {
		c.log.WarnContext(ctx, "operation rejected", "input", in, "state", c.sm.State(), "error", err)
		return err
	}
	c.log.DebugContext(ctx, "transition accepted", "input", in, "state", c.sm.State())
	return nil
}

// BeginStream registers a new stream. When local is true this is a
// locally-initiated stream (the embedder is about to send its opening
// HEADERS), stepping the machine with connstate.SendHeaders; otherwise
// it is a peer-initiated stream whose opening HEADERS just arrived,
// stepping with connstate.RecvHeaders. These are the only two inputs
// legal from Idle, and the only ones that ever change the connection's
// overall role.
func (c *Conn) BeginStream(ctx context.Context, id uint32, s Stream, local bool) error {
	in := connstate.RecvHeaders
	if local {
		in = connstate.SendHeaders
	}
	if err := c.step(ctx, in); err != nil {
		return err
	}
	if _, exists := c.streams[id]; exists {
		return xerr.NewProtocolError("stream %d already began", id)
	}
	c.streams[id] = s
	return nil
}

// EndStream removes id from the stream map and notifies its Stream. It
// does not step the state machine, so it neither depends on nor changes
// the connection's state.
func (c *Conn) EndStream(id uint32) error {
	s, ok := c.streams[id]
	if !ok {
		return xerr.NewProtocolError("end of unknown stream %d", id)
	}
	delete(c.streams, id)
	s.Closed()
	return nil
}

func (c *Conn) requireStream(id uint32) error {
	if _, ok := c.streams[id]; !ok {
		return xerr.NewProtocolError("no such stream %d", id)
	}
	return nil
}

// SendHeaders validates and normalizes fields for stream id, via
// header.NormalizeOutbound then header.ValidateOutbound, after
// confirming connstate.SendHeaders is legal in the current state and
// that id has already been registered with BeginStream.
func (c *Conn) SendHeaders(ctx context.Context, id uint32, fields []header.Field, flags header.ValidationFlags) ([]header.Field, error) {
	if err := c.step(ctx, connstate.SendHeaders); err != nil {
		return nil, err
	}
	if err := c.requireStream(id); err != nil {
		return nil, err
	}
	return header.ValidateOutbound(header.NormalizeOutbound(slices.Values(fields)), flags)
}

// SendPushPromise validates and normalizes fields for a server push
// advertised on stream id (the promised stream is promisedID; the
// caller registers it separately with BeginStream once accepted).
func (c *Conn) SendPushPromise(ctx context.Context, id, promisedID uint32, fields []header.Field, flags header.ValidationFlags) ([]header.Field, error) {
	if err := c.step(ctx, connstate.SendPushPromise); err != nil {
		return nil, err
	}
	if err := c.requireStream(id); err != nil {
		return nil, err
	}
	flags.IsPushPromise = true
	return header.ValidateOutbound(header.NormalizeOutbound(slices.Values(fields)), flags)
}

// SendData steps the machine for an outbound DATA frame on stream id.
func (c *Conn) SendData(ctx context.Context, id uint32) error {
	if err := c.step(ctx, connstate.SendData); err != nil {
		return err
	}
	return c.requireStream(id)
}

// SendGoAway steps the machine for a locally-originated GOAWAY, closing
// the connection.
func (c *Conn) SendGoAway(ctx context.Context) error {
	return c.step(ctx, connstate.SendGoAway)
}

// SendPing steps the machine for an outbound PING.
func (c *Conn) SendPing(ctx context.Context) error {
	return c.step(ctx, connstate.SendPing)
}

// IncrementWindow steps the machine for a WINDOW_UPDATE in the given
// direction, then applies flowctl.GuardIncrement. streamID 0 denotes the
// connection-level window; any other value must already be registered.
func (c *Conn) IncrementWindow(ctx context.Context, dir frame.Direction, streamID uint32, current, increment int64) (int64, error) {
	in := connstate.SendWindowUpdate
	if dir == frame.Recv {
		in = connstate.RecvWindowUpdate
	}
	if err := c.step(ctx, in); err != nil {
		return 0, err
	}
	if streamID != 0 {
		if err := c.requireStream(streamID); err != nil {
			return 0, err
		}
	}
	return flowctl.GuardIncrement(current, increment)
}

// ReceiveFrame routes an inbound frame descriptor: it derives the
// connstate.Input from desc.Kind, steps the machine, and for
// stream-scoped kinds confirms the stream is registered (HEADERS is the
// one exception: a HEADERS frame for an unknown stream is exactly how a
// peer-initiated stream is discovered, so the caller is expected to
// follow up with BeginStream rather than have ReceiveFrame pre-register
// it).
func (c *Conn) ReceiveFrame(ctx context.Context, desc frame.Descriptor) error {
	in, err := recvInputFor(desc.Kind)
	if err != nil {
		return err
	}
	if err := c.step(ctx, in); err != nil {
		return err
	}
	if desc.StreamID == 0 {
		return nil
	}
	switch desc.Kind {
	case frame.PushPromise, frame.Data, frame.WindowUpdate:
		return c.requireStream(desc.StreamID)
	default:
		return nil
	}
}

func recvInputFor(k frame.Kind) (connstate.Input, error) {
	switch k {
	case frame.Headers:
		return connstate.RecvHeaders, nil
	case frame.PushPromise:
		return connstate.RecvPushPromise, nil
	case frame.Data:
		return connstate.RecvData, nil
	case frame.GoAway:
		return connstate.RecvGoAway, nil
	case frame.WindowUpdate:
		return connstate.RecvWindowUpdate, nil
	case frame.Ping:
		return connstate.RecvPing, nil
	default:
		return 0, xerr.NewProtocolError("unrecognized frame kind %v", k)
	}
}
