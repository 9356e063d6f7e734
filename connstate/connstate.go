// Package connstate implements the connection-level state machine that
// gates which frame operations are legal given an HTTP/2 connection's
// lifecycle. It is a pure transducer: State is a deterministic function
// of the Input sequence processed since New.
package connstate

//go:generate errtrace -w .

import (
	"context"

	"github.com/qmuntal/stateless"

	"github.com/quietloop/h2core/internal/xerr"
)

// State is one of the connection's four lifecycle states.
type State int

const (
	Idle State = iota
	ClientOpen
	ServerOpen
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case ClientOpen:
		return "CLIENT_OPEN"
	case ServerOpen:
		return "SERVER_OPEN"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Input is one of the twelve send/recv events: for each of HEADERS,
// PUSH_PROMISE, DATA, GOAWAY, WINDOW_UPDATE, and PING there is a Send
// and a Recv variant.
type Input int

const (
	SendHeaders Input = iota
	RecvHeaders
	SendPushPromise
	RecvPushPromise
	SendData
	RecvData
	SendGoAway
	RecvGoAway
	SendWindowUpdate
	RecvWindowUpdate
	SendPing
	RecvPing

	// forceClose is not a wire event; it is the internal trigger fired to
	// drive the machine to Closed when an input absent from the table is
	// fired. It is never returned to, or accepted from, a caller.
	forceClose
)

func (in Input) String() string {
	switch in {
	case SendHeaders:
		return "SEND_HEADERS"
	case RecvHeaders:
		return "RECV_HEADERS"
	case SendPushPromise:
		return "SEND_PUSH_PROMISE"
	case RecvPushPromise:
		return "RECV_PUSH_PROMISE"
	case SendData:
		return "SEND_DATA"
	case RecvData:
		return "RECV_DATA"
	case SendGoAway:
		return "SEND_GOAWAY"
	case RecvGoAway:
		return "RECV_GOAWAY"
	case SendWindowUpdate:
		return "SEND_WINDOW_UPDATE"
	case RecvWindowUpdate:
		return "RECV_WINDOW_UPDATE"
	case SendPing:
		return "SEND_PING"
	case RecvPing:
		return "RECV_PING"
	default:
		return "UNKNOWN"
	}
}

// Machine is the connection-level state transducer. The zero value is
// not usable; construct one with New.
type Machine struct {
	sm *stateless.StateMachine

	closedBy    Input
	closedClean bool
	haveClosed  bool
}

// New returns a Machine in state Idle.
func New() *Machine {
	m := &Machine{}
	sm := stateless.NewStateMachine(Idle)

	sm.Configure(Idle).
		Permit(SendHeaders, ClientOpen).
		Permit(RecvHeaders, ServerOpen).
		Permit(forceClose, Closed)

	sm.Configure(ClientOpen).
		PermitReentry(SendHeaders).
		PermitReentry(SendData).
		PermitReentry(SendWindowUpdate).
		PermitReentry(SendPing).
		PermitReentry(RecvHeaders).
		PermitReentry(RecvPushPromise).
		PermitReentry(RecvData).
		PermitReentry(RecvWindowUpdate).
		PermitReentry(RecvPing).
		Permit(SendGoAway, Closed).
		Permit(RecvGoAway, Closed).
		Permit(forceClose, Closed)

	sm.Configure(ServerOpen).
		PermitReentry(SendHeaders).
		PermitReentry(SendPushPromise).
		PermitReentry(SendData).
		PermitReentry(SendWindowUpdate).
		PermitReentry(SendPing).
		PermitReentry(RecvHeaders).
		PermitReentry(RecvData).
		PermitReentry(RecvWindowUpdate).
		PermitReentry(RecvPing).
		Permit(SendGoAway, Closed).
		Permit(RecvGoAway, Closed).
		Permit(forceClose, Closed)

	sm.Configure(Closed)

	m.sm = sm
	return m
}

// State returns the machine's current state.
func (m *Machine) State() State {
	return m.sm.MustState().(State)
}

// ClosedReason reports which input drove the machine to Closed, and
// whether that closure was a clean GOAWAY exchange (clean=true) or a
// fault: an input absent from the transition table (clean=false). ok is
// false until the machine has actually closed.
func (m *Machine) ClosedReason() (in Input, clean bool, ok bool) {
	return m.closedBy, m.closedClean, m.haveClosed
}

// Step processes a single input. On success the machine's new state is
// whatever the transition table names for (current state, in). On
// failure — the pair is absent from the table — the machine is forced
// to Closed before the error is returned: a failed operation makes no
// observable state change except this mandated transition to CLOSED.
func (m *Machine) Step(ctx context.Context, in Input) error {
	if m.State() == Closed {
		return xerr.NewProtocolError("connection already closed, %s rejected", in)
	}

	from := m.State()
	if err := m.sm.FireCtx(ctx, in); err != nil {
		// The pair (from, in) has no entry in the table. Force the
		// machine closed and report a fault closure.
		_ = m.sm.FireCtx(ctx, forceClose)
		if !m.haveClosed {
			m.closedBy = in
			m.closedClean = false
			m.haveClosed = true
		}
		return xerr.NewProtocolError("illegal input %s in state %s", in, from)
	}

	if (in == SendGoAway || in == RecvGoAway) && !m.haveClosed {
		m.closedBy = in
		m.closedClean = true
		m.haveClosed = true
	}
	return nil
}
