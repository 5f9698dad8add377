package reactor

import (
	"context"
	"time"

	"github.com/dogmatiq/streamrpc/linestream"
	lfsm "github.com/looplab/fsm"
)

// clientState mirrors the two states from the per-client state machine:
// a client is either waiting to have frames read from it, or has
// responses queued that have not yet been fully written.
type clientState string

const (
	stateReadingReq  clientState = "reading_request"
	stateWritingResp clientState = "writing_response"
)

// Events driving transitions between clientState values. Idle-timeout
// and error transitions are not modeled as fsm events: they end the
// client's lifetime outright rather than moving it between these two
// states, so the reactor handles them by removing the client directly.
const (
	evWriteEnqueued = "write_enqueued"
	evWriteDrained  = "write_drained"
)

// interest mirrors the client's current interest mask: the set of
// readiness events the poller is watching for on its descriptor.
type interest uint8

const (
	interestRead interest = 1 << iota
	interestWrite
)

// client holds all per-connection state. Instances are drawn from and
// returned to a pool (see pool.go) so that a closed connection's read
// buffer and state machine can be reused by a later one.
type client struct {
	id       ClientID
	fd       int
	state    *lfsm.FSM
	interest interest
	reader   *linestream.Reader
	writer   *linestream.Writer

	deadline time.Time

	// prev/next form the reactor's intrusive FIFO idle-timeout list,
	// ordered oldest-deadline-first. A live client is always linked
	// into exactly that one list; see timeoutlist.go. The links live in
	// the client itself, so the list needs no node allocations of its
	// own.
	prev, next *client
}

func newClient(readBufferSize int) *client {
	c := &client{
		reader: linestream.NewReader(readBufferSize),
		writer: &linestream.Writer{},
	}
	c.state = newClientFSM()
	return c
}

func newClientFSM() *lfsm.FSM {
	return lfsm.NewFSM(
		string(stateReadingReq),
		lfsm.Events{
			{Name: evWriteEnqueued, Src: []string{string(stateReadingReq)}, Dst: string(stateWritingResp)},
			{Name: evWriteDrained, Src: []string{string(stateWritingResp)}, Dst: string(stateReadingReq)},
		},
		nil,
	)
}

// reset reinitializes c for a freshly accepted connection, retaining its
// read buffer and fsm allocations.
func (c *client) reset(fd int, id ClientID, deadline time.Time) {
	c.fd = fd
	c.id = id
	c.interest = interestRead
	c.deadline = deadline
	c.prev, c.next = nil, nil

	c.reader.Reset()
	c.writer.Reset()

	if c.state == nil {
		c.state = newClientFSM()
	} else {
		c.state.SetState(string(stateReadingReq))
	}
}

func (c *client) isWriting() bool {
	return c.state.Current() == string(stateWritingResp)
}

// beginWriting transitions the client into stateWritingResp. It is a
// fatal bug (not a runtime possibility) for this to be called from any
// state but stateReadingReq, so a transition error is not expected and
// is ignored defensively rather than plumbed through every caller.
func (c *client) beginWriting() {
	_ = c.state.Event(context.Background(), evWriteEnqueued)
}

func (c *client) finishWriting() {
	_ = c.state.Event(context.Background(), evWriteDrained)
}
