package reactor

import "time"

// readiness describes one descriptor's outcome from a single poller
// wait: which interest(s) fired, identified by the fd the reactor
// registered it under.
type readiness struct {
	fd     int
	events interest
}

// poller is the reactor's readiness multiplexer. The reactor registers
// exactly one descriptor per client (plus the listening socket) and
// flips each descriptor's interest mask between interestRead and
// interestWrite as the per-client state machine demands.
//
// poller implementations are level-triggered: a descriptor that remains
// readable (or writable) is reported again on every wait call until its
// interest is cleared or satisfied, which is what lets the reactor treat
// "would-block" as the sole signal to stop reading or writing.
type poller interface {
	// add registers fd with the given initial interest.
	add(fd int, want interest) error

	// modify changes fd's interest mask.
	modify(fd int, want interest) error

	// remove deregisters fd. It is not an error to call remove on a
	// descriptor that was already closed out from under the poller (the
	// OS deregisters closed descriptors automatically); implementations
	// must tolerate that case silently.
	remove(fd int) error

	// wait blocks until at least one registered descriptor is ready or
	// timeout elapses, appending readiness events to dst and returning
	// the extended slice. A negative timeout waits indefinitely; a zero
	// timeout polls without blocking.
	wait(dst []readiness, timeout time.Duration) ([]readiness, error)

	// close releases the poller's own resources (e.g. its epoll
	// descriptor). It does not close any registered fd.
	close() error
}
