package reactor

import "time"

// timeoutList is the reactor's FIFO idle-timeout list: an intrusive
// doubly-linked list over client.prev/client.next, ordered from the
// client that has gone longest without progress (front) to the most
// recently refreshed (back).
//
// The reactor is single-threaded, so no synchronization is required.
// Every operation is O(1), matching the design note that refreshing or
// removing a client must be cheap enough to perform on every readiness
// event.
type timeoutList struct {
	front, back *client
}

// pushBack appends c to the tail of the list. c must not already be a
// member of any list.
func (l *timeoutList) pushBack(c *client) {
	c.prev, c.next = nil, nil

	if l.back == nil {
		l.front, l.back = c, c
		return
	}

	c.prev = l.back
	l.back.next = c
	l.back = c
}

// remove unlinks c from the list. It is safe to call even if c is not
// currently linked (a no-op in that case, detected via nil neighbours
// and list identity), so callers never need to track membership
// separately.
func (l *timeoutList) remove(c *client) {
	if c.prev == nil && c.next == nil && l.front != c {
		// c is not linked into this list at all.
		return
	}

	if c.prev != nil {
		c.prev.next = c.next
	} else {
		l.front = c.next
	}

	if c.next != nil {
		c.next.prev = c.prev
	} else {
		l.back = c.prev
	}

	c.prev, c.next = nil, nil
}

// moveToBack refreshes c's position, moving it to the tail as though it
// had just been re-inserted. Every successful read, whether or not it
// completed a frame, calls this so c's deadline ordering stays
// consistent with insertion order.
func (l *timeoutList) moveToBack(c *client, deadline time.Time) {
	l.remove(c)
	c.deadline = deadline
	l.pushBack(c)
}

// empty reports whether the list has no members.
func (l *timeoutList) empty() bool {
	return l.front == nil
}

// nextDeadline returns the list's earliest deadline and ok=true, or
// ok=false if the list is empty.
func (l *timeoutList) nextDeadline() (deadline time.Time, ok bool) {
	if l.front == nil {
		return time.Time{}, false
	}
	return l.front.deadline, true
}

// expired removes and returns every client whose deadline is at or
// before now, in oldest-first order.
func (l *timeoutList) expired(now time.Time) []*client {
	var out []*client

	for l.front != nil && !l.front.deadline.After(now) {
		c := l.front
		l.remove(c)
		out = append(out, c)
	}

	return out
}
