package linestream

import (
	"io"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/dogmatiq/streamrpc"
)

// Writer accumulates pre-serialized frames and flushes them to a
// byte-stream destination with a single vectored write, resuming
// automatically across partial writes.
//
// A Writer is not safe for concurrent use; streamrpc/reactor keeps one
// per client and streamrpc/rpcclient keeps one per connection.
type Writer struct {
	pending net.Buffers
}

// Enqueue appends frames, each already LF-terminated, to the pending
// write queue.
func (w *Writer) Enqueue(frames ...[]byte) {
	for _, f := range frames {
		w.pending = append(w.pending, f)
	}
}

// Pending reports whether any bytes remain to be flushed.
func (w *Writer) Pending() bool {
	return len(w.pending) > 0
}

// Reset discards any pending frames, preparing the Writer for reuse on a
// new connection.
func (w *Writer) Reset() {
	w.pending = w.pending[:0]
}

// Flush attempts to write every pending byte to dst using one vectored
// write.
//
// net.Buffers.WriteTo discards the fully-written prefix of the queue as
// it goes, so on a partial write (or a streamrpc.ErrWouldBlock) the
// remaining, untouched bytes are exactly what is left in w.pending:
// Flush can simply be called again once dst is writable, with no
// separate offset bookkeeping required.
//
// Once done is true, every enqueued frame has reached dst and the caller
// (typically the reactor) may return the connection's interest mask to
// readable.
func (w *Writer) Flush(dst io.Writer) (done bool, err error) {
	if len(w.pending) == 0 {
		return true, nil
	}

	_, err = w.pending.WriteTo(dst)
	if err != nil {
		if errors.Is(err, streamrpc.ErrWouldBlock) || errors.Is(err, io.ErrShortWrite) {
			// Either the destination would block, or it accepted fewer
			// bytes than requested without reporting would-block (a
			// legitimate outcome for a non-blocking socket). Both leave
			// net.Buffers.WriteTo's already-consumed prefix reflected in
			// w.pending, so the caller can simply retry Flush once dst
			// is writable again.
			return false, nil
		}
		return false, err
	}

	return true, nil
}
