package linestream

import (
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dogmatiq/streamrpc"
)

// Reader is a buffered, resumable extractor of LF-delimited JSON Lines
// frames from a byte stream.
//
// It holds a fixed-capacity buffer with two cursors: start (the
// beginning of the next unparsed frame) and pos (the end of valid
// bytes); 0 <= start <= pos <= cap(buf) always holds.
//
// A Reader is not safe for concurrent use; streamrpc/reactor and
// streamrpc/rpcclient each own exactly one per connection.
type Reader struct {
	buf        []byte
	start, pos int
}

// NewReader returns a Reader with the given fixed read-buffer capacity.
// capacity bounds the largest frame the Reader can deliver; a frame that
// does not fit fails with streamrpc.ErrLineTooLong.
func NewReader(capacity int) *Reader {
	return &Reader{buf: make([]byte, capacity)}
}

// Next returns the next complete frame already buffered, performing no
// I/O. The returned slice aliases the Reader's internal buffer and is
// valid only until the next call to Fill, Drain, or ReadOne.
func (r *Reader) Next() ([]byte, bool) {
	i := bytes.IndexByte(r.buf[r.start:r.pos], '\n')
	if i < 0 {
		return nil, false
	}

	line := r.buf[r.start : r.start+i]
	r.start += i + 1
	return line, true
}

// Fill performs one read from src into the buffer's free space,
// compacting the buffer first if warranted.
//
// It returns streamrpc.ErrWouldBlock if src has no data available right
// now, streamrpc.ErrClosed on a graceful close (io.EOF, or a read
// reporting zero bytes with no error), streamrpc.ErrLineTooLong if the
// buffer is full but still holds no complete frame, or any other error
// src produced.
func (r *Reader) Fill(src io.Reader) error {
	if r.start > 0 && (r.start > len(r.buf)/2 || r.pos == len(r.buf)) {
		r.compact()
	}

	if r.pos == len(r.buf) {
		return streamrpc.ErrLineTooLong
	}

	n, err := src.Read(r.buf[r.pos:])
	if n > 0 {
		r.pos += n
	}

	switch {
	case errors.Is(err, streamrpc.ErrWouldBlock):
		return streamrpc.ErrWouldBlock
	case errors.Is(err, io.EOF):
		return streamrpc.ErrClosed
	case err != nil:
		return err
	case n == 0:
		return streamrpc.ErrClosed
	default:
		return nil
	}
}

// Reset discards any buffered bytes, preparing the Reader for reuse on a
// new connection. The underlying buffer and its capacity are retained.
func (r *Reader) Reset() {
	r.start = 0
	r.pos = 0
}

// compact moves the unparsed remainder [start, pos) to the front of the
// buffer, making room at the end for the next read.
func (r *Reader) compact() {
	n := copy(r.buf, r.buf[r.start:r.pos])
	r.start = 0
	r.pos = n
}

// Drain repeatedly fills from src and extracts frames until src signals
// streamrpc.ErrWouldBlock, returning every complete frame accumulated
// along the way.
//
// This is the server's delivery mode: a single readiness event may
// contain many frames, and the reactor wants all of them before invoking
// its handler. Because Drain may compact the internal buffer between
// frames, each returned slice is a copy owned by the caller rather than
// an alias of that buffer.
func (r *Reader) Drain(src io.Reader) ([][]byte, error) {
	var lines [][]byte

	for {
		for {
			line, ok := r.Next()
			if !ok {
				break
			}
			lines = append(lines, append([]byte(nil), line...))
		}

		if err := r.Fill(src); err != nil {
			if errors.Is(err, streamrpc.ErrWouldBlock) {
				return lines, nil
			}
			return lines, err
		}
	}
}

// ReadOne delivers exactly one frame, calling Fill as many times as
// necessary.
//
// This is the client's delivery mode. src is expected to block until
// data is available or the connection closes; ReadOne does not retry on
// streamrpc.ErrWouldBlock itself, it simply propagates it. The returned
// slice aliases the Reader's internal buffer and is valid only until the
// next call to Fill, Drain, or ReadOne.
func (r *Reader) ReadOne(src io.Reader) ([]byte, error) {
	if line, ok := r.Next(); ok {
		return line, nil
	}

	for {
		if err := r.Fill(src); err != nil {
			return nil, err
		}
		if line, ok := r.Next(); ok {
			return line, nil
		}
	}
}
