//go:build linux

package rpcclient

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dogmatiq/streamrpc"
	"github.com/dogmatiq/streamrpc/linestream"
	"golang.org/x/sys/unix"
)

// fdConn adapts a raw, non-blocking socket descriptor to io.Reader and
// io.Writer, translating EAGAIN into streamrpc.ErrWouldBlock. It
// mirrors streamrpc/reactor's socket adapter of the same name; the two
// packages each own their copy rather than share one across an internal
// package, since a non-blocking client is a thin, optional surface and
// not worth a shared dependency edge.
type fdConn int

func (c fdConn) Read(p []byte) (int, error) {
	n, err := unix.Read(int(c), p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, streamrpc.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (c fdConn) Write(p []byte) (int, error) {
	n, err := unix.Write(int(c), p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, streamrpc.ErrWouldBlock
		}
		return 0, err
	}
	if n < len(p) {
		// io.Writer requires a non-nil error whenever n < len(p); without
		// it, net.Buffers.WriteTo (used by linestream.Writer.Flush) would
		// treat a genuine non-blocking partial write as "fully written"
		// and advance past unsent bytes.
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (c fdConn) Close() error {
	return unix.Close(int(c))
}

// NonBlockingClient is a JSON-RPC peer over a non-blocking socket
// descriptor, exposing linestream's Drain/Flush directly instead of
// hiding them behind blocking Call/Notify methods.
//
// It exists for a caller that already runs its own readiness loop
// (their own epoll/poll/kqueue, or an existing event-driven framework)
// and wants to multiplex a streamrpc connection into it rather than
// dedicate a goroutine to Client's blocking reads, trading a simpler
// API for caller-managed scheduling.
type NonBlockingClient struct {
	fd     fdConn
	reader *linestream.Reader
	writer *linestream.Writer
}

// DialNonBlocking connects to cfg.PeerAddress and returns a
// NonBlockingClient once the TCP handshake completes. Unlike Dial, the
// connection is non-blocking from the moment it is established:
// TryDrain and TryFlush never block the calling goroutine.
func DialNonBlocking(cfg Config) (*NonBlockingClient, error) {
	if n := cfg.readBufferSize(); n < MinReadBufferSize {
		return nil, errors.Wrapf(streamrpc.ErrBufferTooSmall, "rpcclient: Config.ReadBufferSize must be at least %d bytes (got %d)", MinReadBufferSize, n)
	}

	host, portStr, err := net.SplitHostPort(cfg.PeerAddress)
	if err != nil {
		return nil, errors.Wrap(err, "rpcclient: parse peer address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errors.Wrap(err, "rpcclient: parse peer port")
	}

	resolved, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return nil, errors.Wrapf(err, "rpcclient: resolve peer host %q", host)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "rpcclient: socket")
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], resolved.IP.To4())

	if err := unix.Connect(fd, sa); err != nil && !errors.Is(err, unix.EINPROGRESS) {
		unix.Close(fd)
		return nil, errors.Wrap(err, "rpcclient: connect")
	}

	if err := waitWritable(fd, cfg.dialTimeout()); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR); err != nil || errno != 0 {
		unix.Close(fd)
		if err == nil {
			err = unix.Errno(uintptr(errno))
		}
		return nil, errors.Wrap(err, "rpcclient: connect")
	}

	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

	return &NonBlockingClient{
		fd:     fdConn(fd),
		reader: linestream.NewReader(cfg.readBufferSize()),
		writer: &linestream.Writer{},
	}, nil
}

// waitWritable blocks (using poll(2), not the caller's own event loop)
// until fd becomes writable or timeout elapses, for the one-time
// TCP handshake completion that DialNonBlocking itself needs to confirm
// before handing the descriptor to the caller.
func waitWritable(fd int, timeout time.Duration) error {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}

	deadline := time.Now().Add(timeout)
	for {
		remaining := int(time.Until(deadline) / time.Millisecond)
		if remaining < 0 {
			remaining = 0
		}

		n, err := unix.Poll(fds, remaining)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return errors.Wrap(err, "rpcclient: poll")
		}
		if n == 0 {
			return errors.New("rpcclient: timed out connecting")
		}
		return nil
	}
}

// Close releases the underlying socket descriptor.
func (c *NonBlockingClient) Close() error {
	return c.fd.Close()
}

// Fd returns the raw descriptor so the caller can register it with
// their own poller.
func (c *NonBlockingClient) Fd() int {
	return int(c.fd)
}

// Enqueue queues pre-serialized, LF-terminated frames for the next
// TryFlush.
func (c *NonBlockingClient) Enqueue(frames ...[]byte) {
	c.writer.Enqueue(frames...)
}

// TryFlush attempts to write every pending frame without blocking.
// done is true once the queue is empty; otherwise the caller should
// retry once their poller reports the descriptor writable again.
func (c *NonBlockingClient) TryFlush() (done bool, err error) {
	return c.writer.Flush(c.fd)
}

// TryDrain extracts every complete response frame currently available,
// returning streamrpc.ErrWouldBlock (not as an error, but folded into
// an empty, nil-error result) once no more are available right now.
func (c *NonBlockingClient) TryDrain() ([]streamrpc.Response, error) {
	lines, err := c.reader.Drain(c.fd)
	if err != nil {
		return nil, err
	}

	responses := make([]streamrpc.Response, 0, len(lines))
	for _, line := range lines {
		res, err := streamrpc.ParseResponseLine(line)
		if err != nil {
			return responses, errors.Wrap(err, "rpcclient: parse response")
		}
		responses = append(responses, res)
	}
	return responses, nil
}
