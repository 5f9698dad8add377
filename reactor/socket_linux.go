//go:build linux

package reactor

import (
	"io"
	"net"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dogmatiq/streamrpc"
	"golang.org/x/sys/unix"
)

// listen creates, binds, and starts listening on a non-blocking TCP
// socket for addr ("host:port"), returning its raw file descriptor.
//
// The reactor operates on raw descriptors rather than *net.TCPListener
// because epoll registration and non-blocking reads/writes need direct
// access to the fd; net.Listener hides it behind the runtime's own
// (goroutine-per-connection oriented) netpoller.
func listen(addr string) (int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return -1, errors.Wrap(err, "parse bind address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return -1, errors.Wrap(err, "parse bind port")
	}

	var ip net.IP
	if host == "" {
		ip = net.IPv4zero
	} else {
		ip = net.ParseIP(host)
		if ip == nil {
			resolved, err := net.ResolveIPAddr("ip4", host)
			if err != nil {
				return -1, errors.Wrapf(err, "resolve bind host %q", host)
			}
			ip = resolved.IP
		}
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errors.Wrap(err, "socket")
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "setsockopt(SO_REUSEADDR)")
	}

	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip.To4())

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "bind")
	}

	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, errors.Wrap(err, "listen")
	}

	return fd, nil
}

// localAddr returns the "host:port" a listening socket is bound to,
// resolving an ephemeral port (bind address port 0) to the one the
// kernel actually assigned.
func localAddr(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", errors.Wrap(err, "getsockname")
	}

	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", errors.New("getsockname: unexpected address family")
	}

	ip := net.IP(sa4.Addr[:])
	return net.JoinHostPort(ip.String(), strconv.Itoa(sa4.Port)), nil
}

// acceptOne accepts a single pending connection from listenFd, returning
// its non-blocking descriptor. streamrpc.ErrWouldBlock is returned once
// no connection remains pending, which is the accept loop's signal to
// stop.
func acceptOne(listenFd int) (int, error) {
	connFd, _, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return -1, streamrpc.ErrWouldBlock
		}
		return -1, errors.Wrap(err, "accept4")
	}

	// Disable Nagle's algorithm: JSON-RPC frames are typically small and
	// latency-sensitive, and the protocol itself does no coalescing of
	// its own.
	_ = unix.SetsockoptInt(connFd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

	return connFd, nil
}

// fdConn adapts a raw, non-blocking socket descriptor to io.Reader and
// io.Writer, translating EAGAIN/EWOULDBLOCK into streamrpc.ErrWouldBlock
// so linestream.Reader and linestream.Writer can treat every source and
// destination uniformly regardless of whether it is backed by a raw fd
// (the reactor) or a *net.TCPConn (streamrpc/rpcclient).
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
		// A non-blocking socket can accept fewer bytes than requested
		// without returning EAGAIN. io.Writer requires a non-nil error
		// whenever n < len(p), so callers (including net.Buffers.WriteTo,
		// which trusts a nil error as "fully written") can detect and
		// resume the short write instead of silently dropping bytes.
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (c fdConn) Close() error {
	return unix.Close(int(c))
}

// shutdownRecv half-closes the read side of the connection: an idle
// timeout stops future reads (the next attempt observes a graceful
// close) while letting any already-queued write finish draining.
func (c fdConn) shutdownRecv() error {
	return unix.Shutdown(int(c), unix.SHUT_RD)
}
