//go:build linux

package reactor

import (
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// epollPoller is the level-triggered poller backing the reactor on
// Linux, built directly on golang.org/x/sys/unix rather than net.Conn:
// Go's runtime netpoller does not expose raw readiness events to user
// code, and flipping a single interest mask between read and write per
// socket, plus resuming a partial vectored write, both require operating
// on the raw file descriptor.
type epollPoller struct {
	epfd int
}

var _ poller = (*epollPoller)(nil)

func newEpollPoller() (*epollPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll_create1")
	}
	return &epollPoller{epfd: fd}, nil
}

func toEpollEvents(want interest) uint32 {
	var events uint32
	if want&interestRead != 0 {
		events |= unix.EPOLLIN
	}
	if want&interestWrite != 0 {
		events |= unix.EPOLLOUT
	}
	return events
}

func (p *epollPoller) add(fd int, want interest) error {
	ev := unix.EpollEvent{Events: toEpollEvents(want), Fd: int32(fd)}
	return errors.Wrap(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev), "epoll_ctl(ADD)")
}

func (p *epollPoller) modify(fd int, want interest) error {
	ev := unix.EpollEvent{Events: toEpollEvents(want), Fd: int32(fd)}
	return errors.Wrap(unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev), "epoll_ctl(MOD)")
}

func (p *epollPoller) remove(fd int) error {
	err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
		// The descriptor is already gone; epoll drops it automatically
		// on close, so there is nothing left to deregister.
		return nil
	}
	return errors.Wrap(err, "epoll_ctl(DEL)")
}

func (p *epollPoller) wait(dst []readiness, timeout time.Duration) ([]readiness, error) {
	millis := -1
	if timeout >= 0 {
		millis = int(timeout.Milliseconds())
	}

	var raw [256]unix.EpollEvent
	n, err := unix.EpollWait(p.epfd, raw[:], millis)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return dst, nil
		}
		return dst, errors.Wrap(err, "epoll_wait")
	}

	for i := 0; i < n; i++ {
		var got interest
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			got |= interestRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			got |= interestWrite
		}
		dst = append(dst, readiness{fd: int(raw[i].Fd), events: got})
	}

	return dst, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}
