//go:build linux || darwin

package eventloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// defaultPollFunc is the default PollFunc on Unix platforms: a direct
// unix.Poll call, retried transparently on EINTR. This mirrors GLib's own
// default poll() implementation rather than the teacher's epoll/kqueue
// per-fd callback registration, because the loop wants a stateless
// "poll this set, read back revents" call, not a callback table owned by
// the poller itself.
func defaultPollFunc(fds []*PollFD, timeout time.Duration) (int, error) {
	pfds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = unix.PollFd{Fd: int32(fd.FD), Events: int16(fd.Events)}
	}

	ms := pollTimeoutMS(timeout)

	for {
		n, err := unix.Poll(pfds, ms)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, &PollError{Cause: err}
		}
		for i, pfd := range pfds {
			fds[i].Revents = IOCondition(pfd.Revents)
		}
		return n, nil
	}
}

func pollTimeoutMS(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		ms = int64(^uint32(0) >> 1)
	}
	return int(ms)
}
