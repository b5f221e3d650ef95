//go:build windows

package eventloop

import (
	"time"

	"golang.org/x/sys/windows"
)

// defaultPollFunc is the default PollFunc on Windows: a WSAPoll call,
// matching the shape of poller_unix.go's unix.Poll call so the iteration
// driver never needs to know which platform it is running on.
func defaultPollFunc(fds []*PollFD, timeout time.Duration) (int, error) {
	pfds := make([]windows.WSAPollFd, len(fds))
	for i, fd := range fds {
		pfds[i] = windows.WSAPollFd{Fd: windows.Handle(fd.FD), Events: int16(fd.Events)}
	}

	ms := pollTimeoutMS(timeout)

	n, err := windows.WSAPoll(pfds, ms)
	if err != nil {
		return 0, &PollError{Cause: err}
	}
	for i, pfd := range pfds {
		fds[i].Revents = IOCondition(pfd.REvents)
	}
	return int(n), nil
}

func pollTimeoutMS(timeout time.Duration) int32 {
	if timeout < 0 {
		return -1
	}
	ms := timeout.Milliseconds()
	if ms > int64(^uint32(0)>>1) {
		ms = int64(^uint32(0) >> 1)
	}
	return int32(ms)
}
