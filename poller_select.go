//go:build linux || darwin

package eventloop

import (
	"time"

	"golang.org/x/sys/unix"
)

// SelectPollFunc is the select-style fallback multiplexer, restricted to
// read, write, and exception conditions as spec'd: unlike poll, select
// cannot report POLLHUP/POLLERR distinctly, so a fd with IOErr or IOHup
// requested is placed in the exception set, and any exception reported for
// it comes back as IOErr; IOHup is never reported. It exists for
// environments where poll is unavailable or undesirable; pass it to
// WithPollFunc or SetPollFunc to opt in. The default PollFunc remains the
// poll(2)-backed defaultPollFunc.
func SelectPollFunc(fds []*PollFD, timeout time.Duration) (int, error) {
	var rfds, wfds, efds unix.FdSet
	maxFD := -1

	for _, fd := range fds {
		if fd.FD > maxFD {
			maxFD = fd.FD
		}
		if fd.Events&IOIn != 0 {
			fdSet(&rfds, fd.FD)
		}
		if fd.Events&IOOut != 0 {
			fdSet(&wfds, fd.FD)
		}
		if fd.Events&(IOErr|IOHup) != 0 {
			fdSet(&efds, fd.FD)
		}
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		tv = &t
	}

	for {
		_, err := unix.Select(maxFD+1, &rfds, &wfds, &efds, tv)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, &PollError{Cause: err}
		}

		ready := 0
		for _, fd := range fds {
			fd.Revents = 0
			if fdIsSet(&rfds, fd.FD) {
				fd.Revents |= IOIn
			}
			if fdIsSet(&wfds, fd.FD) {
				fd.Revents |= IOOut
			}
			if fdIsSet(&efds, fd.FD) {
				fd.Revents |= IOErr
			}
			if fd.Revents != 0 {
				ready++
			}
		}
		return ready, nil
	}
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
