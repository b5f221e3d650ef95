//go:build linux || darwin

package eventloop

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// fdWakeupChannel is the Unix wake-up channel: an eventfd on Linux, a
// self-pipe on Darwin. Its read end is registered as a PollFD in the
// loop's own poll record table, exactly like any other watched
// descriptor, so a write to it interrupts a blocked poll the same way any
// other ready fd would.
type fdWakeupChannel struct {
	readFD, writeFD int
	fd              *PollFD
}

func newWakeupChannel() (wakeupChannel, error) {
	readFD, writeFD, err := createWakeFd()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWakeupUnavailable, err)
	}
	return &fdWakeupChannel{
		readFD:  readFD,
		writeFD: writeFD,
		fd:      &PollFD{FD: readFD, Events: IOIn},
	}, nil
}

func (w *fdWakeupChannel) pollFD() *PollFD { return w.fd }

func (w *fdWakeupChannel) wake() error {
	return writeWake(w.writeFD)
}

// drain reads every pending wake-up token so the next poll call does not
// spuriously return immediately because of a stale readable eventfd/pipe.
func (w *fdWakeupChannel) drain() error {
	var buf [64]byte
	for {
		_, err := readFD(w.readFD, buf[:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return nil
			}
			return err
		}
	}
}

func (w *fdWakeupChannel) close() error {
	if w.readFD >= 0 {
		_ = closeFD(w.readFD)
	}
	if w.writeFD >= 0 && w.writeFD != w.readFD {
		_ = closeFD(w.writeFD)
	}
	return nil
}
