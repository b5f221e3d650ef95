//go:build darwin

package eventloop

import (
	"syscall"
)

// createWakeFd creates a self-pipe for wake-up notifications (Darwin),
// returning the read end and the write end of the pipe.
func createWakeFd() (readFD, writeFD int, err error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}

	cleanup := func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	}

	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])

	if err := syscall.SetNonblock(fds[0], true); err != nil {
		cleanup()
		return 0, 0, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		cleanup()
		return 0, 0, err
	}

	return fds[0], fds[1], nil
}

// writeWake writes a single wake-up token to the self-pipe's write end.
func writeWake(fd int) error {
	_, err := writeFD(fd, []byte{1})
	return err
}
