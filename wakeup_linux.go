//go:build linux

package eventloop

import (
	"golang.org/x/sys/unix"
)

const (
	efdCloexec  = unix.EFD_CLOEXEC
	efdNonblock = unix.EFD_NONBLOCK
)

// createWakeFd creates an eventfd for wake-up notifications (Linux). The
// same fd serves as both read and write end.
func createWakeFd() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, efdCloexec|efdNonblock)
	return fd, fd, err
}

// writeWake writes a single wake-up token to an eventfd.
func writeWake(fd int) error {
	var buf [8]byte
	buf[0] = 1
	_, err := writeFD(fd, buf[:])
	return err
}
