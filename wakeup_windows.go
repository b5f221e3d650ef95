//go:build windows

package eventloop

import (
	"fmt"
	"net"
	"syscall"
	"time"
)

// fdWakeupChannel is the Windows wake-up channel. WSAPoll only operates on
// sockets, so unlike the eventfd/self-pipe used on Unix, the wake-up
// channel here is a loopback TCP connection: writing a byte to the client
// socket makes the server socket's handle ready for POLLIN, the same way
// any other watched socket would report readiness.
type fdWakeupChannel struct {
	listener net.Listener
	server   net.Conn
	client   net.Conn
	fd       *PollFD
}

func newWakeupChannel() (wakeupChannel, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWakeupUnavailable, err)
	}

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("%w: %v", ErrWakeupUnavailable, err)
	}

	server, err := ln.Accept()
	if err != nil {
		ln.Close()
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrWakeupUnavailable, err)
	}

	fd, err := socketHandle(server)
	if err != nil {
		ln.Close()
		client.Close()
		server.Close()
		return nil, fmt.Errorf("%w: %v", ErrWakeupUnavailable, err)
	}

	return &fdWakeupChannel{
		listener: ln,
		server:   server,
		client:   client,
		fd:       &PollFD{FD: fd, Events: IOIn},
	}, nil
}

func socketHandle(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, fmt.Errorf("connection does not expose a raw handle")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var handle int
	ctrlErr := raw.Control(func(fd uintptr) {
		handle = int(fd)
	})
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return handle, nil
}

func (w *fdWakeupChannel) pollFD() *PollFD { return w.fd }

func (w *fdWakeupChannel) wake() error {
	_, err := w.client.Write([]byte{1})
	return err
}

// drain reads every pending wake-up byte so the next poll does not
// spuriously return immediately because of a stale readable socket.
func (w *fdWakeupChannel) drain() error {
	buf := make([]byte, 64)
	_ = w.server.SetReadDeadline(time.Now().Add(time.Millisecond))
	for {
		_, err := w.server.Read(buf)
		if err != nil {
			return nil
		}
	}
}

func (w *fdWakeupChannel) close() error {
	w.client.Close()
	w.server.Close()
	w.listener.Close()
	return nil
}
