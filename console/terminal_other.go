//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package console

import (
	"os"
)

// Terminal is not supported on this platform.
type Terminal struct {
	Verbose bool
}

// RawMode always fails with ErrNotTerminal on this platform.
func RawMode(file *os.File) (tty *Terminal, err error) {
	err = ErrNotTerminal
	return
}

// Restore does nothing.
func (tty *Terminal) Restore() (err error) {
	return
}
