//go:build linux || darwin || freebsd || netbsd || openbsd

package console

import (
	"log"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal holds the saved state of a terminal placed in raw mode.
type Terminal struct {
	Verbose bool // If set, enables verbose logging.

	fd    uintptr
	saved unix.Termios
}

// RawMode disables line buffering and echo on a terminal, so that GETC
// sees each key as it is pressed. ErrNotTerminal is returned for files
// and pipes.
func RawMode(file *os.File) (tty *Terminal, err error) {
	fd := file.Fd()
	if !term.IsTerminal(int(fd)) {
		err = ErrNotTerminal
		return
	}

	tty = &Terminal{fd: fd}
	err = termios.Tcgetattr(fd, &tty.saved)
	if err != nil {
		tty = nil
		return
	}

	raw := tty.saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	err = termios.Tcsetattr(fd, termios.TCSANOW, &raw)
	if err != nil {
		tty = nil
		return
	}

	return
}

// Restore puts the terminal back the way RawMode found it.
func (tty *Terminal) Restore() (err error) {
	if tty.Verbose {
		log.Printf("console: restore terminal")
	}
	return termios.Tcsetattr(tty.fd, termios.TCSANOW, &tty.saved)
}
