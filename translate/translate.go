// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package translate formats the emulator's diagnostics and error text
// for the user's locale.
package translate

import (
	"io"
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("lc3os: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// SetLanguage overrides the detected locale.
func SetLanguage(tag language.Tag) {
	printer = message.NewPrinter(tag)
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Fprint writes a translated diagnostic line to w.
func Fprint(w io.Writer, key message.Reference, args ...any) (err error) {
	_, err = io.WriteString(w, printer.Sprintf(key, args...)+"\n")
	return
}
