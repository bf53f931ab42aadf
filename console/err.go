package console

import (
	"errors"

	"github.com/ezrec/lc3os/translate"
)

var f = translate.From

var (
	ErrNotTerminal = errors.New(f("not a terminal"))
)
