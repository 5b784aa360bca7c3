//go:build !linux

package lineedit

import (
	"errors"
	"os"
)

func isTerminal(*os.File) bool { return false }

func makeRaw(*os.File) (func() error, error) {
	return nil, errors.New("raw mode not supported on this platform")
}
