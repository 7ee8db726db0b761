// Package ids generates the public identifiers handed to clients:
// <prefix>_<unix millis>_<9 base36 chars>.
package ids

import (
	"strconv"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var suffix func() string

func init() {
	gen, err := nanoid.CustomASCII(alphabet, 9)
	if err != nil {
		panic(err)
	}
	suffix = gen
}

// Generator returns a new id for prefix. Tests swap it for a fixed sequence.
type Generator func(prefix string) string

func New(prefix string) string {
	return NewAt(prefix, time.Now())
}

func NewAt(prefix string, t time.Time) string {
	return prefix + "_" + strconv.FormatInt(t.UnixMilli(), 10) + "_" + suffix()
}

// Sequence returns a Generator yielding <prefix>_<n> with n counting from 1.
func Sequence() Generator {
	n := 0
	return func(prefix string) string {
		n++
		return prefix + "_" + strconv.Itoa(n)
	}
}
